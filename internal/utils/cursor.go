// Cursor tokens for keyset pagination of the pending list.

package utils

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prosteam/invitegate/internal/domain"
)

// ErrBadCursor is returned by DecodeCursor for anything it did not produce.
var ErrBadCursor = errors.New("malformed cursor")

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c domain.Cursor) string {
	raw := strconv.FormatInt(c.SubmittedAt.UTC().UnixNano(), 10) + ":" + c.UID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from EncodeCursor. An empty token yields
// (nil, nil), meaning "start from the top".
func DecodeCursor(s string) (*domain.Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	ts, uid, found := strings.Cut(string(raw), ":")
	if !found || uid == "" {
		return nil, ErrBadCursor
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || nanos < 0 {
		return nil, ErrBadCursor
	}
	return &domain.Cursor{SubmittedAt: time.Unix(0, nanos).UTC(), UID: uid}, nil
}
