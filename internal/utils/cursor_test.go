package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/prosteam/invitegate/internal/domain"
)

func TestCursor_RoundTripAndErrors(t *testing.T) {
	at := time.Date(2026, 4, 1, 12, 30, 0, 123456789, time.FixedZone("KST", 9*3600))
	tok := EncodeCursor(domain.Cursor{SubmittedAt: at, UID: "12345678"})

	got, err := DecodeCursor(tok)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.SubmittedAt.Equal(at) || got.UID != "12345678" || got.SubmittedAt.Location() != time.UTC {
		t.Fatalf("unexpected cursor: %+v", got)
	}

	if c, err := DecodeCursor(""); c != nil || err != nil {
		t.Fatalf("empty token must mean no cursor, got (%v, %v)", c, err)
	}

	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	for _, bad := range []string{"!!!", enc("no-colon"), enc("123:"), enc("abc:12345678"), enc("-5:12345678")} {
		if _, err := DecodeCursor(bad); err != ErrBadCursor {
			t.Fatalf("DecodeCursor(%q) err = %v, want ErrBadCursor", bad, err)
		}
	}
}
