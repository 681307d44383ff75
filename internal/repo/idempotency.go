// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores the results of admin API decisions made
// with an Idempotency-Key so that retries can be answered from the record.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prosteam/invitegate/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (principal, scope, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, principal, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("principal = ? AND scope = ? AND key = ? AND expires_at > ?", principal, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
// An expired record under the same tuple is replaced.
func CreateIdempotency(ctx context.Context, db *gorm.DB, principal, scope, key, uid string, result domain.Status, status int, now time.Time, ttl time.Duration) (*domain.Idempotency, error) {
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		Principal: principal,
		Scope:     scope,
		Key:       key,
		UID:       uid,
		Result:    result,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("principal = ? AND scope = ? AND key = ? AND expires_at <= ?", principal, scope, key, now).
			Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredIdempotency deletes records whose window has passed.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}

// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// IdempotencyStore binds the helpers above to a database and a retention
// window for the HTTP layer.
type IdempotencyStore struct {
	DB  *gorm.DB
	TTL time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewIdempotencyStore returns a store keeping records for ttl.
func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{DB: db, TTL: ttl, Now: time.Now}
}

func (s *IdempotencyStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Exists reports whether a live record is stored for the tuple. It matches
// middleware.IdempotencyLookup.
func (s *IdempotencyStore) Exists(ctx context.Context, principal, scope, key string, now time.Time) (bool, error) {
	_, err := GetIdempotency(ctx, s.DB, principal, scope, key, now)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Get returns the live record for the tuple or ErrNotFound.
func (s *IdempotencyStore) Get(ctx context.Context, principal, scope, key string) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, principal, scope, key, s.now())
}

// Save stores the outcome of a completed call.
func (s *IdempotencyStore) Save(ctx context.Context, principal, scope, key, uid string, result domain.Status, status int) error {
	_, err := CreateIdempotency(ctx, s.DB, principal, scope, key, uid, result, status, s.now(), s.TTL)
	return err
}

// Purge removes expired records.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	return PurgeExpiredIdempotency(ctx, s.DB, s.now())
}
