package domain

import "time"

// Idempotency records the result of an admin API call made with an
// Idempotency-Key, keyed by (principal, scope, key). Scope identifies the
// operation and its target, e.g. "POST /api/v1/submissions/12345678/decision".
// A retried decision is answered from this record instead of surfacing
// AlreadyDecided for the caller's own earlier success.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Principal string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_principal_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_principal_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_principal_scope_key,priority:3"`
	UID       string    `gorm:"type:TEXT NOT NULL"`
	Result    Status    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
