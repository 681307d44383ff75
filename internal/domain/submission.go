// Package domain defines the persistence models and value types of the UID
// approval gate. Submission is mapped with GORM and forms the core data layer;
// the remaining types travel between the workflow and its collaborators.
package domain

import (
	"errors"
	"strings"
	"time"
)

// Status is the review state of a Submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether s is a decided state.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission is the single record kept per UID. A resubmission overwrites the
// requester fields and puts the record back to pending, whatever its prior
// status was.
//
// Fields:
//   - UID: 6-12 decimal digits, primary key.
//   - RequesterID: Telegram user id of the submitter (also its private chat id).
//   - RequesterHandle: optional @username, empty when the user has none.
//   - RequesterName: display name, required.
//   - Status: pending, approved or rejected (enforced by DB constraint).
//   - SubmittedAt: time of the most recent submission.
//   - DecidedAt / DecidedBy: last decision time and actor, nil while pending.
//   - ClaimToken / ClaimedAt: set while a decision is in flight.
type Submission struct {
	UID             string     `json:"uid"              gorm:"type:varchar(12);primaryKey"`
	RequesterID     int64      `json:"requester_id"     gorm:"not null;index"`
	RequesterHandle string     `json:"requester_handle" gorm:"type:varchar(64);not null;default:''"`
	RequesterName   string     `json:"requester_name"   gorm:"type:varchar(255);not null"`
	Status          Status     `json:"status"           gorm:"type:varchar(16);not null;default:'pending';index:idx_status_submitted,priority:1;check:status IN ('pending','approved','rejected')"`
	SubmittedAt     time.Time  `json:"submitted_at"     gorm:"not null;index:idx_status_submitted,priority:2"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	DecidedBy       *int64     `json:"decided_by,omitempty"`
	ClaimToken      *string    `json:"-"                gorm:"type:char(36)"`
	ClaimedAt       *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// Claimed reports whether a decision currently holds the record.
func (s Submission) Claimed() bool { return s.ClaimToken != nil }

// Requester identifies the user behind a submission.
type Requester struct {
	ID     int64
	Handle string
	Name   string
}

// Mention renders the requester as "Name (@handle)" or just the name.
func (r Requester) Mention() string {
	if h := strings.TrimPrefix(strings.TrimSpace(r.Handle), "@"); h != "" {
		return r.Name + " (@" + h + ")"
	}
	return r.Name
}

// Requester returns the requester fields of the record.
func (s Submission) Requester() Requester {
	return Requester{ID: s.RequesterID, Handle: s.RequesterHandle, Name: s.RequesterName}
}

// Claim is the proof that exactly one decision is in flight for a UID. The
// token guards Finalize and Release against a claim that was cleared by a
// resubmission in the meantime.
type Claim struct {
	Token      string
	Submission Submission
}

// Cursor marks a position in the pending list (most recent first).
type Cursor struct {
	SubmittedAt time.Time
	UID         string
}

// SubmissionStats aggregates record counts per status.
type SubmissionStats struct {
	Pending       int64      `json:"pending"`
	Approved      int64      `json:"approved"`
	Rejected      int64      `json:"rejected"`
	LastSubmitted *time.Time `json:"last_submitted_at,omitempty"`
}

// Invite is a single-use entry link into the target group.
type Invite struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Decision is an operator verdict on a pending submission.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ErrUnknownDecision is returned by ParseDecision for anything but approve/reject.
var ErrUnknownDecision = errors.New("decision must be approve or reject")

// ParseDecision maps user input to a Decision (case-insensitive).
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return "", ErrUnknownDecision
}
