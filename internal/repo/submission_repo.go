// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Submission
// model, plus SubmissionStore, a handle that binds them to one database.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They stay
// "thin": the claim protocol is expressed as conditional updates, and the
// approval policy lives in services.ApprovalWorkflow.
//
// Error semantics:
//   - Missing records yield ErrNotFound (gorm.ErrRecordNotFound).
//   - TryClaim on a decided or already claimed record yields ErrNotPending.
//   - Finalize/Release with a token that no longer holds the record yield
//     ErrClaimLost (a resubmission cleared the claim).
//   - Other DB errors are propagated as-is.
//
// Functions:
//
//   - UpsertSubmission(ctx, db, uid, requester, now) -> *domain.Submission, error
//     Inserts a pending record or resets an existing one in one statement.
//
//   - GetSubmission(ctx, db, uid) -> *domain.Submission, error
//
//   - ClaimSubmission(ctx, db, uid, now, staleBefore) -> *domain.Claim, error
//     Compare-and-set on (status=pending, unclaimed or stale claim).
//
//   - FinalizeSubmission(ctx, db, claim, status, actorID, now) -> error
//
//   - ReleaseSubmission(ctx, db, claim, now) -> error
//
//   - ListPendingSubmissions(ctx, db, limit, before) -> []domain.Submission, error
//     Keyset pagination, most recent first.
//
//   - ReleaseStaleClaims(ctx, db, before) -> int64, error
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prosteam/invitegate/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

var (
	// ErrNotPending is returned by ClaimSubmission when the record is already
	// decided or another decision holds a live claim on it.
	ErrNotPending = errors.New("submission is not pending")

	// ErrClaimLost is returned when the claim token no longer matches the
	// record, typically because the UID was resubmitted mid-decision.
	ErrClaimLost = errors.New("claim no longer held")

	// ErrNonTerminalStatus is returned when finalizing with a non-terminal status.
	ErrNonTerminalStatus = errors.New("finalize requires approved or rejected")
)

// UpsertSubmission inserts a pending Submission for uid or resets the existing
// one: requester fields are overwritten, status returns to pending, decision
// fields and any claim are cleared, and submitted_at moves to now. Concurrent
// upserts on the same uid resolve last-writer-wins.
func UpsertSubmission(ctx context.Context, db *gorm.DB, uid string, r domain.Requester, now time.Time) (*domain.Submission, error) {
	now = now.UTC()
	rec := &domain.Submission{
		UID:             uid,
		RequesterID:     r.ID,
		RequesterHandle: r.Handle,
		RequesterName:   r.Name,
		Status:          domain.StatusPending,
		SubmittedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var out domain.Submission
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "uid"}},
			DoUpdates: clause.Assignments(map[string]any{
				"requester_id":     r.ID,
				"requester_handle": r.Handle,
				"requester_name":   r.Name,
				"status":           domain.StatusPending,
				"submitted_at":     now,
				"decided_at":       nil,
				"decided_by":       nil,
				"claim_token":      nil,
				"claimed_at":       nil,
				"updated_at":       now,
			}),
		}).Create(rec).Error
		if err != nil {
			return err
		}
		return tx.Where("uid = ?", uid).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubmission fetches a single record by uid, or ErrNotFound.
func GetSubmission(ctx context.Context, db *gorm.DB, uid string) (*domain.Submission, error) {
	var s domain.Submission
	if err := db.WithContext(ctx).Where("uid = ?", uid).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ClaimSubmission atomically marks a pending record as held by a new claim.
// The conditional UPDATE is the whole check-and-set: of two racing callers
// exactly one sees RowsAffected == 1. Claims taken before staleBefore are
// treated as abandoned and may be taken over.
func ClaimSubmission(ctx context.Context, db *gorm.DB, uid string, now, staleBefore time.Time) (*domain.Claim, error) {
	now = now.UTC()
	token := uuid.NewString()

	var claim *domain.Claim
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Submission{}).
			Where("uid = ? AND status = ? AND (claim_token IS NULL OR claimed_at < ?)",
				uid, domain.StatusPending, staleBefore.UTC()).
			Updates(map[string]any{
				"claim_token": token,
				"claimed_at":  now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}

		var rec domain.Submission
		if err := tx.Where("uid = ?", uid).First(&rec).Error; err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}
		claim = &domain.Claim{Token: token, Submission: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// FinalizeSubmission writes the terminal status and decision metadata and
// clears the claim. Only the holder of claim may finalize.
func FinalizeSubmission(ctx context.Context, db *gorm.DB, claim *domain.Claim, status domain.Status, actorID int64, now time.Time) error {
	if !status.IsTerminal() {
		return ErrNonTerminalStatus
	}
	now = now.UTC()
	res := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("uid = ? AND status = ? AND claim_token = ?", claim.Submission.UID, domain.StatusPending, claim.Token).
		Updates(map[string]any{
			"status":      status,
			"decided_at":  now,
			"decided_by":  actorID,
			"claim_token": nil,
			"claimed_at":  nil,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// ReleaseSubmission returns a claimed record to the decidable pool without
// deciding it.
func ReleaseSubmission(ctx context.Context, db *gorm.DB, claim *domain.Claim, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("uid = ? AND claim_token = ?", claim.Submission.UID, claim.Token).
		Updates(map[string]any{
			"claim_token": nil,
			"claimed_at":  nil,
			"updated_at":  now.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// ListPendingSubmissions returns up to limit pending records ordered by
// submitted_at then uid, both descending. Passing the last returned record as
// before continues the listing; an empty result ends it.
func ListPendingSubmissions(ctx context.Context, db *gorm.DB, limit int, before *domain.Cursor) ([]domain.Submission, error) {
	q := db.WithContext(ctx).Where("status = ?", domain.StatusPending)
	if before != nil {
		at := before.SubmittedAt.UTC()
		q = q.Where("submitted_at < ? OR (submitted_at = ? AND uid < ?)", at, at, before.UID)
	}
	var out []domain.Submission
	err := q.Order("submitted_at desc").
		Order("uid desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ReleaseStaleClaims clears every claim taken before the given time and
// returns how many records were released. Called at startup with time.Now so
// decisions interrupted by a restart become decidable again.
func ReleaseStaleClaims(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("claim_token IS NOT NULL AND claimed_at < ?", before.UTC()).
		Updates(map[string]any{"claim_token": nil, "claimed_at": nil})
	return res.RowsAffected, res.Error
}

// SubmissionStore binds the submission functions to one database handle. It
// is constructed once at startup and injected into the workflow.
type SubmissionStore struct {
	DB *gorm.DB
	// StaleClaimAfter is how long a claim may stay unresolved before another
	// decision may take it over. Zero disables takeover.
	StaleClaimAfter time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewSubmissionStore returns a store over db.
func NewSubmissionStore(db *gorm.DB, staleClaimAfter time.Duration) *SubmissionStore {
	return &SubmissionStore{DB: db, StaleClaimAfter: staleClaimAfter, Now: time.Now}
}

func (s *SubmissionStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Upsert proxies UpsertSubmission.
func (s *SubmissionStore) Upsert(ctx context.Context, uid string, r domain.Requester) (*domain.Submission, error) {
	return UpsertSubmission(ctx, s.DB, uid, r, s.now())
}

// Get proxies GetSubmission.
func (s *SubmissionStore) Get(ctx context.Context, uid string) (*domain.Submission, error) {
	return GetSubmission(ctx, s.DB, uid)
}

// TryClaim proxies ClaimSubmission with the configured staleness window.
func (s *SubmissionStore) TryClaim(ctx context.Context, uid string) (*domain.Claim, error) {
	now := s.now()
	staleBefore := time.Time{}
	if s.StaleClaimAfter > 0 {
		staleBefore = now.Add(-s.StaleClaimAfter)
	}
	return ClaimSubmission(ctx, s.DB, uid, now, staleBefore)
}

// Finalize proxies FinalizeSubmission.
func (s *SubmissionStore) Finalize(ctx context.Context, claim *domain.Claim, status domain.Status, actorID int64) error {
	return FinalizeSubmission(ctx, s.DB, claim, status, actorID, s.now())
}

// Release proxies ReleaseSubmission.
func (s *SubmissionStore) Release(ctx context.Context, claim *domain.Claim) error {
	return ReleaseSubmission(ctx, s.DB, claim, s.now())
}

// ListPending proxies ListPendingSubmissions.
func (s *SubmissionStore) ListPending(ctx context.Context, limit int, before *domain.Cursor) ([]domain.Submission, error) {
	return ListPendingSubmissions(ctx, s.DB, limit, before)
}

// Stats proxies SubmissionStats.
func (s *SubmissionStore) Stats(ctx context.Context) (*domain.SubmissionStats, error) {
	return SubmissionStats(ctx, s.DB)
}
