// Package services – ApprovalWorkflow
//
// This file implements ApprovalWorkflow, the component that owns the life of a
// UID submission: validation, the insert-or-reset upsert, and the decision
// protocol that turns an operator verdict into a terminal status.
//
// A decision first claims the record (a single compare-and-set in the store),
// then runs the decision's side effects, and only then persists the result:
//
//   - reject: finalize immediately, notify the requester best-effort.
//   - approve: mint a single-use invite, deliver it, then finalize. Any
//     failure or timeout releases the claim so the record is pending again.
//
// The invite is minted before anything is persisted so a record is never
// marked approved without a delivered invite. A failed delivery can leave a
// minted invite behind; it expires on its own.
//
// Observability: public methods are OpenTelemetry-instrumented and counted in
// Prometheus (see metrics.go).
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prosteam/invitegate/internal/domain"
	"github.com/prosteam/invitegate/internal/repo"
)

// storeTimeout bounds finalize/release writes, which run detached from the
// caller's cancellation so a claim is never left behind.
const storeTimeout = 5 * time.Second

// SubmissionStore is the persistence contract required by ApprovalWorkflow.
// repo.SubmissionStore is the production implementation.
type SubmissionStore interface {
	// Upsert inserts a pending record or resets an existing one.
	Upsert(ctx context.Context, uid string, r domain.Requester) (*domain.Submission, error)
	// Get returns the record or repo.ErrNotFound.
	Get(ctx context.Context, uid string) (*domain.Submission, error)
	// TryClaim returns a claim, repo.ErrNotFound, or repo.ErrNotPending.
	TryClaim(ctx context.Context, uid string) (*domain.Claim, error)
	// Finalize writes a terminal status; repo.ErrClaimLost if the claim was cleared.
	Finalize(ctx context.Context, claim *domain.Claim, status domain.Status, actorID int64) error
	// Release returns a claimed record to pending.
	Release(ctx context.Context, claim *domain.Claim) error
	// ListPending pages pending records, most recent first.
	ListPending(ctx context.Context, limit int, before *domain.Cursor) ([]domain.Submission, error)
	// Stats returns counts per status.
	Stats(ctx context.Context) (*domain.SubmissionStats, error)
}

// InviteIssuer mints single-use, expiring invitations to a group.
type InviteIssuer interface {
	CreateSingleUseInvite(ctx context.Context, groupID int64, expiry time.Duration, usageLimit int) (*domain.Invite, error)
}

// Notifier delivers a text message to a user or chat.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// AdminChannel posts a review card (record snapshot plus approve/reject
// actions) to the operators' chat.
type AdminChannel interface {
	PostReview(ctx context.Context, chatID int64, s domain.Submission) error
}

// WorkflowConfig parameterizes one deployment of the gate.
type WorkflowConfig struct {
	AdminChatID      int64         // operators' chat receiving review cards
	TargetGroupID    int64         // group the invites lead into
	InviteTTL        time.Duration // invite validity
	InviteUsageLimit int           // joins allowed per invite
	CallTimeout      time.Duration // bound on each blocking external call
}

// DefaultWorkflowConfig returns a config with a 30 minute, single-use invite
// and a 10 second call timeout. Chat ids must still be set.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		InviteTTL:        30 * time.Minute,
		InviteUsageLimit: 1,
		CallTimeout:      10 * time.Second,
	}
}

// DecisionOutcome describes what a decision did. On ErrNotifyFailed it still
// carries the minted invite so the actor can see what was left behind.
type DecisionOutcome struct {
	UID        string
	Decision   domain.Decision
	Status     domain.Status
	Submission domain.Submission
	Invite     *domain.Invite
}

// ApprovalWorkflow coordinates submissions and decisions. It is safe for
// concurrent use; contention on a single UID is resolved by the store claim.
type ApprovalWorkflow struct {
	store    SubmissionStore
	issuer   InviteIssuer
	notifier Notifier
	admin    AdminChannel
	dispatch Dispatcher
	cfg      WorkflowConfig
	logger   zerolog.Logger
}

// NewApprovalWorkflow wires the workflow. A nil dispatcher runs best-effort
// jobs inline.
func NewApprovalWorkflow(store SubmissionStore, issuer InviteIssuer, notifier Notifier, admin AdminChannel, d Dispatcher, cfg WorkflowConfig) *ApprovalWorkflow {
	if d == nil {
		d = InlineDispatcher{Timeout: cfg.CallTimeout}
	}
	if cfg.InviteUsageLimit <= 0 {
		cfg.InviteUsageLimit = 1
	}
	return &ApprovalWorkflow{
		store:    store,
		issuer:   issuer,
		notifier: notifier,
		admin:    admin,
		dispatch: d,
		cfg:      cfg,
		logger:   log.With().Str("component", "approval").Logger(),
	}
}

// Config returns the workflow configuration.
func (w *ApprovalWorkflow) Config() WorkflowConfig { return w.cfg }

// HandleSubmission validates uid, upserts the record (resetting any prior
// decision), queues the admin review card, and acknowledges the submitter.
// An invalid uid yields ErrUIDFormatInvalid and touches nothing.
func (w *ApprovalWorkflow) HandleSubmission(ctx context.Context, uid string, r domain.Requester) (*domain.Submission, error) {
	tr := otel.Tracer("services/ApprovalWorkflow")
	ctx, span := tr.Start(ctx, "HandleSubmission",
		trace.WithAttributes(
			attribute.String("uid", uid),
			attribute.Int64("requester.id", r.ID),
		),
	)
	defer span.End()

	if !ValidUID(uid) {
		submissionsTotal.WithLabelValues("invalid_uid").Inc()
		return nil, ErrUIDFormatInvalid
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Handle = strings.TrimPrefix(strings.TrimSpace(r.Handle), "@")
	if r.ID == 0 || r.Name == "" {
		submissionsTotal.WithLabelValues("invalid_requester").Inc()
		return nil, ErrRequesterInvalid
	}

	sub, err := w.store.Upsert(ctx, uid, r)
	if err != nil {
		submissionsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, err
	}
	submissionsTotal.WithLabelValues("accepted").Inc()

	snapshot := *sub
	w.dispatch.Dispatch("admin_review", func(ctx context.Context) error {
		return w.admin.PostReview(ctx, w.cfg.AdminChatID, snapshot)
	})

	// The acknowledgement is the submitter's only answer, so it is sent
	// inline rather than queued behind other side effects. It stays best
	// effort: the record is stored either way.
	start := time.Now()
	_, err = boundedCall(ctx, w.cfg.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.notifier.Send(ctx, r.ID, submissionAckText(uid))
	})
	observeCall("submission_ack", start, err)
	if err != nil {
		w.logger.Warn().Err(err).Str("uid", uid).Int64("requester_id", r.ID).Msg("submission acknowledgement failed")
	}

	w.logger.Info().
		Str("uid", uid).
		Int64("requester_id", r.ID).
		Msg("submission received")
	return sub, nil
}

// HandleDecision applies an operator decision to uid on behalf of actorID.
//
// Errors:
//   - ErrUIDUnknown: no record for uid.
//   - ErrAlreadyDecided: decided already, or another decision is in flight.
//   - ErrInviteCreationFailed / ErrNotifyFailed: approve side effect failed
//     or timed out; the record is pending again.
//   - ErrClaimLost: uid was resubmitted while deciding; nothing recorded.
func (w *ApprovalWorkflow) HandleDecision(ctx context.Context, uid string, decision domain.Decision, actorID int64) (*DecisionOutcome, error) {
	tr := otel.Tracer("services/ApprovalWorkflow")
	ctx, span := tr.Start(ctx, "HandleDecision",
		trace.WithAttributes(
			attribute.String("uid", uid),
			attribute.String("decision", string(decision)),
			attribute.Int64("actor.id", actorID),
		),
	)
	defer span.End()

	out, err := w.decide(ctx, uid, decision, actorID)
	if err != nil {
		decisionsTotal.WithLabelValues(string(decision), outcomeLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeLabel(err))
		return out, err
	}
	decisionsTotal.WithLabelValues(string(decision), "ok").Inc()
	return out, nil
}

func (w *ApprovalWorkflow) decide(ctx context.Context, uid string, decision domain.Decision, actorID int64) (*DecisionOutcome, error) {
	if decision != domain.DecisionApprove && decision != domain.DecisionReject {
		return nil, ErrUnknownDecision
	}

	claim, err := w.store.TryClaim(ctx, uid)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrUIDUnknown
	case errors.Is(err, repo.ErrNotPending):
		return nil, ErrAlreadyDecided
	case err != nil:
		return nil, err
	}

	lg := w.logger.With().
		Str("uid", uid).
		Str("decision", string(decision)).
		Int64("actor_id", actorID).
		Logger()

	out := &DecisionOutcome{
		UID:        uid,
		Decision:   decision,
		Status:     domain.StatusPending,
		Submission: claim.Submission,
	}
	requesterID := claim.Submission.RequesterID

	if decision == domain.DecisionReject {
		if err := w.finalize(ctx, claim, domain.StatusRejected, actorID); err != nil {
			return out, err
		}
		out.Status = domain.StatusRejected
		w.dispatch.Dispatch("rejection_notice", func(ctx context.Context) error {
			return w.notifier.Send(ctx, requesterID, rejectionText(uid))
		})
		lg.Info().Msg("submission rejected")
		return out, nil
	}

	start := time.Now()
	inv, err := boundedCall(ctx, w.cfg.CallTimeout, func(ctx context.Context) (*domain.Invite, error) {
		return w.issuer.CreateSingleUseInvite(ctx, w.cfg.TargetGroupID, w.cfg.InviteTTL, w.cfg.InviteUsageLimit)
	})
	if err == nil && inv == nil {
		err = errors.New("issuer returned no invite")
	}
	observeCall("create_invite", start, err)
	if err != nil {
		w.release(ctx, claim)
		lg.Warn().Err(err).Msg("invite creation failed, claim released")
		return out, fmt.Errorf("%w: %v", ErrInviteCreationFailed, err)
	}
	out.Invite = inv

	start = time.Now()
	_, err = boundedCall(ctx, w.cfg.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.notifier.Send(ctx, requesterID, inviteText(uid, inv))
	})
	observeCall("deliver_invite", start, err)
	if err != nil {
		w.release(ctx, claim)
		lg.Warn().Err(err).Str("invite_url", inv.URL).Msg("invite delivery failed, claim released; invite left to expire")
		return out, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}

	if err := w.finalize(ctx, claim, domain.StatusApproved, actorID); err != nil {
		return out, err
	}
	out.Status = domain.StatusApproved
	lg.Info().Time("invite_expires_at", inv.ExpiresAt).Msg("submission approved")
	return out, nil
}

// Get returns the record for uid, or ErrUIDUnknown.
func (w *ApprovalWorkflow) Get(ctx context.Context, uid string) (*domain.Submission, error) {
	s, err := w.store.Get(ctx, uid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUIDUnknown
	}
	return s, err
}

// ListPending returns up to limit pending records (default 20, max 100)
// after the cursor, most recent first.
func (w *ApprovalWorkflow) ListPending(ctx context.Context, limit int, before *domain.Cursor) ([]domain.Submission, error) {
	tr := otel.Tracer("services/ApprovalWorkflow")
	ctx, span := tr.Start(ctx, "ListPending", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	items, err := w.store.ListPending(ctx, limit, before)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Submission{}
	}
	return items, nil
}

// Stats returns record counts per status.
func (w *ApprovalWorkflow) Stats(ctx context.Context) (*domain.SubmissionStats, error) {
	return w.store.Stats(ctx)
}

// finalize persists the terminal status on a context detached from the
// caller. On failure the claim is released so the record stays decidable.
func (w *ApprovalWorkflow) finalize(ctx context.Context, claim *domain.Claim, status domain.Status, actorID int64) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	err := w.store.Finalize(sctx, claim, status, actorID)
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrClaimLost) {
		w.logger.Warn().Str("uid", claim.Submission.UID).Msg("claim lost to a resubmission before finalize")
		return ErrClaimLost
	}
	w.logger.Error().Err(err).Str("uid", claim.Submission.UID).Str("status", string(status)).Msg("finalize failed")
	w.release(ctx, claim)
	return fmt.Errorf("finalize %s: %w", status, err)
}

// release returns the claim; a lost claim is not an error here since the
// record is pending either way.
func (w *ApprovalWorkflow) release(ctx context.Context, claim *domain.Claim) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if err := w.store.Release(sctx, claim); err != nil && !errors.Is(err, repo.ErrClaimLost) {
		w.logger.Error().Err(err).Str("uid", claim.Submission.UID).Msg("release failed; claim expires after the stale window")
	}
}

// boundedCall runs fn with a deadline and returns when fn does or when the
// deadline passes, whichever comes first. fn keeps running in the background
// if it ignores its context; its late result is discarded.
func boundedCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.v, r.err
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrUIDUnknown):
		return "unknown_uid"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrInviteCreationFailed):
		return "invite_failed"
	case errors.Is(err, ErrNotifyFailed):
		return "notify_failed"
	case errors.Is(err, ErrClaimLost):
		return "claim_lost"
	case errors.Is(err, ErrUnknownDecision):
		return "bad_decision"
	default:
		return "error"
	}
}
