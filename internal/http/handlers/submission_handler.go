// Submission HTTP handlers.
//
// This file exposes the admin API over the approval workflow:
//   - GET    /submissions               (pending list, cursor paginated, ETag)
//   - GET    /submissions/stats         (counts per status)
//   - GET    /submissions/{uid}         (one record)
//   - POST   /submissions               (submit on behalf of a user)
//   - POST   /submissions/{uid}/decision (approve or reject)
//
// Handlers are transport-thin: they validate input, call the workflow, and
// translate results into HTTP responses. Decisions honor Idempotency-Key so a
// client retrying after a lost response gets its original outcome instead of
// already_decided.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prosteam/invitegate/internal/domain"
	"github.com/prosteam/invitegate/internal/http/middleware"
	"github.com/prosteam/invitegate/internal/repo"
	"github.com/prosteam/invitegate/internal/services"
	"github.com/prosteam/invitegate/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Workflow is the subset of services.ApprovalWorkflow used over HTTP.
// Implementations must be safe for concurrent use and honor ctx.
type Workflow interface {
	HandleSubmission(ctx context.Context, uid string, r domain.Requester) (*domain.Submission, error)
	HandleDecision(ctx context.Context, uid string, d domain.Decision, actorID int64) (*services.DecisionOutcome, error)
	Get(ctx context.Context, uid string) (*domain.Submission, error)
	ListPending(ctx context.Context, limit int, before *domain.Cursor) ([]domain.Submission, error)
	Stats(ctx context.Context) (*domain.SubmissionStats, error)
}

// IdempotencyStore persists decision outcomes per (principal, scope, key).
// Get returns repo.ErrNotFound when nothing live is stored.
type IdempotencyStore interface {
	Get(ctx context.Context, principal, scope, key string) (*domain.Idempotency, error)
	Save(ctx context.Context, principal, scope, key, uid string, result domain.Status, status int) error
}

// Handlers groups the admin endpoints.
type Handlers struct {
	wf   Workflow
	idem IdempotencyStore
}

// New binds the handlers. idem may be nil, in which case Idempotency-Key is
// validated but outcomes are not stored.
func New(wf Workflow, idem IdempotencyStore) *Handlers {
	return &Handlers{wf: wf, idem: idem}
}

//
// DTOs
//

// CreateSubmissionRequest submits a UID on behalf of a Telegram user.
type CreateSubmissionRequest struct {
	UID             string `json:"uid"              binding:"required"`
	RequesterID     int64  `json:"requester_id"     binding:"required"`
	RequesterHandle string `json:"requester_handle"`
	RequesterName   string `json:"requester_name"   binding:"required"`
}

// DecisionRequest carries an operator verdict.
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	// ActorID is the Telegram user id recorded as decided_by.
	ActorID int64 `json:"actor_id" binding:"required"`
}

// DecisionResponse reports the result of a decision. Invite is only present
// on the original approve call; replays never return the link.
type DecisionResponse struct {
	UID        string            `json:"uid"`
	Status     domain.Status     `json:"status"`
	Replayed   bool              `json:"replayed,omitempty"`
	Submission domain.Submission `json:"submission"`
	Invite     *domain.Invite    `json:"invite,omitempty"`
}

// ListSubmissionsResponse is one page of pending records.
type ListSubmissionsResponse struct {
	Submissions []domain.Submission `json:"submissions"`
	NextCursor  string              `json:"next_cursor,omitempty"`
}

//
// Handlers
//

// ListPending godoc
// @ID          listPendingSubmissions
// @Summary     List pending submissions (cursor paginated)
// @Description Returns pending records, most recent first. The weak ETag covers the pending count, the latest submission time and the page parameters, so If-None-Match may return 304.
// @Tags        Submissions
// @Produce     json
//
// @Param       limit          query   int     false "Page size (1-100)"  default(20)
// @Param       cursor         query   string  false "Opaque cursor from next_cursor"
// @Param       If-None-Match  header  string  false "Weak ETag from a previous page"
//
// @Success     200  {object}  handlers.ListSubmissionsResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid cursor"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong API key"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Security    APIKey
// @Router      /submissions [get]
func (h *Handlers) ListPending(c *gin.Context) {
	ctx := c.Request.Context()
	limit := utils.ClampLimit(c.Query("limit"), defaultPageSize, maxPageSize)
	token := c.Query("cursor")
	before, err := utils.DecodeCursor(token)
	if err != nil {
		failErr(c, err)
		return
	}

	// ETag pre-check (best effort).
	if st, err := h.wf.Stats(ctx); err == nil {
		var ts int64
		if st.LastSubmitted != nil {
			ts = st.LastSubmitted.UnixNano()
		}
		etag := fmt.Sprintf(`W/"pending:%d:%d:%d:%s"`, st.Pending, ts, limit, token)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.wf.ListPending(ctx, limit, before)
	if err != nil {
		failErr(c, err)
		return
	}
	resp := ListSubmissionsResponse{Submissions: items}
	if len(items) == limit {
		last := items[len(items)-1]
		resp.NextCursor = utils.EncodeCursor(domain.Cursor{SubmittedAt: last.SubmittedAt, UID: last.UID})
	}
	ok(c, http.StatusOK, resp)
}

// Stats godoc
// @ID          submissionStats
// @Summary     Count submissions per status
// @Tags        Submissions
// @Produce     json
// @Success     200  {object}  domain.SubmissionStats
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong API key"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Security    APIKey
// @Router      /submissions/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	st, err := h.wf.Stats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// GetSubmission godoc
// @ID          getSubmission
// @Summary     Get one submission
// @Tags        Submissions
// @Produce     json
// @Param       uid  path  string  true  "UID (6-12 digits)"  example(12345678)
// @Success     200  {object}  domain.Submission
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed UID"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong API key"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown UID"
// @Security    APIKey
// @Router      /submissions/{uid} [get]
func (h *Handlers) GetSubmission(c *gin.Context) {
	uid := c.Param("uid")
	if !services.ValidUID(uid) {
		failErr(c, services.ErrUIDFormatInvalid)
		return
	}
	s, err := h.wf.Get(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// CreateSubmission godoc
// @ID          createSubmission
// @Summary     Submit a UID on behalf of a user
// @Description Records a submission exactly as the bot would, including the admin review card and the requester acknowledgement. Resubmitting a UID resets it to pending.
// @Tags        Submissions
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateSubmissionRequest  true  "Submission payload"
//
// @Success     201  {object}  domain.Submission
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request, invalid_uid or invalid_requester"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong API key"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Security    APIKey
// @Router      /submissions [post]
func (h *Handlers) CreateSubmission(c *gin.Context) {
	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "uid, requester_id and requester_name are required")
		return
	}
	s, err := h.wf.HandleSubmission(c.Request.Context(), strings.TrimSpace(req.UID), domain.Requester{
		ID:     req.RequesterID,
		Handle: req.RequesterHandle,
		Name:   req.RequesterName,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("uid", s.UID).Msg("submission created via api")
	ok(c, http.StatusCreated, s)
}

// Decide godoc
// @ID          decideSubmission
// @Summary     Approve or reject a submission
// @Description Approving mints a single-use invite and sends it to the requester before the record is marked approved. With an Idempotency-Key a successful outcome is stored and a retry is answered from it (Idempotent-Replayed: true) without the invite link. Failed decisions are not stored.
// @Tags        Submissions
// @Accept      json
// @Produce     json
//
// @Param       uid              path    string                    true   "UID (6-12 digits)"  example(12345678)
// @Param       Idempotency-Key  header  string                    false  "Client retry key"
// @Param       body             body    handlers.DecisionRequest  true   "Decision payload"
//
// @Success     200  {object}  handlers.DecisionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or invalid_decision"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong API key"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown UID"
// @Failure     409  {object}  handlers.ErrorResponse  "already_decided or claim_lost"
// @Failure     502  {object}  handlers.ErrorResponse  "invite_failed or notify_failed"
// @Failure     504  {object}  handlers.ErrorResponse  "Timeout"
// @Security    APIKey
// @Router      /submissions/{uid}/decision [post]
func (h *Handlers) Decide(c *gin.Context) {
	ctx := c.Request.Context()
	uid := c.Param("uid")
	if !services.ValidUID(uid) {
		failErr(c, services.ErrUIDFormatInvalid)
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "decision and actor_id are required")
		return
	}
	decision, err := domain.ParseDecision(req.Decision)
	if err != nil {
		failErr(c, err)
		return
	}

	key, hasKey := middleware.GetIdempotencyKey(c)
	principal := middleware.Principal(c)
	scope := middleware.IdempotencyScope(c)

	if hasKey && h.idem != nil && middleware.IsReplay(c) {
		if h.replay(c, principal, scope, key, uid) {
			return
		}
	}

	out, err := h.wf.HandleDecision(ctx, uid, decision, req.ActorID)
	if err != nil {
		failErr(c, err)
		return
	}

	if hasKey && h.idem != nil {
		// The decision is already durable; a lost record only costs the
		// caller an already_decided on retry.
		if err := h.idem.Save(ctx, principal, scope, key, uid, out.Status, http.StatusOK); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Str("uid", uid).Msg("idempotency save failed")
		}
	}

	middleware.LoggerFrom(c).Info().
		Str("uid", uid).
		Str("decision", string(decision)).
		Int64("actor_id", req.ActorID).
		Msg("decision applied via api")

	ok(c, http.StatusOK, DecisionResponse{
		UID:        uid,
		Status:     out.Status,
		Submission: out.Submission,
		Invite:     out.Invite,
	})
}

// replay answers from a stored outcome. It returns false when the record
// vanished (expired between lookup and now) so the caller proceeds normally.
func (h *Handlers) replay(c *gin.Context, principal, scope, key, uid string) bool {
	ctx := c.Request.Context()
	rec, err := h.idem.Get(ctx, principal, scope, key)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency read failed")
		}
		return false
	}
	s, err := h.wf.Get(ctx, uid)
	if err != nil {
		failErr(c, err)
		return true
	}
	c.Header(middleware.HeaderReplayed, "true")
	ok(c, rec.Status, DecisionResponse{
		UID:        uid,
		Status:     rec.Result,
		Replayed:   true,
		Submission: *s,
	})
	return true
}
