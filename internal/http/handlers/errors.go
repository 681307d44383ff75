// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics, and the
// workflow-specific ones tell an operator whether a retry can help:
// invite_failed and notify_failed leave the UID pending, already_decided
// and claim_lost do not.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "already_decided",
//	  "message": "uid already decided"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/prosteam/invitegate/internal/domain"
	"github.com/prosteam/invitegate/internal/services"
	"github.com/prosteam/invitegate/internal/utils"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"
	ErrCodeTimeout      = "timeout"

	// Workflow-specific:
	ErrCodeInvalidUID       = "invalid_uid"
	ErrCodeInvalidRequester = "invalid_requester"
	ErrCodeInvalidDecision  = "invalid_decision"
	ErrCodeInvalidCursor    = "invalid_cursor"
	ErrCodeAlreadyDecided   = "already_decided"
	ErrCodeClaimLost        = "claim_lost"
	ErrCodeInviteFailed     = "invite_failed"
	ErrCodeNotifyFailed     = "notify_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// classify maps a service error to (status, code, message). Unknown errors
// become 500 without leaking their text.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrUIDFormatInvalid):
		return http.StatusBadRequest, ErrCodeInvalidUID, err.Error()
	case errors.Is(err, services.ErrRequesterInvalid):
		return http.StatusBadRequest, ErrCodeInvalidRequester, err.Error()
	case errors.Is(err, services.ErrUnknownDecision), errors.Is(err, domain.ErrUnknownDecision):
		return http.StatusBadRequest, ErrCodeInvalidDecision, domain.ErrUnknownDecision.Error()
	case errors.Is(err, utils.ErrBadCursor):
		return http.StatusBadRequest, ErrCodeInvalidCursor, err.Error()
	case errors.Is(err, services.ErrUIDUnknown):
		return http.StatusNotFound, ErrCodeNotFound, err.Error()
	case errors.Is(err, services.ErrAlreadyDecided):
		return http.StatusConflict, ErrCodeAlreadyDecided, err.Error()
	case errors.Is(err, services.ErrClaimLost):
		return http.StatusConflict, ErrCodeClaimLost, err.Error()
	case errors.Is(err, services.ErrInviteCreationFailed):
		return http.StatusBadGateway, ErrCodeInviteFailed, err.Error()
	case errors.Is(err, services.ErrNotifyFailed):
		return http.StatusBadGateway, ErrCodeNotifyFailed, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out"
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}
