// Package services defines the business logic of the UID approval gate.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing text or HTTP status codes is performed at the
// transport layer (internal/telegram, internal/http/handlers).
package services

import "errors"

// Submission errors.
var (
	// ErrUIDFormatInvalid is returned when a UID is not 6-12 decimal digits.
	// Nothing is persisted; the submitter is shown UIDFormatPrompt.
	ErrUIDFormatInvalid = errors.New("uid must be 6-12 digits")

	// ErrRequesterInvalid is returned when the submitting user has no id or
	// no display name.
	ErrRequesterInvalid = errors.New("requester id and name are required")
)

// Decision errors.
var (
	// ErrUIDUnknown indicates a decision on a UID that was never submitted.
	ErrUIDUnknown = errors.New("uid not found")

	// ErrAlreadyDecided indicates the UID is decided or another decision is
	// in flight. Reported back to the actor as a no-op.
	ErrAlreadyDecided = errors.New("uid already decided")

	// ErrInviteCreationFailed is returned when the invite could not be minted
	// in time. The record is back to pending and the decision can be retried.
	ErrInviteCreationFailed = errors.New("invite creation failed")

	// ErrNotifyFailed is returned when the minted invite could not be
	// delivered. The record is back to pending; the invite is left to expire.
	ErrNotifyFailed = errors.New("invite delivery failed")

	// ErrClaimLost indicates the UID was resubmitted while the decision was
	// running, so the decision was not recorded.
	ErrClaimLost = errors.New("uid was resubmitted during the decision")

	// ErrUnknownDecision is returned for a decision other than approve/reject.
	ErrUnknownDecision = errors.New("unknown decision")
)

// Inquiry errors.
var (
	// ErrEmptyInquiry is returned when an inquiry has no text.
	ErrEmptyInquiry = errors.New("inquiry is empty")

	// ErrInquiryTooLong is returned when an inquiry exceeds the message limit.
	ErrInquiryTooLong = errors.New("inquiry too long")
)
