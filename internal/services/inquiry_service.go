// Package services – InquiryService
//
// This file implements InquiryService, which forwards a user's free-form 1:1
// inquiry to the operators' chat together with who sent it. Unlike the
// approval notifications, the forward is blocking: the user is only told the
// inquiry was received once it actually reached the operators.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prosteam/invitegate/internal/domain"
)

// maxInquiryRunes keeps the forwarded message, header included, under
// Telegram's 4096 character limit.
const maxInquiryRunes = 3800

// InquiryService forwards inquiries to the admin chat.
type InquiryService struct {
	Notifier    Notifier
	AdminChatID int64
	Timeout     time.Duration
	Now         func() time.Time

	logger zerolog.Logger
}

// NewInquiryService returns a service forwarding to adminChatID.
func NewInquiryService(n Notifier, adminChatID int64, timeout time.Duration) *InquiryService {
	return &InquiryService{
		Notifier:    n,
		AdminChatID: adminChatID,
		Timeout:     timeout,
		Now:         time.Now,
		logger:      log.With().Str("component", "inquiry").Logger(),
	}
}

// Forward validates text and delivers it to the admin chat.
func (s *InquiryService) Forward(ctx context.Context, r domain.Requester, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInquiry
	}
	if utf8.RuneCountInString(text) > maxInquiryRunes {
		return ErrInquiryTooLong
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	msg := inquiryText(r, text, now())

	_, err := boundedCall(ctx, s.Timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Notifier.Send(ctx, s.AdminChatID, msg)
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("requester_id", r.ID).Msg("inquiry forward failed")
		return err
	}
	s.logger.Info().Int64("requester_id", r.ID).Msg("inquiry forwarded")
	return nil
}
