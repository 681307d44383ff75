package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/prosteam/invitegate/internal/domain"
	"github.com/prosteam/invitegate/internal/services"
)

// Workflow is the part of services.ApprovalWorkflow the bot drives.
type Workflow interface {
	HandleSubmission(ctx context.Context, uid string, r domain.Requester) (*domain.Submission, error)
	HandleDecision(ctx context.Context, uid string, decision domain.Decision, actorID int64) (*services.DecisionOutcome, error)
	ListPending(ctx context.Context, limit int, before *domain.Cursor) ([]domain.Submission, error)
}

// Inquirer forwards 1:1 inquiries.
type Inquirer interface {
	Forward(ctx context.Context, r domain.Requester, text string) error
}

// UpdateSource delivers updates; *tgbotapi.BotAPI implements it.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotConfig tunes the update loop.
type BotConfig struct {
	AdminChatID int64
	Workers     int           // concurrent update handlers
	PollTimeout time.Duration // long-poll timeout
	SessionTTL  time.Duration // idle time before a user's mode is forgotten
	UserRate    rate.Limit    // messages per second per user, <= 0 disables
	UserBurst   int
}

// Bot routes Telegram updates to the workflow.
type Bot struct {
	client   *Client
	updates  UpdateSource
	wf       Workflow
	inq      Inquirer
	sessions *Sessions
	cfg      BotConfig
	logger   zerolog.Logger
}

// NewBot wires a bot. Zero config values fall back to 8 workers, a 60s poll
// and a 30m session TTL.
func NewBot(client *Client, updates UpdateSource, wf Workflow, inq Inquirer, cfg BotConfig) *Bot {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	return &Bot{
		client:   client,
		updates:  updates,
		wf:       wf,
		inq:      inq,
		sessions: NewSessions(cfg.SessionTTL, cfg.UserRate, cfg.UserBurst),
		cfg:      cfg,
		logger:   log.With().Str("component", "bot").Logger(),
	}
}

// Sessions exposes the per-user session store.
func (b *Bot) Sessions() *Sessions { return b.sessions }

// Run long-polls until ctx is cancelled, handling up to Workers updates at a
// time, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.cfg.PollTimeout / time.Second)
	updates := b.updates.GetUpdatesChan(u)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		_ = b.sessions.Run(sweepCtx, b.cfg.SessionTTL/2)
	}()

	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)

	b.logger.Info().Int("workers", b.cfg.Workers).Msg("bot polling started")
	defer func() {
		stopSweep()
		<-sweepDone
		b.logger.Info().Msg("bot polling stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			b.updates.StopReceivingUpdates()
			return g.Wait()
		case upd, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				b.HandleUpdate(ctx, upd)
				return nil
			})
		}
	}
}

// HandleUpdate processes a single update. Failures are logged and, where
// there is someone to tell, reported back in chat.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error().Interface("panic", rec).Int("update_id", upd.UpdateID).Msg("update handler panicked")
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil && upd.Message.Chat != nil && upd.Message.Chat.IsPrivate():
		b.handleText(ctx, upd.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil {
		return
	}
	chatID := m.Chat.ID
	switch m.Command() {
	case "start":
		if m.From != nil {
			b.sessions.Reset(m.From.ID)
		}
		b.reply(ctx, chatID, "start", startText, true)
	case "pending":
		if chatID != b.cfg.AdminChatID {
			b.reply(ctx, chatID, "pending", defaultReplyText, false)
			return
		}
		b.reply(ctx, chatID, "pending", b.pendingText(ctx), false)
	default:
		if m.Chat.IsPrivate() {
			b.reply(ctx, chatID, m.Command(), defaultReplyText, false)
		}
	}
}

func (b *Bot) handleText(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil {
		return
	}
	userID := m.From.ID
	if !b.sessions.Allow(userID) {
		b.reply(ctx, m.Chat.ID, "rate_limited", slowDownText, false)
		return
	}

	text := strings.TrimSpace(m.Text)
	r := requesterOf(m.From)

	switch b.sessions.Mode(userID) {
	case ModeUID:
		uid, ok := services.ExtractUID(text)
		if !ok {
			b.reply(ctx, m.Chat.ID, "uid_prompt", services.UIDFormatPrompt, false)
			return
		}
		_, err := b.wf.HandleSubmission(ctx, uid, r)
		switch {
		case errors.Is(err, services.ErrUIDFormatInvalid):
			b.reply(ctx, m.Chat.ID, "uid_prompt", services.UIDFormatPrompt, false)
		case err != nil:
			b.logger.Error().Err(err).Int64("user_id", userID).Str("uid", uid).Msg("submission failed")
			b.reply(ctx, m.Chat.ID, "submission_error", tryLaterText, false)
		default:
			// The acknowledgement is sent by the workflow.
			b.sessions.Reset(userID)
		}

	case ModeInquiry:
		err := b.inq.Forward(ctx, r, text)
		switch {
		case errors.Is(err, services.ErrEmptyInquiry):
			b.reply(ctx, m.Chat.ID, "inquiry_empty", inquiryEmpty, false)
		case errors.Is(err, services.ErrInquiryTooLong):
			b.reply(ctx, m.Chat.ID, "inquiry_too_long", inquiryTooLong, false)
		case err != nil:
			b.reply(ctx, m.Chat.ID, "inquiry_error", tryLaterText, false)
		default:
			b.sessions.Reset(userID)
			b.reply(ctx, m.Chat.ID, "inquiry_ack", inquiryAckText, false)
		}

	default:
		b.reply(ctx, m.Chat.ID, "default", defaultReplyText, false)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	cmd, err := DecodeCallback(cq.Data)
	if err != nil {
		b.answer(ctx, cq, staleButtonText, false)
		return
	}

	if cmd.Action == ActionMenu {
		b.openSection(ctx, cq, cmd.Section)
		return
	}

	if cq.Message == nil || cq.Message.Chat == nil || cq.Message.Chat.ID != b.cfg.AdminChatID {
		b.answer(ctx, cq, adminOnlyText, true)
		return
	}
	decision, _ := cmd.Decision()
	out, err := b.wf.HandleDecision(ctx, cmd.UID, decision, cq.From.ID)

	lg := b.logger.With().Str("uid", cmd.UID).Str("decision", string(decision)).Int64("actor_id", cq.From.ID).Logger()
	switch {
	case err == nil:
		b.answer(ctx, cq, fmt.Sprintf("UID %s %s.", cmd.UID, out.Status), false)
		b.annotateCard(ctx, cq, out)
	case errors.Is(err, services.ErrAlreadyDecided):
		b.answer(ctx, cq, fmt.Sprintf("UID %s is already decided or being decided.", cmd.UID), true)
	case errors.Is(err, services.ErrUIDUnknown):
		b.answer(ctx, cq, fmt.Sprintf("UID %s is unknown.", cmd.UID), true)
	case errors.Is(err, services.ErrInviteCreationFailed):
		lg.Warn().Err(err).Msg("approve failed")
		b.answer(ctx, cq, "Could not create the invite link. The UID is still pending; check the bot's admin rights and retry.", true)
	case errors.Is(err, services.ErrNotifyFailed):
		lg.Warn().Err(err).Msg("approve failed")
		b.answer(ctx, cq, "The invite could not be delivered (the user may have blocked the bot). The UID is still pending.", true)
	case errors.Is(err, services.ErrClaimLost):
		b.answer(ctx, cq, fmt.Sprintf("UID %s was resubmitted meanwhile. Review the new card.", cmd.UID), true)
	default:
		lg.Error().Err(err).Msg("decision failed")
		b.answer(ctx, cq, "Decision failed. Please retry.", true)
	}
}

func (b *Bot) openSection(ctx context.Context, cq *tgbotapi.CallbackQuery, sec Section) {
	e, _ := findSection(sec)
	b.sessions.SetMode(cq.From.ID, e.mode)
	b.answer(ctx, cq, "", false)
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	if err := b.client.editMenu(ctx, cq.Message.Chat.ID, cq.Message.MessageID, e.text); err != nil {
		b.logger.Warn().Err(err).Str("section", string(sec)).Msg("menu edit failed")
	}
}

// annotateCard rewrites the review card with the verdict so other operators
// see it was handled. The buttons are dropped by the edit.
func (b *Bot) annotateCard(ctx context.Context, cq *tgbotapi.CallbackQuery, out *services.DecisionOutcome) {
	verdict := "✅ Approved"
	if out.Status == domain.StatusRejected {
		verdict = "❌ Rejected"
	}
	text := fmt.Sprintf("%s\n\n%s by %s at %s UTC",
		reviewText(out.Submission), verdict, actorName(cq.From), time.Now().UTC().Format("2006-01-02 15:04"))
	if out.Invite != nil {
		text += fmt.Sprintf("\nInvite expires %s UTC", out.Invite.ExpiresAt.UTC().Format("2006-01-02 15:04"))
	}
	if err := b.client.editCard(ctx, cq.Message.Chat.ID, cq.Message.MessageID, text); err != nil {
		b.logger.Warn().Err(err).Str("uid", out.UID).Msg("review card edit failed")
	}
}

func (b *Bot) pendingText(ctx context.Context) string {
	items, err := b.wf.ListPending(ctx, 20, nil)
	if err != nil {
		b.logger.Error().Err(err).Msg("list pending failed")
		return tryLaterText
	}
	if len(items) == 0 {
		return noPendingText
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "⏳ Pending UIDs (%d shown)\n", len(items))
	for _, s := range items {
		fmt.Fprintf(&sb, "\n• %s · %s · %s UTC", s.UID, s.Requester().Mention(), s.SubmittedAt.UTC().Format("01-02 15:04"))
	}
	return sb.String()
}

func (b *Bot) reply(ctx context.Context, chatID int64, what, text string, withMenu bool) {
	var err error
	if withMenu {
		err = b.client.sendMenu(ctx, chatID, text)
	} else {
		err = b.client.Send(ctx, chatID, text)
	}
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Str("reply", what).Msg("reply failed")
	}
}

func (b *Bot) answer(ctx context.Context, cq *tgbotapi.CallbackQuery, text string, alert bool) {
	if err := b.client.answer(ctx, cq.ID, text, alert); err != nil {
		b.logger.Debug().Err(err).Msg("callback answer failed")
	}
}

func requesterOf(u *tgbotapi.User) domain.Requester {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return domain.Requester{ID: u.ID, Handle: u.UserName, Name: name}
}

func actorName(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return requesterOf(u).Name
}
