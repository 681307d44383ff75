// Package telegram is the Telegram transport of the gate: a thin client that
// implements the workflow's InviteIssuer, Notifier and AdminChannel on top of
// the Bot API, and a long-polling Bot that routes user and operator updates
// into the workflow.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prosteam/invitegate/internal/domain"
)

// ErrRecipientUnreachable is returned when Telegram refuses delivery because
// the user blocked the bot or never opened a chat with it.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// botAPI is the subset of *tgbotapi.BotAPI used by Client.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client adapts the Bot API to the workflow collaborators.
type Client struct {
	api    botAPI
	now    func() time.Time
	logger zerolog.Logger
}

// NewClient wraps api, usually a *tgbotapi.BotAPI.
func NewClient(api botAPI) *Client {
	return &Client{
		api:    api,
		now:    time.Now,
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// Send delivers text to a user or chat.
func (c *Client) Send(ctx context.Context, to int64, text string) error {
	msg := tgbotapi.NewMessage(to, text)
	msg.DisableWebPagePreview = true
	return c.send(ctx, msg)
}

// CreateSingleUseInvite mints an invite link to groupID that expires after
// expiry and admits at most usageLimit joins. The bot must be an admin of the
// group with the "invite users" right.
func (c *Client) CreateSingleUseInvite(ctx context.Context, groupID int64, expiry time.Duration, usageLimit int) (*domain.Invite, error) {
	expiresAt := c.now().Add(expiry).Truncate(time.Second)
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: groupID},
		ExpireDate:  int(expiresAt.Unix()),
		MemberLimit: usageLimit,
	}
	resp, err := await(ctx, func() (*tgbotapi.APIResponse, error) { return c.api.Request(cfg) })
	if err != nil {
		return nil, err
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return nil, fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return nil, errors.New("telegram returned an empty invite link")
	}
	if link.ExpireDate > 0 {
		expiresAt = time.Unix(int64(link.ExpireDate), 0)
	}
	return &domain.Invite{URL: link.InviteLink, ExpiresAt: expiresAt}, nil
}

// PostReview posts the review card for s with approve/reject buttons.
func (c *Client) PostReview(ctx context.Context, chatID int64, s domain.Submission) error {
	msg := tgbotapi.NewMessage(chatID, reviewText(s))
	msg.ReplyMarkup = reviewKeyboard(s.UID)
	return c.send(ctx, msg)
}

// sendMenu posts text with the main menu attached.
func (c *Client) sendMenu(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = MainMenu()
	msg.DisableWebPagePreview = true
	return c.send(ctx, msg)
}

// editMenu replaces a menu message in place.
func (c *Client) editMenu(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, MainMenu())
	edit.DisableWebPagePreview = true
	return c.request(ctx, edit)
}

// editCard rewrites a review card and drops its buttons.
func (c *Client) editCard(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.request(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text))
}

// answer acknowledges a callback query; alert shows a modal instead of a toast.
func (c *Client) answer(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	return c.request(ctx, cb)
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable) error {
	_, err := await(ctx, func() (tgbotapi.Message, error) { return c.api.Send(msg) })
	return err
}

func (c *Client) request(ctx context.Context, req tgbotapi.Chattable) error {
	_, err := await(ctx, func() (*tgbotapi.APIResponse, error) { return c.api.Request(req) })
	return err
}

// await runs a blocking Bot API call and returns when it finishes or ctx is
// done, whichever comes first. The Bot API takes no context, so an abandoned
// call runs on until the HTTP client's own timeout ends it.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, classify(r.err)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// classify maps Bot API errors onto sentinel errors the workflow can log.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if code, msg, ok := apiError(err); ok && code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrRecipientUnreachable, msg)
	}
	return err
}

func apiError(err error) (int, string, bool) {
	var p *tgbotapi.Error
	if errors.As(err, &p) {
		return p.Code, p.Message, true
	}
	var v tgbotapi.Error
	if errors.As(err, &v) {
		return v.Code, v.Message, true
	}
	return 0, "", false
}

func reviewText(s domain.Submission) string {
	return fmt.Sprintf(
		"✅ [UID submitted]\n\nTime: %s UTC\nUser: %s\nUser link: tg://user?id=%d\nUserID: %d\nUID: %s",
		s.SubmittedAt.UTC().Format("2006-01-02 15:04"), s.Requester().Mention(), s.RequesterID, s.RequesterID, s.UID,
	)
}
