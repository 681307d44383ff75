package telegram

import (
	"errors"
	"strings"

	"github.com/prosteam/invitegate/internal/domain"
	"github.com/prosteam/invitegate/internal/services"
)

// Action is what a callback button asks the bot to do.
type Action int

const (
	ActionNone Action = iota
	ActionApprove
	ActionReject
	ActionMenu
)

const (
	prefixApprove = "appr:"
	prefixReject  = "rej:"
	prefixMenu    = "menu:"
)

// ErrBadCallback is returned for callback data the bot did not produce.
var ErrBadCallback = errors.New("unrecognized callback data")

// Command is decoded callback data. UID is set for approve/reject,
// Section for menu navigation.
type Command struct {
	Action  Action
	UID     string
	Section Section
}

// Decision maps approve/reject to the workflow decision.
func (c Command) Decision() (domain.Decision, bool) {
	switch c.Action {
	case ActionApprove:
		return domain.DecisionApprove, true
	case ActionReject:
		return domain.DecisionReject, true
	}
	return "", false
}

// Encode renders c as callback data. Telegram caps callback data at 64 bytes;
// the longest value produced here is "appr:" plus a 12 digit UID.
func (c Command) Encode() string {
	switch c.Action {
	case ActionApprove:
		return prefixApprove + c.UID
	case ActionReject:
		return prefixReject + c.UID
	case ActionMenu:
		return prefixMenu + string(c.Section)
	}
	return ""
}

// DecodeCallback parses callback data produced by Encode.
func DecodeCallback(data string) (Command, error) {
	switch {
	case strings.HasPrefix(data, prefixApprove):
		return decisionCommand(ActionApprove, strings.TrimPrefix(data, prefixApprove))
	case strings.HasPrefix(data, prefixReject):
		return decisionCommand(ActionReject, strings.TrimPrefix(data, prefixReject))
	case strings.HasPrefix(data, prefixMenu):
		sec := Section(strings.TrimPrefix(data, prefixMenu))
		if _, ok := findSection(sec); !ok {
			return Command{}, ErrBadCallback
		}
		return Command{Action: ActionMenu, Section: sec}, nil
	}
	return Command{}, ErrBadCallback
}

func decisionCommand(a Action, uid string) (Command, error) {
	if !services.ValidUID(uid) {
		return Command{}, ErrBadCallback
	}
	return Command{Action: a, UID: uid}, nil
}
