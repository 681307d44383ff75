package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prosteam/invitegate/internal/domain"
)

func TestDecodeCallback(t *testing.T) {
	tests := []struct {
		data string
		want Command
	}{
		{"appr:12345678", Command{Action: ActionApprove, UID: "12345678"}},
		{"rej:123456", Command{Action: ActionReject, UID: "123456"}},
		{"menu:faq", Command{Action: ActionMenu, Section: SectionFAQ}},
		{"menu:inquiry", Command{Action: ActionMenu, Section: SectionInquiry}},
	}
	for _, tt := range tests {
		got, err := DecodeCallback(tt.data)
		require.NoError(t, err, tt.data)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.data, got.Encode())
	}
}

func TestDecodeCallback_Rejects(t *testing.T) {
	for _, data := range []string{"", "join", "appr:", "appr:123", "rej:12345678x", "menu:", "menu:admin", "appr:1234567890123"} {
		_, err := DecodeCallback(data)
		assert.ErrorIs(t, err, ErrBadCallback, data)
	}
}

func TestCommand_Decision(t *testing.T) {
	d, ok := Command{Action: ActionApprove}.Decision()
	assert.True(t, ok)
	assert.Equal(t, domain.DecisionApprove, d)

	d, ok = Command{Action: ActionReject}.Decision()
	assert.True(t, ok)
	assert.Equal(t, domain.DecisionReject, d)

	_, ok = Command{Action: ActionMenu}.Decision()
	assert.False(t, ok)
	assert.Equal(t, "", Command{}.Encode())
}

func TestMainMenu_OrderAndData(t *testing.T) {
	got := callbackData(t, MainMenu())
	assert.Equal(t, []string{
		"menu:join", "menu:uid", "menu:record", "menu:faq", "menu:inquiry", "menu:benefit",
	}, got)
	for _, data := range got {
		assert.LessOrEqual(t, len(data), 64)
	}
}
