package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSessions_ModeLifecycle(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewSessions(10*time.Minute, 0, 0)
	s.now = clk.Now

	assert.Equal(t, ModeNone, s.Mode(1))
	s.SetMode(1, ModeUID)
	assert.Equal(t, ModeUID, s.Mode(1))
	assert.Equal(t, ModeNone, s.Mode(2), "modes are per user")

	clk.Advance(9 * time.Minute)
	assert.Equal(t, ModeUID, s.Mode(1), "access refreshes the idle timer")

	clk.Advance(11 * time.Minute)
	assert.Equal(t, ModeNone, s.Mode(1), "idle mode expires")

	s.SetMode(1, ModeInquiry)
	s.Reset(1)
	assert.Equal(t, ModeNone, s.Mode(1))
}

func TestSessions_Allow(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewSessions(time.Hour, 1, 2)
	s.now = clk.Now

	assert.True(t, s.Allow(1))
	assert.True(t, s.Allow(1))
	assert.False(t, s.Allow(1), "burst exhausted")
	assert.True(t, s.Allow(2), "other users unaffected")

	clk.Advance(time.Second)
	assert.True(t, s.Allow(1), "token refilled")
}

func TestSessions_AllowUnlimited(t *testing.T) {
	s := NewSessions(time.Hour, 0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, s.Allow(1))
	}
}

func TestSessions_Sweep(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewSessions(time.Minute, 0, 0)
	s.now = clk.Now

	s.SetMode(1, ModeUID)
	clk.Advance(30 * time.Second)
	s.SetMode(2, ModeInquiry)
	clk.Advance(45 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, ModeInquiry, s.Mode(2))
}

func TestSessions_RunStopsOnCancel(t *testing.T) {
	s := NewSessions(time.Minute, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
