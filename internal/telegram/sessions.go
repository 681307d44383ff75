package telegram

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Mode selects how a user's next free-text message is interpreted.
type Mode string

const (
	ModeNone    Mode = ""
	ModeUID     Mode = "uid"
	ModeInquiry Mode = "inquiry"
)

type session struct {
	mode     Mode
	lastSeen time.Time
	limiter  *rate.Limiter
}

// Sessions keeps per-user input mode and a token bucket for incoming
// messages. State is process-local and lost on restart; a user whose mode
// expired simply gets the /start hint again.
type Sessions struct {
	mu     sync.Mutex
	byUser map[int64]*session
	ttl    time.Duration
	limit  rate.Limit
	burst  int
	now    func() time.Time
}

// NewSessions returns a store whose entries expire after ttl of inactivity.
// A limit <= 0 disables per-user rate limiting.
func NewSessions(ttl time.Duration, limit rate.Limit, burst int) *Sessions {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Sessions{
		byUser: make(map[int64]*session),
		ttl:    ttl,
		limit:  limit,
		burst:  burst,
		now:    time.Now,
	}
}

// get returns the live entry for userID, creating or resetting it as needed.
// Caller holds mu.
func (s *Sessions) get(userID int64) *session {
	now := s.now()
	e, ok := s.byUser[userID]
	if !ok {
		e = &session{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.byUser[userID] = e
	} else if s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl {
		e.mode = ModeNone
	}
	e.lastSeen = now
	return e
}

// Mode returns the user's current mode.
func (s *Sessions) Mode(userID int64) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).mode
}

// SetMode switches the user's mode.
func (s *Sessions) SetMode(userID int64, m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).mode = m
}

// Reset clears the user's mode. The rate limiter is kept.
func (s *Sessions) Reset(userID int64) { s.SetMode(userID, ModeNone) }

// Allow reports whether the user may send another message now.
func (s *Sessions) Allow(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).limiter.AllowN(s.now(), 1)
}

// Sweep drops entries idle for longer than ttl and returns how many went.
func (s *Sessions) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, e := range s.byUser {
		if e.lastSeen.Before(cutoff) {
			delete(s.byUser, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked users.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep()
		}
	}
}
