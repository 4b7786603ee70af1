package streak

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edulane/streakd/models"
	"github.com/edulane/streakd/store"
)

// Presence is the client-reported activity state. The engine only reacts
// to transitions; how a client decides it is online or idle is its own
// business.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceIdle    Presence = "idle"
	PresenceOffline Presence = "offline"
)

// ParsePresence maps a wire string onto a Presence value.
func ParsePresence(s string) (Presence, bool) {
	switch Presence(s) {
	case PresenceOnline, PresenceIdle, PresenceOffline:
		return Presence(s), true
	default:
		return "", false
	}
}

// commitTimeout bounds every store call made from timer callbacks so a
// slow database cannot back up the session loop.
const commitTimeout = 5 * time.Second

// SessionConfig tunes per-session accounting.
type SessionConfig struct {
	FlushThresholdMinutes int
	MaxTickCreditMinutes  int
	// HeartbeatTimeout is how long a session may go without a heartbeat
	// before the reaper treats it as gone offline.
	HeartbeatTimeout time.Duration
}

// Session drives the accumulator and daily validation for one live client
// session (one browser tab, one app instance). A user may own several at
// once; multi-session correctness comes from the store's additive
// commits, not from coordination between sessions.
type Session struct {
	ID     string
	UserID string

	store     store.Store
	validator *Validator
	acc       *Accumulator
	log       *zap.SugaredLogger
	now       func() time.Time

	mu       sync.Mutex
	presence Presence
	lastSeen time.Time
	closed   bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func newSession(id, userID string, st store.Store, v *Validator, cfg SessionConfig, log *zap.SugaredLogger, now func() time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		store:     st,
		validator: v,
		acc:       NewAccumulator(cfg.FlushThresholdMinutes, cfg.MaxTickCreditMinutes),
		log:       log,
		now:       now,
		lastSeen:  now(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// start launches the timer loop: a minute ticker for tick+flush and a
// drift-corrected local-midnight timer for the day boundary.
func (s *Session) start() {
	go s.run()
}

func (s *Session) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	midnight := time.NewTimer(untilNextMidnight(s.now()))
	defer midnight.Stop()
	for {
		select {
		case <-ticker.C:
			s.onTick()
		case <-midnight.C:
			s.onMidnight()
			// Recompute rather than using a fixed 24h interval, so timer
			// drift and DST shifts cannot skew the boundary.
			midnight.Reset(untilNextMidnight(s.now()))
		case <-s.stopCh:
			return
		}
	}
}

// untilNextMidnight returns the duration from now to the next local
// midnight after now.
func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	d := next.Sub(now)
	if d <= 0 {
		d = time.Second
	}
	return d
}

// SetPresence applies a client-reported presence transition.
func (s *Session) SetPresence(p Presence) {
	now := s.now()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.presence
	s.presence = p
	s.lastSeen = now
	s.mu.Unlock()

	switch {
	case p == PresenceOnline && prev != PresenceOnline:
		s.resume(now)
	case p != PresenceOnline && prev == PresenceOnline:
		s.pause(now)
	}
}

// resume is the entering-online path: start counting, judge the day, then
// stamp the login time.
func (s *Session) resume(now time.Time) {
	s.acc.Start(now)
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if _, err := s.validator.ValidateDaily(ctx, s.UserID, now); err != nil {
		if s.log != nil {
			s.log.Errorf("daily validation failed user=%s err=%v", s.UserID, err)
		}
	}
	s.markBoundary(func(rec *models.StreakRecord) { rec.LastLoginAt = &now })
}

// pause is the leaving-online path: final tick, forced flush, stamp the
// logout time. No minutes survive in the accumulator afterwards.
func (s *Session) pause(now time.Time) {
	if n := s.acc.Stop(now); n > 0 {
		s.commit(now, n)
	}
	s.markBoundary(func(rec *models.StreakRecord) { rec.LastLogoutAt = &now })
}

// onTick runs once a minute while the loop is alive. Only an online
// session accrues minutes; idle sessions just sit on their timers.
func (s *Session) onTick() {
	now := s.now()
	s.mu.Lock()
	online := s.presence == PresenceOnline && !s.closed
	s.mu.Unlock()
	if !online {
		return
	}
	s.acc.Tick(now)
	if n := s.acc.Flush(false); n > 0 {
		s.commit(now, n)
	}
}

// onMidnight judges the day that just ended, whatever the presence state,
// so a user active right up to the boundary gets credited.
func (s *Session) onMidnight() {
	now := s.now()
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if _, err := s.validator.ValidateDaily(ctx, s.UserID, now); err != nil {
		if s.log != nil {
			s.log.Errorf("midnight validation failed user=%s err=%v", s.UserID, err)
		}
	}
}

// commit persists drained minutes. Failures are logged and the minutes
// dropped; the next flush simply adds more on top, and an under-count is
// the accepted degradation here.
func (s *Session) commit(now time.Time, minutes int) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := s.store.CommitMinutes(ctx, s.UserID, now, minutes); err != nil {
		if s.log != nil {
			s.log.Warnf("minute commit dropped user=%s minutes=%d err=%v", s.UserID, minutes, err)
		}
	}
}

// markBoundary stamps informational session-boundary fields. The record
// may not exist yet when a session pauses before its first validation;
// that NotFound is harmless and only logged at debug.
func (s *Session) markBoundary(mut func(rec *models.StreakRecord)) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if _, err := s.store.UpdateStreak(ctx, s.UserID, func(rec *models.StreakRecord) error {
		mut(rec)
		return nil
	}); err != nil && s.log != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Debugf("session boundary before first validation user=%s", s.UserID)
		} else {
			s.log.Warnf("session boundary update failed user=%s err=%v", s.UserID, err)
		}
	}
}

// LastSeen reports when the session last received a heartbeat.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Presence reports the session's current presence state.
func (s *Session) Presence() Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

// Close tears the session down: if it was online it pauses first (forced
// flush, logout stamp), then the timer loop is stopped. Idempotent.
func (s *Session) Close() {
	now := s.now()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	wasOnline := s.presence == PresenceOnline
	s.mu.Unlock()

	if wasOnline {
		s.pause(now)
	} else if n := s.acc.Stop(now); n > 0 {
		s.commit(now, n)
	}
	close(s.stopCh)
	<-s.doneCh
}
