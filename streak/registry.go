package streak

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edulane/streakd/store"
)

// Registry owns every live session in this process, keyed by user and
// session ID. It is the identity boundary: sign-out and shutdown tear
// sessions down here so pending minutes always get a forced flush.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store     store.Store
	validator *Validator
	scfg      SessionConfig
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewRegistry builds a Registry. scfg.HeartbeatTimeout guards the reaper;
// zero disables reaping.
func NewRegistry(st store.Store, v *Validator, scfg SessionConfig, log *zap.SugaredLogger) *Registry {
	return &Registry{
		sessions:  map[string]*Session{},
		store:     st,
		validator: v,
		scfg:      scfg,
		log:       log,
		now:       time.Now,
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

// Heartbeat applies a presence report for one of the user's sessions and
// returns the session ID (minted when the client did not send one, so it
// can echo it on subsequent heartbeats). Latest value wins: a heartbeat
// fully replaces whatever presence the session held before.
func (r *Registry) Heartbeat(userID, sessionID string, p Presence) string {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	key := sessionKey(userID, sessionID)

	if p == PresenceOffline {
		r.mu.Lock()
		sess := r.sessions[key]
		delete(r.sessions, key)
		r.mu.Unlock()
		if sess != nil {
			sess.Close()
		}
		return sessionID
	}

	r.mu.Lock()
	sess, ok := r.sessions[key]
	if !ok {
		sess = newSession(sessionID, userID, r.store, r.validator, r.scfg, r.log, r.now)
		sess.start()
		r.sessions[key] = sess
	}
	r.mu.Unlock()

	sess.SetPresence(p)
	return sessionID
}

// SignOut closes every session the user owns. Called on explicit logout
// and on identity switch; the JWT layer revokes the token separately.
func (r *Registry) SignOut(userID string) {
	prefix := userID + "/"
	r.mu.Lock()
	var closing []*Session
	for key, sess := range r.sessions {
		if strings.HasPrefix(key, prefix) {
			closing = append(closing, sess)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()
	for _, sess := range closing {
		sess.Close()
	}
	if len(closing) > 0 && r.log != nil {
		r.log.Infof("signed out user=%s sessions=%d", userID, len(closing))
	}
}

// ActiveSessions counts the user's live sessions in this process.
func (r *Registry) ActiveSessions(userID string) int {
	prefix := userID + "/"
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.sessions {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

// StopAll closes every session; wired into graceful shutdown so minutes
// still sitting in accumulators are flushed before the process exits.
func (r *Registry) StopAll() {
	r.mu.Lock()
	closing := make([]*Session, 0, len(r.sessions))
	for key, sess := range r.sessions {
		closing = append(closing, sess)
		delete(r.sessions, key)
	}
	r.mu.Unlock()
	for _, sess := range closing {
		sess.Close()
	}
	if r.log != nil {
		r.log.Infof("stopped %d live sessions", len(closing))
	}
}

// StartReaper launches a background sweep that closes sessions whose last
// heartbeat is older than the configured timeout — a killed tab never
// says goodbye. Returns a stop function.
func (r *Registry) StartReaper(interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Minute
	}
	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.reapStale()
			case <-stopCh:
				return
			}
		}
	}()
	return func() { close(stopCh) }
}

func (r *Registry) reapStale() {
	timeout := r.scfg.HeartbeatTimeout
	if timeout <= 0 {
		return
	}
	cutoff := r.now().Add(-timeout)
	r.mu.Lock()
	var stale []*Session
	for key, sess := range r.sessions {
		if sess.LastSeen().Before(cutoff) {
			stale = append(stale, sess)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()
	for _, sess := range stale {
		sess.Close()
		if r.log != nil {
			r.log.Infof("reaped stale session user=%s session=%s", sess.UserID, sess.ID)
		}
	}
}
