package streak

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulane/streakd/store"
)

func registryFixture(t *testing.T) (*Registry, *store.MemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	clock := newFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local))
	r := NewRegistry(st, testValidator(st), SessionConfig{
		FlushThresholdMinutes: 5,
		MaxTickCreditMinutes:  5,
		HeartbeatTimeout:      3 * time.Minute,
	}, nil)
	r.now = clock.Now
	t.Cleanup(r.StopAll)
	return r, st, clock
}

func TestRegistryMintsSessionIDs(t *testing.T) {
	r, _, _ := registryFixture(t)

	sid := r.Heartbeat("u1", "", PresenceOnline)
	assert.NotEmpty(t, sid)

	// Echoing the ID reuses the session instead of starting another.
	assert.Equal(t, sid, r.Heartbeat("u1", sid, PresenceOnline))
	assert.Equal(t, 1, r.ActiveSessions("u1"))
}

func TestRegistryTracksSessionsPerTab(t *testing.T) {
	r, _, _ := registryFixture(t)

	a := r.Heartbeat("u1", "", PresenceOnline)
	b := r.Heartbeat("u1", "", PresenceOnline)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.ActiveSessions("u1"))
	assert.Equal(t, 0, r.ActiveSessions("u2"))
}

func TestRegistryConcurrentSessionsShareDailyTotal(t *testing.T) {
	r, st, clock := registryFixture(t)

	a := r.Heartbeat("u1", "", PresenceOnline)
	b := r.Heartbeat("u1", "", PresenceOnline)

	clock.Advance(6 * time.Minute)
	r.sessionFor(t, "u1", a).onTick()
	r.sessionFor(t, "u1", b).onTick()

	// Two tabs each commit their own minutes; the store adds them.
	minutes, err := st.GetDailyUsage(context.Background(), "u1", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, minutes)
}

func TestRegistryOfflineClosesSession(t *testing.T) {
	r, st, clock := registryFixture(t)

	sid := r.Heartbeat("u1", "", PresenceOnline)
	clock.Advance(2 * time.Minute)
	r.Heartbeat("u1", sid, PresenceOffline)

	assert.Equal(t, 0, r.ActiveSessions("u1"))
	minutes, err := st.GetDailyUsage(context.Background(), "u1", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, minutes, "offline forces the final flush")
}

func TestRegistrySignOutClosesAllSessions(t *testing.T) {
	r, st, clock := registryFixture(t)

	r.Heartbeat("u1", "", PresenceOnline)
	r.Heartbeat("u1", "", PresenceOnline)
	clock.Advance(time.Minute)
	r.SignOut("u1")

	assert.Equal(t, 0, r.ActiveSessions("u1"))
	rec, err := st.GetStreak(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, rec.LastLogoutAt)
}

func TestRegistryReapsStaleSessions(t *testing.T) {
	r, st, clock := registryFixture(t)

	r.Heartbeat("u1", "", PresenceOnline)

	// Heartbeats stop arriving; a killed tab never says goodbye.
	clock.Advance(4 * time.Minute)
	r.reapStale()

	assert.Equal(t, 0, r.ActiveSessions("u1"))
	minutes, err := st.GetDailyUsage(context.Background(), "u1", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, minutes, "reaping flushes what the tab accrued")
}

func TestRegistryStopAllFlushes(t *testing.T) {
	r, st, clock := registryFixture(t)

	r.Heartbeat("u1", "", PresenceOnline)
	r.Heartbeat("u2", "", PresenceOnline)
	clock.Advance(2 * time.Minute)
	r.StopAll()

	for _, user := range []string{"u1", "u2"} {
		minutes, err := st.GetDailyUsage(context.Background(), user, clock.Now())
		require.NoError(t, err)
		assert.Equal(t, 2, minutes)
	}
	assert.Equal(t, 0, r.ActiveSessions("u1"))
}

// sessionFor digs a live session out of the registry for direct tick
// driving in tests.
func (r *Registry) sessionFor(t *testing.T, userID, sessionID string) *Session {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionKey(userID, sessionID)]
	require.True(t, ok, "session %s/%s not found", userID, sessionID)
	return sess
}
