package utils

import (
	"context"
	"sync"
	"time"
)

type presenceEntry struct {
	state     string
	expiresAt time.Time
}

var (
	presenceStore   = map[string]presenceEntry{}
	presenceStoreMu sync.Mutex
)

// MarkPresence records a user's latest presence state with a TTL so a
// user whose client vanishes decays to unknown. Prefers Redis so other
// replicas and operators can see liveness; falls back to in-memory.
func MarkPresence(userID, state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "presence:"+userID, state, ttl).Err(); err == nil {
			return
		}
	}
	presenceStoreMu.Lock()
	presenceStore[userID] = presenceEntry{state: state, expiresAt: time.Now().Add(ttl)}
	presenceStoreMu.Unlock()
}

// PresenceOf returns the last reported presence state, or "" when the
// user has not been seen within the TTL window.
func PresenceOf(userID string) string {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.Get(ctx, "presence:"+userID).Result(); err == nil {
			return v
		}
	}
	presenceStoreMu.Lock()
	entry, ok := presenceStore[userID]
	presenceStoreMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return ""
	}
	return entry.state
}
