package streak

import (
	"sync"
	"time"
)

const (
	// DefaultFlushThreshold is the minimum pending minutes before a
	// non-forced flush commits anything.
	DefaultFlushThreshold = 5
	// DefaultMaxTickCredit caps the minutes a single tick may credit, so
	// a laptop waking from sleep does not mint hours of activity.
	DefaultMaxTickCredit = 5
)

// Accumulator converts continuous online wall-clock time into whole
// committed minutes. The flush mark only ever advances by whole minutes,
// so sub-minute remainders carry into the next tick instead of being
// dropped. Safe for concurrent use.
type Accumulator struct {
	mu        sync.Mutex
	started   bool
	startedAt time.Time
	flushMark time.Time
	pending   int

	flushThreshold int
	maxTickCredit  int
}

// NewAccumulator builds an Accumulator; non-positive arguments fall back
// to the package defaults.
func NewAccumulator(flushThreshold, maxTickCredit int) *Accumulator {
	if flushThreshold <= 0 {
		flushThreshold = DefaultFlushThreshold
	}
	if maxTickCredit <= 0 {
		maxTickCredit = DefaultMaxTickCredit
	}
	return &Accumulator{flushThreshold: flushThreshold, maxTickCredit: maxTickCredit}
}

// Start begins a counting session at now. Calling Start on a running
// accumulator is a no-op; it must not reset the clock, or presence
// flicker would erase partially-elapsed minutes.
func (a *Accumulator) Start(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true
	a.startedAt = now
	a.flushMark = now
}

// Tick credits whole minutes elapsed since the flush mark and returns how
// many were credited. The full elapsed span is consumed even when the
// credit is clamped, so a clock jump is swallowed rather than paid out
// over subsequent ticks.
func (a *Accumulator) Tick(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return 0
	}
	elapsed := int(now.Sub(a.flushMark) / time.Minute)
	if elapsed <= 0 {
		return 0
	}
	credited := elapsed
	if credited > a.maxTickCredit {
		credited = a.maxTickCredit
	}
	a.flushMark = a.flushMark.Add(time.Duration(elapsed) * time.Minute)
	a.pending += credited
	return credited
}

// Flush drains pending minutes for the caller to commit. Without force it
// returns 0 until the pending total reaches the flush threshold.
func (a *Accumulator) Flush(force bool) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == 0 {
		return 0
	}
	if !force && a.pending < a.flushThreshold {
		return 0
	}
	n := a.pending
	a.pending = 0
	return n
}

// Stop performs a final tick then drains everything, ending the session.
// Stopping an already-stopped accumulator returns 0.
func (a *Accumulator) Stop(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return 0
	}
	elapsed := int(now.Sub(a.flushMark) / time.Minute)
	if elapsed > 0 {
		credited := elapsed
		if credited > a.maxTickCredit {
			credited = a.maxTickCredit
		}
		a.pending += credited
	}
	a.started = false
	n := a.pending
	a.pending = 0
	return n
}

// Pending reports minutes accumulated but not yet flushed.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Running reports whether a session is currently being counted.
func (a *Accumulator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}
