package oracle

import (
	"fmt"
	"sync"
	"time"
)

// GateStats counts what a CallGate has admitted and refused.
type GateStats struct {
	// Calls counts every attempt, refused ones included.
	Calls int
	// Refused counts attempts turned away by the budget or a pause.
	Refused int
	// Failures is the current run of consecutive failures.
	Failures int
	// Pauses counts how often the failure limit paused the oracle.
	Pauses int
}

// CallGate admits oracle calls for one normalization run. It enforces a call
// budget and pauses the oracle for a cooldown once maxFailures calls in a row
// have failed, so the remaining sheets fall back to local rules quickly. A
// nil gate admits everything. It is safe for concurrent use.
type CallGate struct {
	mu          sync.Mutex
	maxCalls    int
	maxFailures int
	cooldown    time.Duration
	stats       GateStats
	pausedUntil time.Time
	now         func() time.Time
}

// NewCallGate returns a gate; zero maxCalls or maxFailures disables that limit.
func NewCallGate(maxCalls, maxFailures int, cooldown time.Duration) *CallGate {
	return &CallGate{
		maxCalls:    maxCalls,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Acquire admits one call or returns an ErrUnavailable error naming why not.
func (g *CallGate) Acquire() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.Calls++
	if !g.pausedUntil.IsZero() && g.now().Before(g.pausedUntil) {
		g.stats.Refused++
		return fmt.Errorf("%w: paused after %d consecutive failures until %s",
			ErrUnavailable, g.stats.Failures, g.pausedUntil.Format(time.RFC3339))
	}
	if g.maxCalls > 0 && g.stats.Calls-g.stats.Refused > g.maxCalls {
		g.stats.Refused++
		return fmt.Errorf("%w: call budget of %d exhausted", ErrUnavailable, g.maxCalls)
	}
	return nil
}

// Record stores the outcome of an admitted call. It reports whether this
// failure paused the oracle.
func (g *CallGate) Record(err error) bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		g.stats.Failures = 0
		g.pausedUntil = time.Time{}
		return false
	}
	g.stats.Failures++
	if g.maxFailures <= 0 || g.stats.Failures < g.maxFailures {
		return false
	}
	g.pausedUntil = g.now().Add(g.cooldown)
	g.stats.Pauses++
	return true
}

// Stats returns a snapshot of the counters.
func (g *CallGate) Stats() GateStats {
	if g == nil {
		return GateStats{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// PausedUntil returns the end of the current pause, zero when not paused.
func (g *CallGate) PausedUntil() time.Time {
	if g == nil {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pausedUntil
}
