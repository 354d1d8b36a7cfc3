// Package budget enforces a wall-clock ceiling on a processing run.
package budget

import (
	"context"
	"sync/atomic"
	"time"
)

// Default ceilings per run mode.
const (
	OutlineLimit = 10 * time.Second
	RankLimit    = 60 * time.Second
)

// Guard tracks elapsed time against a fixed limit. A zero or negative limit never expires.
// Once Exceeded has returned true, Tripped stays true.
type Guard struct {
	start   time.Time
	limit   time.Duration
	now     func() time.Time
	tripped atomic.Bool
}

// New starts a guard now.
func New(limit time.Duration) *Guard {
	return &Guard{start: time.Now(), limit: limit, now: time.Now}
}

// Elapsed is the time since the guard started.
func (g *Guard) Elapsed() time.Duration { return g.now().Sub(g.start) }

// Limit returns the configured ceiling.
func (g *Guard) Limit() time.Duration { return g.limit }

// Remaining is the time left before the ceiling, never negative.
func (g *Guard) Remaining() time.Duration {
	if g.limit <= 0 {
		return time.Duration(1<<63 - 1)
	}
	return max(g.limit-g.Elapsed(), 0)
}

// Exceeded reports whether the ceiling has been reached, and records it if so.
func (g *Guard) Exceeded() bool {
	if g.tripped.Load() {
		return true
	}
	if g.limit > 0 && g.Elapsed() >= g.limit {
		g.tripped.Store(true)
		return true
	}
	return false
}

// Tripped reports whether the budget was observed as spent at any point.
func (g *Guard) Tripped() bool { return g.tripped.Load() }

// Deadline is the instant the ceiling is reached.
func (g *Guard) Deadline() (time.Time, bool) {
	if g.limit <= 0 {
		return time.Time{}, false
	}
	return g.start.Add(g.limit), true
}

// Context derives a context cancelled at the deadline.
func (g *Guard) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if d, ok := g.Deadline(); ok {
		return context.WithDeadline(parent, d)
	}
	return context.WithCancel(parent)
}
