package core

import (
	"sync"
	"time"
)

const (
	// DefaultLimiterMax is how many messages fit in one window before
	// throttling starts.
	DefaultLimiterMax = 5
	// DefaultLimiterWindow is the length of the counting window.
	DefaultLimiterWindow = 5 * time.Second
)

// Limiter tracks message volume for a single session inside a fixed
// window. It never fails, it only classifies.
//
// The window start does not slide while a sender floods: the counter is
// only reset once an Observe call arrives more than a full window after
// the window began. A continuously flooding sender therefore stays
// throttled until it pauses.
type Limiter struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	windowStart time.Time
	count       int
}

// NewLimiter builds a limiter allowing max messages per window.
// Non-positive arguments fall back to the defaults.
func NewLimiter(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultLimiterMax
	}
	if window <= 0 {
		window = DefaultLimiterWindow
	}
	return &Limiter{max: max, window: window}
}

// Observe records one send attempt at the given instant and reports
// whether it is allowed. The check runs before the increment, so with
// max=5 the first throttled message is the 7th inside a window, not the
// 6th. The counter keeps growing while throttled; only window expiry
// resets it.
func (l *Limiter) Observe(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.windowStart) > l.window {
		l.windowStart = now
		l.count = 0
	}

	allowed := l.count <= l.max
	l.count++
	return allowed
}
