// Package ratelimit provides a fixed-window request counter: each key gets a
// quota per window, and the window restarts entirely once it expires.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of one admission check.
type Result struct {
	Allowed bool
	// Remaining requests in the current window, floored at zero.
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter keeps per-key windows in memory. Keys are never evicted; the map
// grows for the process lifetime, which is acceptable for periodic restarts.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewLimiter bootstraps an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Apply counts one request against key and reports whether it fits the quota.
func (l *Limiter) Apply(key string, maxRequests int, windowSize time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	existing, ok := l.windows[key]
	if !ok || !now.Before(existing.resetAt) {
		resetAt := now.Add(windowSize)
		l.windows[key] = &window{count: 1, resetAt: resetAt}
		return Result{Allowed: true, Remaining: maxRequests - 1, ResetAt: resetAt}
	}

	existing.count++
	remaining := maxRequests - existing.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   existing.count <= maxRequests,
		Remaining: remaining,
		ResetAt:   existing.resetAt,
	}
}
