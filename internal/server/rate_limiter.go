package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window in-process counter for endpoints that
// need cheap abuse protection without a shared backend. Windows reset
// wholesale; precision at the boundary is not a goal.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration

	windowStart time.Time
	counts      map[string]int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]int),
	}
}

func (r *rateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.windowStart) >= r.window {
		r.windowStart = now
		r.counts = make(map[string]int)
	}

	if r.counts[key] >= r.limit {
		return false
	}
	r.counts[key]++
	return true
}
