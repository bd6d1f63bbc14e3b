package server

import (
	"sync"
	"time"
)

// Keys tracked before stale windows are pruned on the next miss. The API is
// keyed by client IP, so the map only grows with distinct callers.
const maxTrackedKeys = 10000

// rateLimiter is a fixed-window counter per client key. A lapsed window is
// reset lazily on the key's next request.
type rateLimiter struct {
	limit  int
	window time.Duration
	mu     sync.Mutex
	items  map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		items:  make(map[string]*rateLimitEntry),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.items[key]
	if entry == nil || now.Sub(entry.windowStart) > r.window {
		if entry == nil && len(r.items) >= maxTrackedKeys {
			r.pruneLocked(now)
		}
		entry = &rateLimitEntry{windowStart: now}
		r.items[key] = entry
	}

	if entry.count >= r.limit {
		return false
	}

	entry.count++
	return true
}

func (r *rateLimiter) pruneLocked(now time.Time) {
	for key, entry := range r.items {
		if now.Sub(entry.windowStart) > r.window {
			delete(r.items, key)
		}
	}
}
