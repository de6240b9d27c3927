package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	rateLimitEntryTTL = 15 * time.Minute
	rateLimitCleanup  = 5 * time.Minute
)

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client key. A nil limiter allows
// everything.
type rateLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	entries     map[string]*rateLimitEntry
	lastCleanup time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:       rate.Limit(perSecond),
		burst:       burst,
		entries:     make(map[string]*rateLimitEntry),
		lastCleanup: time.Now(),
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || key == "" {
		return true
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastCleanup) >= rateLimitCleanup {
		for k, entry := range r.entries {
			if now.Sub(entry.lastSeen) > rateLimitEntryTTL {
				delete(r.entries, k)
			}
		}
		r.lastCleanup = now
	}

	entry, ok := r.entries[key]
	if !ok {
		entry = &rateLimitEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}
