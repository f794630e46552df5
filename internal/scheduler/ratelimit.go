package scheduler

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between poll attempts per account,
// independent of tick granularity. Keys are account email addresses.
type RateLimiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// CanPoll returns true if the key has never polled or the minimum interval
// has elapsed since the last recorded attempt (boundary inclusive).
func (r *RateLimiter) CanPoll(key string, minInterval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.last[key]
	if !ok {
		return true
	}
	return r.now().Sub(last) >= minInterval
}

// RecordPoll stores the current instant as the key's last attempt.
func (r *RateLimiter) RecordPoll(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[key] = r.now()
}
