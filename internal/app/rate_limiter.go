package app

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitedError is returned when a user exceeds their request quota.
// Wait is how long until the next request would be allowed.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %ds", int(e.Wait.Seconds()))
}

// RateLimiter tracks per-user request timestamps over a sliding window.
// Reads and appends are guarded by a mutex so concurrent requests from
// the same user cannot lose updates.
type RateLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimiter creates a new sliding-window limiter
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:    make(map[string][]time.Time),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow records a request for the user if they are under quota and
// reports whether the request may proceed.
func (r *RateLimiter) Allow(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.requests[userID][:0]
	for _, t := range r.requests[userID] {
		if now.Sub(t) < r.window {
			kept = append(kept, t)
		}
	}
	r.requests[userID] = kept

	if len(kept) >= r.maxRequests {
		return false
	}

	r.requests[userID] = append(kept, now)
	return true
}

// TimeUntilAllowed returns how long the user must wait before their
// next request is accepted. Zero means no wait.
func (r *RateLimiter) TimeUntilAllowed(userID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.requests[userID]
	if len(entries) < r.maxRequests {
		return 0
	}

	remaining := r.window - r.now().Sub(entries[0])
	if remaining < 0 {
		return 0
	}
	return remaining
}
