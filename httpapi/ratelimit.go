package httpapi

import (
	"sync"
	"time"
)

// RateLimiter implements sliding-window-log rate limiting: each caller keeps
// a log of its own request timestamps, pruned to the trailing window on
// every call, and is admitted only while the pruned log's length is under
// limit. Unlike a fixed window, this never admits more than limit requests
// within any trailing window, including one straddling a window boundary.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests map[string][]time.Time
}

// NewRateLimiter builds a RateLimiter admitting up to limit requests within
// any trailing window, per caller id.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		requests: make(map[string][]time.Time),
	}
}

// prune drops callerID's timestamps older than now-window and returns the
// surviving log; caller must hold rl.mu.
func (rl *RateLimiter) prune(callerID string, now time.Time) []time.Time {
	log := rl.requests[callerID]
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(log) && log[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		log = log[i:]
	}
	rl.requests[callerID] = log
	return log
}

// Allow reports whether callerID may make another request now, recording
// the attempt in the sliding log only when admitted.
func (rl *RateLimiter) Allow(callerID string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	log := rl.prune(callerID, now)
	if len(log) >= rl.limit {
		return false
	}
	rl.requests[callerID] = append(log, now)
	return true
}

// RetryAfter reports the number of seconds until callerID's oldest in-window
// request ages out of the window, freeing a slot, used to populate the
// RateLimited envelope's retry_after_seconds field. Returns 0 when callerID
// is currently under limit.
func (rl *RateLimiter) RetryAfter(callerID string, now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	log := rl.prune(callerID, now)
	if len(log) < rl.limit {
		return 0
	}
	remaining := rl.window - now.Sub(log[0])
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}
