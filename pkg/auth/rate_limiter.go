package auth

import (
	"context"
	"sync"
	"time"
)

// SlidingWindowLimiter admits at most limit events per key within any
// window of windowSize. A limit of zero or less allows everything.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	events     map[string][]time.Time
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return NewSlidingWindowLimiterWithClock(limit, windowSize, time.Now)
}

// NewSlidingWindowLimiterWithClock creates a limiter that reads time from now
func NewSlidingWindowLimiterWithClock(limit int, windowSize time.Duration, now func() time.Time) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		events:     make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		now:        now,
	}
}

// Allow records an event for key and reports whether it fits in the window.
// Rejected events are not recorded.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	now := l.now()
	windowStart := now.Add(-l.windowSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	// timestamps are appended in order, so the expired ones form a prefix
	recent := l.events[key]
	expired := 0
	for expired < len(recent) && !recent[expired].After(windowStart) {
		expired++
	}
	recent = recent[expired:]

	if len(recent) >= l.limit {
		l.events[key] = recent
		return false, nil
	}

	l.events[key] = append(recent, now)
	return true, nil
}

// Reset forgets every event recorded for key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.events, key)
	return nil
}

// Limit returns the configured number of events per window
func (l *SlidingWindowLimiter) Limit() int {
	return l.limit
}

// IPRateLimiter limits REST requests per client address
type IPRateLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from an IP is allowed
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}
