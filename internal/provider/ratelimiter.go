package provider

import (
	"context"
	"sync"
	"time"
)

// finnhubCallsPerMinute is the free-tier quota for the REST API.
const finnhubCallsPerMinute = 60

// RateLimiter is a token bucket shared by every call a provider makes.
// It starts full, so short bursts after idle periods are not delayed.
type RateLimiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	lastRefill     time.Time
}

// NewRateLimiter allows bursts of maxTokens and adds one token every refillInterval.
func NewRateLimiter(maxTokens int, refillInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

// NewPerMinuteLimiter spreads perMinute calls evenly over a minute.
func NewPerMinuteLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = finnhubCallsPerMinute
	}
	return NewRateLimiter(perMinute, time.Minute/time.Duration(perMinute))
}

// Wait takes a token, sleeping until the next refill when the bucket is empty.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.refill(now)
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		delay := r.refillInterval - now.Sub(r.lastRefill)
		r.mu.Unlock()

		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available reports how many calls can be made right now without waiting.
func (r *RateLimiter) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill(time.Now())
	return r.tokens
}

func (r *RateLimiter) refill(now time.Time) {
	newTokens := int(now.Sub(r.lastRefill) / r.refillInterval)
	if newTokens <= 0 {
		return
	}
	r.tokens += newTokens
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = r.lastRefill.Add(time.Duration(newTokens) * r.refillInterval)
}
