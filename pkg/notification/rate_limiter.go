package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// TokenBucketRateLimiter implements token bucket rate limiting
type TokenBucketRateLimiter struct {
	capacity   int
	tokens     int
	refillRate time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// Ensure TokenBucketRateLimiter implements RateLimiter
var _ interfaces.RateLimiter = (*TokenBucketRateLimiter)(nil)

// NewTokenBucketRateLimiter creates a limiter holding capacity tokens and
// regaining one token per refillRate.
func NewTokenBucketRateLimiter(capacity int, refillRate time.Duration) *TokenBucketRateLimiter {
	return newTokenBucketRateLimiter(capacity, refillRate, time.Now)
}

func newTokenBucketRateLimiter(capacity int, refillRate time.Duration, now func() time.Time) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow checks if a request is allowed under the rate limit
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.refillRate > 0 {
		now := tb.now()
		tokensToAdd := int(now.Sub(tb.lastRefill) / tb.refillRate)
		if tokensToAdd > 0 {
			tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
			tb.lastRefill = tb.lastRefill.Add(time.Duration(tokensToAdd) * tb.refillRate)
		}
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Reset resets the rate limiter to full capacity
func (tb *TokenBucketRateLimiter) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}
