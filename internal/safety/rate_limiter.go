package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	capacity   float64 // Maximum number of tokens
	tokens     float64
	refillRate float64 // Tokens added per second
	lastRefill time.Time
	mutex      sync.Mutex
	name       string
	now        func() time.Time
}

// NewRateLimiter creates a limiter that starts with a full bucket
func NewRateLimiter(name string, capacity int, refillRate float64) *RateLimiter {
	return &RateLimiter{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		name:       name,
		now:        time.Now,
	}
}

// Name identifies the limiter in logs
func (rl *RateLimiter) Name() string { return rl.name }

// Allow checks if an operation is allowed under the rate limit
func (rl *RateLimiter) Allow() bool {
	ok, _ := rl.reserve()
	return ok
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		ok, wait := rl.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available, otherwise reports how long until the next one
func (rl *RateLimiter) reserve() (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.refillRate)
		rl.lastRefill = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}
	if rl.refillRate <= 0 {
		return false, time.Second
	}
	missing := 1 - rl.tokens
	return false, time.Duration(missing / rl.refillRate * float64(time.Second))
}
