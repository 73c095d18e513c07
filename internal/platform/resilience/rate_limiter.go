package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket. Allow consumes one token without
// blocking; Wait blocks until a token frees up or the context ends.
// The bucket starts full so short bursts pass before refill matters.
type RateLimiter struct {
	rate   float64 // tokens per second
	burst  int     // bucket size
	tokens float64
	last   time.Time
	now    func() time.Time
	mu     sync.Mutex
}

// NewRateLimiter creates a limiter admitting rate requests per second
// with the given burst capacity. Non-positive values fall back to 10/s
// and a burst matching the rate.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = int(rate)
		if burst < 1 {
			burst = 1
		}
	}

	now := time.Now
	return &RateLimiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		last:   now(),
		now:    now,
	}
}

// NewRateLimiterFromRPM creates a limiter from a per-minute budget,
// matching how HTTP rate limits are usually configured.
func NewRateLimiterFromRPM(requestsPerMinute, burst int) *RateLimiter {
	return NewRateLimiter(float64(requestsPerMinute)/60.0, burst)
}

// Allow reports whether a request may proceed, consuming one token.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}
		select {
		case <-time.After(rl.nextToken()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill credits tokens for the time elapsed since the last update.
// Caller must hold the lock.
func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
	if rl.tokens > float64(rl.burst) {
		rl.tokens = float64(rl.burst)
	}
	rl.last = now
}

// nextToken estimates how long until one full token is available, with
// a floor to avoid busy-waiting.
func (rl *RateLimiter) nextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	need := 1.0 - rl.tokens
	if need <= 0 {
		return time.Millisecond
	}
	wait := time.Duration(need / rl.rate * float64(time.Second))
	if wait < 10*time.Millisecond {
		wait = 10 * time.Millisecond
	}
	return wait
}

// Stats returns the configured rate, burst and currently available
// tokens.
func (rl *RateLimiter) Stats() (rate float64, burst int, availableTokens float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.rate, rl.burst, rl.tokens
}

// Reset refills the bucket to full capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = float64(rl.burst)
	rl.last = rl.now()
}
