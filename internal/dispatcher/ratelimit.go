package dispatcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter caps how often the ingestion endpoint is called.
// It throttles; it never retries.
type RateLimiter struct {
	limiter *rate.Limiter

	// pause requested by the endpoint (429 Retry-After)
	pausedUntil time.Time
	mu          sync.Mutex
}

// NewRateLimiter creates a limiter allowing rps requests per second.
// rps <= 0 disables throttling.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	until := r.pausedUntil
	r.mu.Unlock()

	if d := time.Until(until); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// PauseFor holds back every request for d. A shorter pause never
// shortens one already in effect.
func (r *RateLimiter) PauseFor(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}
