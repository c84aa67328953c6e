package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces outbound API calls with a sliding window: at most
// burst grants per window. The burst absorbs the tracked-symbol fan-out
// of one quote refresh; the window keeps the steady-state rate under the
// provider's free-tier quota.
type RateLimiter struct {
	mu     sync.Mutex
	burst  int
	window time.Duration
	grants []time.Time
}

func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		burst:  burst,
		window: window,
		grants: make([]time.Time, 0, burst),
	}
}

// Wait blocks until a grant is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.expireLocked(now)
		if len(r.grants) < r.burst {
			r.grants = append(r.grants, now)
			r.mu.Unlock()
			return nil
		}
		wait := r.window - now.Sub(r.grants[0])
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// expireLocked drops grants that have aged out of the window. Caller
// holds r.mu.
func (r *RateLimiter) expireLocked(now time.Time) {
	i := 0
	for i < len(r.grants) && now.Sub(r.grants[i]) >= r.window {
		i++
	}
	if i > 0 {
		r.grants = append(r.grants[:0], r.grants[i:]...)
	}
}
