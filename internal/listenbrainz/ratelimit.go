package listenbrainz

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests from the server's own rate-limit headers.
// ListenBrainz reports X-RateLimit-Remaining and X-RateLimit-Reset-In on
// every response; when the budget is exhausted we sleep out the reset
// window instead of burning retries. A token bucket underneath keeps the
// steady-state request rate polite even while headers say there is room.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetAt   time.Time
	seen      bool

	bucket *rate.Limiter
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(perSecond), burst),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait blocks until the next request is allowed.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	var hold time.Duration
	if rl.seen && rl.remaining <= 0 {
		hold = rl.resetAt.Sub(rl.now())
	}
	rl.mu.Unlock()

	if hold > 0 {
		if err := rl.sleep(ctx, hold); err != nil {
			return err
		}
	}
	return rl.bucket.Wait(ctx)
}

// Observe updates the limiter from a response's rate-limit headers.
// Responses without the headers are ignored.
func (rl *RateLimiter) Observe(h http.Header) {
	rem, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetIn, err := strconv.Atoi(h.Get("X-RateLimit-Reset-In"))
	if err != nil {
		return
	}

	rl.mu.Lock()
	rl.remaining = rem
	rl.resetAt = rl.now().Add(time.Duration(resetIn) * time.Second)
	rl.seen = true
	rl.mu.Unlock()
}
