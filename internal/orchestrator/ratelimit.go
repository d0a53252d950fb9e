package orchestrator

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClock wraps a Clock, passing every Sleep request through a
// token-bucket limiter before waking up. The fetcher's background mode
// wraps its clock in one, so every Sleep of the Background Download Loop
// is paced by the limiter on top of the backoff ladder's own fixed wait
// constants.
type RateLimitedClock struct {
	inner   Clock
	limiter *rate.Limiter
}

// NewRateLimitedClock builds a RateLimitedClock delegating timekeeping to
// inner and bounding the pace of repeated Sleep calls with limiter. A nil
// limiter makes this a passthrough to inner.
func NewRateLimitedClock(inner Clock, limiter *rate.Limiter) RateLimitedClock {
	if inner == nil {
		inner = SystemClock{}
	}

	return RateLimitedClock{inner: inner, limiter: limiter}
}

func (c RateLimitedClock) Sleep(ctx context.Context, d time.Duration) {
	if c.limiter != nil {
		_ = c.limiter.Wait(ctx)
	}

	c.inner.Sleep(ctx, d)
}

func (c RateLimitedClock) Now() time.Time {
	return c.inner.Now()
}
