package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimitedClock_DelegatesSleepToInner(t *testing.T) {
	inner := &fakeClock{}
	limiter := rate.NewLimiter(rate.Inf, 1)

	c := NewRateLimitedClock(inner, limiter)
	c.Sleep(context.Background(), 42*time.Millisecond)

	assert.Equal(t, []time.Duration{42 * time.Millisecond}, inner.slept)
}

func TestRateLimitedClock_NilInnerDefaultsToSystemClock(t *testing.T) {
	c := NewRateLimitedClock(nil, nil)

	assert.IsType(t, SystemClock{}, c.inner)
}
