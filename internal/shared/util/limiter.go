package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket gating how often expensive work may start.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows perSecond events on average with bursts of up to burst.
// A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{inner: rate.NewLimiter(limit, burst)}
}

func (l *Limiter) Allow() bool {
	return l.inner.AllowN(time.Now(), 1)
}

// Throttle takes one token, blocking until one is available. throttled
// reports whether the caller had to wait.
func (l *Limiter) Throttle(ctx context.Context) (throttled bool, err error) {
	if l.Allow() {
		return false, nil
	}
	return true, l.inner.Wait(ctx)
}
