package concurrency

import (
	"context"

	"golang.org/x/time/rate"
)

// NewRateLimiter builds a token-bucket limiter for the per-second task
// intake ceilings in spec §4.4 (analysis ≤ 1/s) and §4.5 (extraction ≤ 5/s).
// Burst equals the per-second rate so a worker can drain a short queue spike
// without stalling on the first task of a batch.
func NewRateLimiter(perSecond float64) *rate.Limiter {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Wait blocks until the limiter permits one event or ctx is canceled.
func Wait(ctx context.Context, l *rate.Limiter) error {
	return l.Wait(ctx)
}
