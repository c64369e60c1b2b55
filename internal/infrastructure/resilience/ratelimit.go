package resilience

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/doeshing/filegate/internal/domain"
)

// Limiter throttles gated operation requests with a token bucket refilled
// at a per-minute rate.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter builds a limiter allowing perMinute requests sustained with
// the given burst.
func NewLimiter(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = domain.DefaultRatePerMinute
	}
	if burst <= 0 {
		burst = domain.DefaultRateBurst
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)}
}

// Allow consumes one token if available and reports whether the request may
// proceed.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Tokens reports the tokens currently available, for status output.
func (l *Limiter) Tokens() float64 {
	return l.bucket.Tokens()
}
