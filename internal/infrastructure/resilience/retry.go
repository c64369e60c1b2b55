package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/ports"
)

// Policy is an explicit retry policy. Callers construct one and pass it to
// Retry; there is no ambient default hidden inside the call.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64
	// Retryable filters errors. Nil means every error is retryable.
	Retryable func(error) bool
}

// DefaultPolicy mirrors the configured resilience defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: domain.DefaultRetryMaxAttempts,
		Delay:       domain.DefaultRetryDelay,
		Backoff:     domain.DefaultRetryBackoff,
	}
}

// PolicyFromSettings converts config settings into a retry policy.
func PolicyFromSettings(s domain.ResilienceSettings) Policy {
	p := Policy{
		MaxAttempts: s.RetryMaxAttempts,
		Delay:       time.Duration(s.RetryDelaySeconds * float64(time.Second)),
		Backoff:     s.RetryBackoff,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = domain.DefaultRetryMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = domain.DefaultRetryDelay
	}
	if p.Backoff < 1 {
		p.Backoff = domain.DefaultRetryBackoff
	}
	return p
}

// Retry runs fn up to policy.MaxAttempts times with multiplicative delay
// between attempts. The context cancels the inter-attempt sleep. A
// CircuitOpenError from fn aborts immediately; retrying into an open
// breaker only burns the budget.
func Retry(ctx context.Context, log ports.Logger, name string, policy Policy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	delay := policy.Delay
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(policy, lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if log != nil {
			log.Warn("retrying after failure", map[string]interface{}{
				"target":  name,
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   lastErr.Error(),
			})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Backoff)
	}
	return fmt.Errorf("%s failed after %d attempt(s): %w", name, policy.MaxAttempts, lastErr)
}

func retryable(policy Policy, err error) bool {
	var open *domain.CircuitOpenError
	if errors.As(err, &open) {
		return false
	}
	if policy.Retryable != nil {
		return policy.Retryable(err)
	}
	return true
}
