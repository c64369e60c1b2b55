// Package resilience wraps unreliable dependencies with a circuit breaker,
// an explicit retry policy, and a token-bucket rate limiter.
package resilience

import (
	"sync"
	"time"

	"github.com/doeshing/filegate/internal/domain"
)

// BreakerState enumerates the circuit states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker is a per-dependency circuit breaker. Closed counts consecutive
// failures; at the threshold it opens and fails fast until the recovery
// window passes, then admits a single probe in half-open.
type Breaker struct {
	name      string
	threshold int
	recovery  time.Duration

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	probing     bool

	now func() time.Time
}

// NewBreaker builds a closed breaker.
func NewBreaker(name string, threshold int, recovery time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = domain.DefaultBreakerThreshold
	}
	if recovery <= 0 {
		recovery = domain.DefaultBreakerRecovery
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		recovery:  recovery,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Do runs fn under the breaker. While open it returns a CircuitOpenError
// without invoking fn. In half-open exactly one caller probes; concurrent
// callers are rejected until the probe resolves.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current circuit state, advancing open to half-open when
// the recovery window has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	return b.state
}

// Reset forces the breaker closed and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()

	switch b.state {
	case BreakerOpen:
		return &domain.CircuitOpenError{
			Service:    b.name,
			RetryAfter: b.recovery - b.now().Sub(b.lastFailure),
		}
	case BreakerHalfOpen:
		if b.probing {
			return &domain.CircuitOpenError{Service: b.name, RetryAfter: 0}
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = BreakerClosed
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	b.lastFailure = b.now()
	b.probing = false
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
	}
}

func (b *Breaker) advanceLocked() {
	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.recovery {
		b.state = BreakerHalfOpen
		b.probing = false
	}
}
