package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/doeshing/filegate/internal/domain"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	var open *domain.CircuitOpenError
	if !errors.As(err, &open) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if called {
		t.Fatal("open breaker must not invoke fn")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)
	boom := errors.New("boom")

	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return boom })
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("success run: %v", err)
	}
	_ = b.Do(func() error { return boom })
	_ = b.Do(func() error { return boom })
	if b.State() != BreakerClosed {
		t.Fatalf("state = %s, want closed after reset", b.State())
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker("test", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errors.New("boom") })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	// Advance past the recovery window; the next call probes.
	now = now.Add(2 * time.Minute)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("state = %s, want half_open", b.State())
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("state = %s, want closed after probe success", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("test", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errors.New("boom") })
	now = now.Add(2 * time.Minute)
	_ = b.Do(func() error { return errors.New("still down") })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want reopened", b.State())
	}
}
