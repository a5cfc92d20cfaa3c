package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastRetry(breaker bool) Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         2 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          breaker,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(fastRetry(false), nil)

	attempts := 0
	err := exec.Execute(context.Background(), "vision.detect", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("unavailable")
		}
		return nil
	}, RetryTransient)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteStopsOnCancellation(t *testing.T) {
	exec := NewExecutor(fastRetry(false), nil)

	attempts := 0
	err := exec.Execute(context.Background(), "vision.detect", func(context.Context) error {
		attempts++
		return context.Canceled
	}, RetryTransient)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuit(t *testing.T) {
	exec := NewExecutor(fastRetry(true), nil)
	errDown := errors.New("down")

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "events.publish", func(context.Context) error {
			return errDown
		}, nil)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected down error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "events.publish", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}

	// other operations keep their own breaker
	if err := exec.Execute(context.Background(), "vision.detect", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("expected independent breaker, got %v", err)
	}
}

func TestExecuteHonoursRateLimit(t *testing.T) {
	cfg := fastRetry(false)
	cfg.RatePerSecond = 1
	cfg.RateBurst = 1
	exec := NewExecutor(cfg, nil)

	if err := exec.Execute(context.Background(), "vision.detect", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("expected first call to pass, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := exec.Execute(ctx, "vision.detect", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if err == nil || called {
		t.Fatalf("expected limiter to reject within deadline, got err=%v called=%v", err, called)
	}
}
