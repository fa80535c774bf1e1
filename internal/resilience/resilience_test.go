package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var errRejected = errors.New("rejected")

func newTestGuard(maxFailures uint32) *Guard {
	return New(Config{
		Name:        "test",
		MaxFailures: maxFailures,
		OpenTimeout: time.Minute,
		Attempts:    3,
		Delay:       time.Millisecond,
		Permanent:   func(err error) bool { return errors.Is(err, errRejected) },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGuardRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	g := newTestGuard(10)
	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestGuardReturnsPermanentErrorsImmediately(t *testing.T) {
	t.Parallel()

	g := newTestGuard(1)
	for i := 0; i < 3; i++ {
		calls := 0
		err := g.Do(context.Background(), func(context.Context) error {
			calls++
			return errRejected
		})
		if !errors.Is(err, errRejected) {
			t.Fatalf("Do() error = %v, want %v", err, errRejected)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	}

	if got := g.State(); got != "closed" {
		t.Errorf("State() = %q, want closed after permanent errors", got)
	}
}

func TestGuardOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	g := newTestGuard(2)
	boom := errors.New("service unavailable")

	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Do() error = %v, want %v", err, ErrCircuitOpen)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 before the breaker opened", calls)
	}

	err = g.Do(context.Background(), func(context.Context) error {
		t.Error("operation ran while the breaker was open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do() error = %v, want %v", err, ErrCircuitOpen)
	}
}
