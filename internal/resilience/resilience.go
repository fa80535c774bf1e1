// Package resilience guards calls to external services with a circuit
// breaker and bounded retries with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Config configures a Guard. Zero values select the defaults.
type Config struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
	Attempts    uint
	Delay       time.Duration
	// Permanent reports errors that are final answers from the service. They
	// are returned immediately and do not count as breaker failures.
	Permanent func(error) bool
}

// Guard runs operations through a circuit breaker, retrying transient failures.
type Guard struct {
	cb        *gobreaker.CircuitBreaker
	attempts  uint
	delay     time.Duration
	permanent func(error) bool
	logger    *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Guard {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 200 * time.Millisecond
	}
	if cfg.Permanent == nil {
		cfg.Permanent = func(error) bool { return false }
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "resilience", "guard", cfg.Name)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || cfg.Permanent(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Guard{
		cb:        gobreaker.NewCircuitBreaker(settings),
		attempts:  cfg.Attempts,
		delay:     cfg.Delay,
		permanent: cfg.Permanent,
		logger:    log,
	}
}

// Do runs op until it succeeds, fails permanently, the breaker opens or the
// attempts are exhausted. The last error is returned.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			_, err := g.cb.Execute(func() (any, error) {
				return nil, op(ctx)
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !g.permanent(err) && !errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			g.logger.DebugContext(ctx, "Retrying operation", "attempt", n+1, "error", err)
		}),
	)
}

// State returns the breaker state name.
func (g *Guard) State() string {
	return g.cb.State().String()
}
