package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker is rejecting provider calls
// after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes how aggressively a failing provider is cut off.
type CircuitBreakerConfig struct {
	// MaxFailures is the run of consecutive failures that opens the circuit.
	MaxFailures uint32

	// Cooldown is how long the circuit stays open before probe requests are
	// let through again.
	Cooldown time.Duration

	// RecoveryProbes is the run of consecutive successes in the half-open
	// state that closes the circuit.
	RecoveryProbes uint32
}

// DefaultCircuitBreakerConfig trips after 3 consecutive failures, probes
// again after 30 seconds and closes after 2 clean probes.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:    3,
		Cooldown:       30 * time.Second,
		RecoveryProbes: 2,
	}
}

// CircuitBreaker guards a provider's EmbedBatch path so a dead endpoint is
// not hammered by every ranking pass. Rejected input (ErrInvalidInput) is the
// caller's problem and does not count against the provider; everything else,
// timeouts included, does.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreaker returns a breaker with the default tuning.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(DefaultCircuitBreakerConfig())
}

// NewCircuitBreakerWithConfig returns a breaker with the given tuning.
func NewCircuitBreakerWithConfig(cfg CircuitBreakerConfig) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        "embedding-provider",
		MaxRequests: cfg.RecoveryProbes,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidInput)
		},
	}

	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs one provider call through the breaker. While the circuit is
// open the call is not dispatched and ErrCircuitOpen is returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() ([][]float64, error)) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	return res.([][]float64), nil
}

// State reports the current state: "closed", "open" or "half-open".
func (cb *CircuitBreaker) State() string {
	return cb.breaker.State().String()
}

// Counts exposes the breaker's counters for diagnostics. Counters reset on
// every state change.
func (cb *CircuitBreaker) Counts() gobreaker.Counts {
	return cb.breaker.Counts()
}
