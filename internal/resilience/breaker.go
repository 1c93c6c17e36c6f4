package resilience

import (
	"github.com/sony/gobreaker"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/common/logging"
)

// State represents the current state of a provider's circuit breaker
type State int

const (
	// StateClosed means calls pass through and failures are counted
	StateClosed State = iota
	// StateOpen means calls are rejected immediately without reaching the provider
	StateOpen
	// StateHalfOpen means a limited number of trial calls are allowed through
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker wraps sony/gobreaker behind the engine's error taxonomy.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func newBreaker(name string, policy Policy, logger logging.Logger) *breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(policy.HalfOpenMaxRequests),
		Interval:    policy.BreakerInterval,
		Timeout:     policy.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(policy.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				logging.String("provider", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Request-level failures say nothing about provider health.
			switch errors.GetType(err) {
			case errors.ErrTypeValidation, errors.ErrTypeStrategy:
				return true
			}
			return false
		},
	}

	return &breaker{
		name: name,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs fn within the breaker, translating gobreaker rejections into
// circuit-open errors.
func (b *breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.CircuitOpenError(b.name)
	}
	return result, err
}

// State returns the breaker's current state
func (b *breaker) State() State {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Counts returns the breaker's current request counts
func (b *breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
