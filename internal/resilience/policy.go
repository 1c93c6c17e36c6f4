// Package resilience decorates single provider invocations with a fixed
// composition of guards: bulkhead, rate limiter, circuit breaker and retry
// with backoff, configured per provider with global defaults.
package resilience

import (
	"fmt"
	"time"
)

// Policy holds the resiliency thresholds and limits for one provider.
type Policy struct {
	// MaxConcurrent bounds in-flight calls to the provider (bulkhead)
	MaxConcurrent int
	// RequestsPerSecond bounds the call rate to the provider
	RequestsPerSecond float64
	// BurstSize is the rate limiter's burst allowance
	BurstSize int

	// MaxFailures is the consecutive-failure count that opens the breaker
	MaxFailures int
	// BreakerInterval is the rolling window for closed-state failure counts
	BreakerInterval time.Duration
	// BreakerTimeout is how long the breaker stays open before half-open trials
	BreakerTimeout time.Duration
	// HalfOpenMaxRequests bounds trial calls while half-open
	HalfOpenMaxRequests int

	// MaxRetries bounds re-attempts for transient failures within one call
	MaxRetries int
	// RetryDelay is the base backoff delay, doubled per attempt
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff delay
	MaxRetryDelay time.Duration
	// JitterFraction randomizes each delay by up to this fraction either way
	JitterFraction float64

	// CallTimeout bounds a single provider call attempt
	CallTimeout time.Duration
}

// DefaultPolicy returns the documented global default applied to providers
// without an override.
func DefaultPolicy() Policy {
	return Policy{
		MaxConcurrent:       10,
		RequestsPerSecond:   50,
		BurstSize:           25,
		MaxFailures:         5,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      30 * time.Second,
		HalfOpenMaxRequests: 2,
		MaxRetries:          2,
		RetryDelay:          200 * time.Millisecond,
		MaxRetryDelay:       5 * time.Second,
		JitterFraction:      0.2,
		CallTimeout:         10 * time.Second,
	}
}

// Validate checks if the policy is usable
func (p Policy) Validate() error {
	if p.MaxConcurrent <= 0 {
		return fmt.Errorf("MaxConcurrent must be positive, got %d", p.MaxConcurrent)
	}
	if p.RequestsPerSecond <= 0 {
		return fmt.Errorf("RequestsPerSecond must be positive, got %v", p.RequestsPerSecond)
	}
	if p.BurstSize <= 0 {
		return fmt.Errorf("BurstSize must be positive, got %d", p.BurstSize)
	}
	if p.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", p.MaxFailures)
	}
	if p.BreakerInterval < 0 {
		return fmt.Errorf("BreakerInterval must not be negative, got %v", p.BreakerInterval)
	}
	if p.BreakerTimeout <= 0 {
		return fmt.Errorf("BreakerTimeout must be positive, got %v", p.BreakerTimeout)
	}
	if p.HalfOpenMaxRequests <= 0 {
		return fmt.Errorf("HalfOpenMaxRequests must be positive, got %d", p.HalfOpenMaxRequests)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("MaxRetries must not be negative, got %d", p.MaxRetries)
	}
	if p.RetryDelay <= 0 {
		return fmt.Errorf("RetryDelay must be positive, got %v", p.RetryDelay)
	}
	if p.JitterFraction < 0 || p.JitterFraction >= 1 {
		return fmt.Errorf("JitterFraction must be in [0, 1), got %v", p.JitterFraction)
	}
	if p.CallTimeout <= 0 {
		return fmt.Errorf("CallTimeout must be positive, got %v", p.CallTimeout)
	}
	return nil
}
