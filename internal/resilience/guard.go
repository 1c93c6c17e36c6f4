package resilience

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/common/logging"
	"enrichment-engine/internal/metrics"
)

// Call is a single provider invocation bounded by the guard's call timeout.
type Call func(ctx context.Context) (interface{}, error)

// Guard applies the fixed resiliency composition to one provider's calls:
// bulkhead, then rate limiter, then circuit breaker, then retry around the
// actual call. Guard state is shared by all requests hitting the provider
// and is safe for concurrent use.
type Guard struct {
	name    string
	policy  Policy
	bulk    *semaphore.Weighted
	limiter *rate.Limiter
	breaker *breaker
	logger  logging.Logger
	sink    metrics.Sink
}

// NewGuard creates a guard for one provider. Invalid policies fall back to
// the global default rather than failing startup.
func NewGuard(name string, policy Policy, logger logging.Logger, sink metrics.Sink) *Guard {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	if err := policy.Validate(); err != nil {
		logger.Warn("invalid resiliency policy, using defaults",
			logging.String("provider", name),
			logging.Err(err),
		)
		policy = DefaultPolicy()
	}

	return &Guard{
		name:    name,
		policy:  policy,
		bulk:    semaphore.NewWeighted(int64(policy.MaxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(policy.RequestsPerSecond), policy.BurstSize),
		breaker: newBreaker(name, policy, logger),
		logger:  logger,
		sink:    sink,
	}
}

// Do runs fn under the guard. Rejections before the provider is reached
// (saturated bulkhead, exceeded rate, open breaker) come back as rate-limit
// or circuit-open errors so the fallback chain can advance; transient
// provider failures are retried here with exponential backoff and jitter.
func (g *Guard) Do(ctx context.Context, fn Call) (interface{}, error) {
	if err := g.bulk.Acquire(ctx, 1); err != nil {
		return nil, errors.RateLimitError("bulkhead of provider " + g.name)
	}
	defer g.bulk.Release(1)

	if !g.limiter.Allow() {
		g.sink.IncCounter("provider_rate_limited", map[string]string{"provider": g.name})
		return nil, errors.RateLimitError("provider " + g.name)
	}

	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.callWithRetry(ctx, fn)
	})

	tags := map[string]string{"provider": g.name, "outcome": "success"}
	if err != nil {
		tags["outcome"] = string(errors.GetType(err))
	}
	g.sink.ObserveDuration("provider_call", time.Since(start), tags)

	return result, err
}

// callWithRetry re-attempts transient failures with exponential backoff.
// Validation, circuit-open and rate-limit errors are never retried locally.
func (g *Guard) callWithRetry(ctx context.Context, fn Call) (interface{}, error) {
	var lastErr error

	for attempt := 0; attempt <= g.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.TimeoutError("retry of provider " + g.name)
			case <-time.After(g.backoff(attempt)):
			}
			g.sink.IncCounter("provider_retry", map[string]string{"provider": g.name})
		}

		callCtx, cancel := context.WithTimeout(ctx, g.policy.CallTimeout)
		result, err := fn(callCtx)
		deadlineHit := callCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			return result, nil
		}
		if deadlineHit && !errors.IsType(err, errors.ErrTypeTimeout) {
			err = errors.TimeoutError("call to provider " + g.name)
		}

		if !errors.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoff computes the delay before retry attempt n (n >= 1): exponential
// doubling from the base delay, capped, with symmetric jitter.
func (g *Guard) backoff(attempt int) time.Duration {
	delay := g.policy.RetryDelay * time.Duration(1<<uint(attempt-1))
	if g.policy.MaxRetryDelay > 0 && delay > g.policy.MaxRetryDelay {
		delay = g.policy.MaxRetryDelay
	}
	if g.policy.JitterFraction > 0 {
		jitter := (rand.Float64()*2 - 1) * g.policy.JitterFraction
		delay = time.Duration(float64(delay) * (1 + jitter))
	}
	return delay
}

// State returns the current circuit breaker state for the provider
func (g *Guard) State() State {
	return g.breaker.State()
}

// Policy returns the policy the guard was built with
func (g *Guard) Policy() Policy {
	return g.policy
}
