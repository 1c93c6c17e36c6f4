// Package fallback drives sequential failover across the ordered enricher
// candidates resolved for one request.
package fallback

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/common/logging"
	"enrichment-engine/internal/enrichment"
)

// Invoke performs the resiliency-decorated call for a single candidate.
type Invoke func(ctx context.Context, candidate enrichment.Enricher) (interface{}, error)

// Chain iterates candidates strictly in registry order until one succeeds.
type Chain struct {
	logger logging.Logger
}

// New creates a fallback chain
func New(logger logging.Logger) *Chain {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Chain{logger: logger}
}

// Execute tries candidates one at a time, never in parallel. Provider,
// timeout, circuit-open and rate-limit failures advance to the next
// candidate; any other failure (validation, strategy) aborts immediately
// since it would recur identically for every candidate.
//
// Returns the winning candidate's result, or a not-found error for an empty
// candidate list, or an exhausted error aggregating every candidate failure.
// An expired request context also ends in exhaustion, carrying whatever
// failures accumulated before the deadline.
func (c *Chain) Execute(ctx context.Context, candidates []enrichment.Enricher, invoke Invoke) (interface{}, error) {
	if len(candidates) == 0 {
		return nil, errors.NotFoundError("matching enricher")
	}

	var failures *multierror.Error
	attempts := 0

	for _, candidate := range candidates {
		// An expired request deadline ends the chain as exhaustion: the
		// remaining candidates can no longer be attempted.
		if ctx.Err() != nil {
			return nil, errors.ExhaustedError(
				fmt.Sprintf("request deadline expired after %d of %d candidates", attempts, len(candidates)),
				failures.ErrorOrNil(),
			).WithContext("attempts", attempts)
		}

		attempts++
		name := candidate.Descriptor().ProviderName

		result, err := invoke(ctx, candidate)
		if err == nil {
			return result, nil
		}

		if !errors.AdvancesFallback(err) {
			return nil, err
		}

		c.logger.Warn("enricher candidate failed, advancing fallback chain",
			logging.String("provider", name),
			logging.String("error_type", string(errors.GetType(err))),
			logging.Err(err),
		)
		failures = multierror.Append(failures, fmt.Errorf("%s: %w", name, err))
	}

	return nil, errors.ExhaustedError(
		fmt.Sprintf("all %d enricher candidates failed", attempts),
		failures.ErrorOrNil(),
	).WithContext("attempts", attempts)
}
