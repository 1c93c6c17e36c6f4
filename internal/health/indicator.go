// Package health derives a per-provider health view from circuit breaker
// state and optional connectivity probes. Checks are cached and recomputed
// at most once per interval so hot paths can read health cheaply.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"enrichment-engine/internal/common/logging"
	"enrichment-engine/internal/registry"
	"enrichment-engine/internal/resilience"
)

// Status summarizes a provider or the whole engine
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Prober is implemented by enrichers that can verify upstream connectivity.
// Probe should be cheap and respect the context deadline.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProviderHealth is the cached view of one provider
type ProviderHealth struct {
	Provider      string    `json:"provider"`
	Status        Status    `json:"status"`
	BreakerState  string    `json:"breaker_state"`
	ProbeError    string    `json:"probe_error,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// Report is a point-in-time view of the engine
type Report struct {
	Status    Status                    `json:"status"`
	Providers map[string]ProviderHealth `json:"providers"`
	CheckedAt time.Time                 `json:"checked_at"`
}

// Indicator computes and caches health reports
type Indicator struct {
	registry *registry.Registry
	manager  *resilience.Manager
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger

	mu         sync.Mutex
	lastReport *Report

	cron *cron.Cron
}

// NewIndicator creates an indicator that recomputes at most once per interval
func NewIndicator(reg *registry.Registry, manager *resilience.Manager, interval time.Duration, logger logging.Logger) *Indicator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Indicator{
		registry: reg,
		manager:  manager,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Check returns the current report, recomputing only when the cached one
// is older than the configured interval.
func (i *Indicator) Check(ctx context.Context) *Report {
	i.mu.Lock()
	if i.lastReport != nil && time.Since(i.lastReport.CheckedAt) < i.interval {
		report := i.lastReport
		i.mu.Unlock()
		return report
	}
	i.mu.Unlock()

	return i.Refresh(ctx)
}

// Refresh recomputes the report immediately and caches it
func (i *Indicator) Refresh(ctx context.Context) *Report {
	report := i.compute(ctx)

	i.mu.Lock()
	i.lastReport = report
	i.mu.Unlock()

	return report
}

func (i *Indicator) compute(ctx context.Context) *Report {
	report := &Report{
		Status:    StatusHealthy,
		Providers: make(map[string]ProviderHealth),
		CheckedAt: time.Now(),
	}

	unhealthy := 0
	for _, enricher := range i.registry.All() {
		name := enricher.Descriptor().ProviderName
		if _, seen := report.Providers[name]; seen {
			continue
		}

		ph := ProviderHealth{
			Provider:      name,
			Status:        StatusHealthy,
			BreakerState:  resilience.StateClosed.String(),
			LastCheckedAt: report.CheckedAt,
		}

		if state, ok := i.manager.StateOf(name); ok {
			ph.BreakerState = state.String()
			switch state {
			case resilience.StateOpen:
				ph.Status = StatusUnhealthy
			case resilience.StateHalfOpen:
				ph.Status = StatusDegraded
			}
		}

		if prober, ok := enricher.(Prober); ok && ph.Status != StatusUnhealthy {
			probeCtx, cancel := context.WithTimeout(ctx, i.timeout)
			if err := prober.Probe(probeCtx); err != nil {
				ph.Status = StatusUnhealthy
				ph.ProbeError = err.Error()
				i.logger.Warn("provider probe failed",
					logging.String("provider", name),
					logging.Err(err),
				)
			}
			cancel()
		}

		if ph.Status == StatusUnhealthy {
			unhealthy++
		} else if ph.Status == StatusDegraded && report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
		report.Providers[name] = ph
	}

	if unhealthy > 0 {
		if unhealthy == len(report.Providers) {
			report.Status = StatusUnhealthy
		} else {
			report.Status = StatusDegraded
		}
	}
	return report
}

// Start schedules background refreshes on the indicator's interval
func (i *Indicator) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cron != nil {
		return nil
	}

	i.cron = cron.New()
	_, err := i.cron.AddFunc("@every "+i.interval.String(), func() {
		i.Refresh(context.Background())
	})
	if err != nil {
		i.cron = nil
		return err
	}
	i.cron.Start()
	return nil
}

// Stop halts background refreshes
func (i *Indicator) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cron != nil {
		i.cron.Stop()
		i.cron = nil
	}
}
