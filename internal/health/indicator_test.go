package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
	"enrichment-engine/internal/merge"
	"enrichment-engine/internal/registry"
	"enrichment-engine/internal/resilience"
)

type stubEnricher struct {
	descriptor enrichment.Descriptor
	probeErr   error
	probes     int
}

func (s *stubEnricher) Descriptor() enrichment.Descriptor { return s.descriptor }
func (s *stubEnricher) Shape() merge.Shape                { return merge.Shape{} }

func (s *stubEnricher) Fetch(ctx context.Context, req *enrichment.Request) (interface{}, error) {
	return nil, nil
}

func (s *stubEnricher) Map(providerData interface{}) (map[string]interface{}, error) {
	return nil, nil
}

func (s *stubEnricher) Probe(ctx context.Context) error {
	s.probes++
	return s.probeErr
}

func newTestRegistry(t *testing.T, enrichers ...*stubEnricher) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, e := range enrichers {
		require.NoError(t, reg.Register(e.descriptor, e))
	}
	return reg
}

func TestCheckAllHealthy(t *testing.T) {
	reg := newTestRegistry(t,
		&stubEnricher{descriptor: enrichment.Descriptor{ProviderName: "clearbit", Type: "company_profile", Priority: 10}},
		&stubEnricher{descriptor: enrichment.Descriptor{ProviderName: "internal-db", Type: "company_profile", Priority: 5}},
	)
	manager := resilience.NewManager(resilience.DefaultPolicy(), nil, nil, nil)

	ind := NewIndicator(reg, manager, time.Minute, nil)
	report := ind.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Len(t, report.Providers, 2)
	assert.Equal(t, StatusHealthy, report.Providers["clearbit"].Status)
}

func TestCheckProbeFailureDegrades(t *testing.T) {
	reg := newTestRegistry(t,
		&stubEnricher{descriptor: enrichment.Descriptor{ProviderName: "clearbit", Type: "company_profile"}},
		&stubEnricher{
			descriptor: enrichment.Descriptor{ProviderName: "flaky", Type: "company_profile"},
			probeErr:   errors.New("connection refused"),
		},
	)
	manager := resilience.NewManager(resilience.DefaultPolicy(), nil, nil, nil)

	ind := NewIndicator(reg, manager, time.Minute, nil)
	report := ind.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Providers["flaky"].Status)
	assert.Contains(t, report.Providers["flaky"].ProbeError, "connection refused")
	assert.Equal(t, StatusHealthy, report.Providers["clearbit"].Status)
}

func TestCheckOpenBreakerUnhealthy(t *testing.T) {
	reg := newTestRegistry(t,
		&stubEnricher{descriptor: enrichment.Descriptor{ProviderName: "clearbit", Type: "company_profile"}},
	)

	policy := resilience.DefaultPolicy()
	policy.MaxFailures = 1
	policy.MaxRetries = 0
	manager := resilience.NewManager(policy, nil, nil, nil)

	guard := manager.Guard("clearbit")
	_, err := guard.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, apperrors.ProviderError("upstream 500", nil, false)
	})
	require.Error(t, err)

	ind := NewIndicator(reg, manager, time.Minute, nil)
	report := ind.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Providers["clearbit"].Status)
	assert.Equal(t, resilience.StateOpen.String(), report.Providers["clearbit"].BreakerState)
}

func TestCheckCachesBetweenIntervals(t *testing.T) {
	enricher := &stubEnricher{descriptor: enrichment.Descriptor{ProviderName: "clearbit", Type: "company_profile"}}
	reg := newTestRegistry(t, enricher)
	manager := resilience.NewManager(resilience.DefaultPolicy(), nil, nil, nil)

	ind := NewIndicator(reg, manager, time.Minute, nil)
	first := ind.Check(context.Background())
	second := ind.Check(context.Background())

	assert.Same(t, first, second)
	assert.Equal(t, 1, enricher.probes)

	refreshed := ind.Refresh(context.Background())
	assert.NotSame(t, first, refreshed)
	assert.Equal(t, 2, enricher.probes)
}
