package resilience

import (
	"sync"

	"enrichment-engine/internal/common/logging"
	"enrichment-engine/internal/metrics"
)

// Manager holds one guard per provider, resolving the policy from
// per-provider overrides with a global default.
type Manager struct {
	mu        sync.RWMutex
	guards    map[string]*Guard
	defaults  Policy
	overrides map[string]Policy
	logger    logging.Logger
	sink      metrics.Sink
}

// NewManager creates a guard manager. Overrides may be nil.
func NewManager(defaults Policy, overrides map[string]Policy, logger logging.Logger, sink metrics.Sink) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	if err := defaults.Validate(); err != nil {
		logger.Warn("invalid default resiliency policy, using built-in default", logging.Err(err))
		defaults = DefaultPolicy()
	}

	return &Manager{
		guards:    make(map[string]*Guard),
		defaults:  defaults,
		overrides: overrides,
		logger:    logger,
		sink:      sink,
	}
}

// Guard returns the guard for a provider, creating it on first use.
func (m *Manager) Guard(provider string) *Guard {
	m.mu.RLock()
	guard, exists := m.guards[provider]
	m.mu.RUnlock()
	if exists {
		return guard
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if guard, exists = m.guards[provider]; exists {
		return guard
	}
	guard = NewGuard(provider, m.PolicyFor(provider), m.logger, m.sink)
	m.guards[provider] = guard
	return guard
}

// PolicyFor resolves the effective policy for a provider
func (m *Manager) PolicyFor(provider string) Policy {
	if override, ok := m.overrides[provider]; ok {
		return override
	}
	return m.defaults
}

// States returns the current breaker state of every provider seen so far
func (m *Manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]State, len(m.guards))
	for name, guard := range m.guards {
		states[name] = guard.State()
	}
	return states
}

// StateOf returns the breaker state for one provider, if it has a guard yet
func (m *Manager) StateOf(provider string) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	guard, exists := m.guards[provider]
	if !exists {
		return StateClosed, false
	}
	return guard.State(), true
}
