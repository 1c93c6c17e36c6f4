// Package registry catalogs registered enrichers and resolves a
// (type, tenant) pair to an ordered candidate list.
//
// Registration is a closed startup phase; after startup the registry is
// read-mostly and resolution is safe for unlimited concurrent readers.
package registry

import (
	"sort"
	"sync"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
)

type entry struct {
	descriptor enrichment.Descriptor
	enricher   enrichment.Enricher
	order      int // registration order, final resolution tie-break
}

// Registry is a thread-safe catalog of enrichers keyed by capability type.
type Registry struct {
	mu      sync.RWMutex
	byType  map[string][]*entry
	keys    map[string]bool
	counter int
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		byType: make(map[string][]*entry),
		keys:   make(map[string]bool),
	}
}

// Register adds an enricher under its descriptor. Registering two enrichers
// with the same (type, tenant, provider) triple is a conflict.
func (r *Registry) Register(descriptor enrichment.Descriptor, enricher enrichment.Enricher) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}
	if enricher == nil {
		return errors.ConfigError("enricher instance is required for " + descriptor.ProviderName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := descriptor.Key()
	if r.keys[key] {
		return errors.DuplicateError("enricher " + descriptor.ProviderName + " for type " + descriptor.Type)
	}

	r.keys[key] = true
	r.counter++
	r.byType[descriptor.Type] = append(r.byType[descriptor.Type], &entry{
		descriptor: descriptor,
		enricher:   enricher,
		order:      r.counter,
	})
	return nil
}

// Resolve returns the enrichers able to serve (enrichmentType, tenantID) in
// failover order: exact tenant matches before tenant-agnostic ones, higher
// priority first within each group, registration order as the final
// tie-break. Resolution is deterministic for unchanged registry state.
func (r *Registry) Resolve(enrichmentType, tenantID string) []enrichment.Enricher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entry
	for _, e := range r.byType[enrichmentType] {
		if e.descriptor.TenantID == "" || e.descriptor.TenantID == tenantID {
			matched = append(matched, e)
		}
	}

	sortCandidates(matched, tenantID)

	out := make([]enrichment.Enricher, len(matched))
	for i, e := range matched {
		out[i] = e.enricher
	}
	return out
}

// Discover lists descriptors, optionally filtered by type and tenant. Empty
// filter values match everything; a non-empty tenant filter also includes
// tenant-agnostic descriptors. Results follow resolution order within a type.
func (r *Registry) Discover(enrichmentType, tenantID string) []enrichment.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entry
	for typ, entries := range r.byType {
		if enrichmentType != "" && typ != enrichmentType {
			continue
		}
		for _, e := range entries {
			if tenantID != "" && e.descriptor.TenantID != "" && e.descriptor.TenantID != tenantID {
				continue
			}
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].descriptor.Type != matched[j].descriptor.Type {
			return matched[i].descriptor.Type < matched[j].descriptor.Type
		}
		return lessCandidate(matched[i], matched[j], tenantID)
	})

	out := make([]enrichment.Descriptor, len(matched))
	for i, e := range matched {
		out[i] = e.descriptor
	}
	return out
}

// All returns every registered enricher in registration order
func (r *Registry) All() []enrichment.Enricher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*entry
	for _, entries := range r.byType {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].order < all[j].order })

	out := make([]enrichment.Enricher, len(all))
	for i, e := range all {
		out[i] = e.enricher
	}
	return out
}

// Count returns the number of registered enrichers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// Types returns all capability types with at least one enricher. The slice
// is sorted and safe to modify.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for typ := range r.byType {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

func sortCandidates(entries []*entry, tenantID string) {
	sort.SliceStable(entries, func(i, j int) bool {
		return lessCandidate(entries[i], entries[j], tenantID)
	})
}

// lessCandidate orders candidates for failover: exact tenant match outranks
// tenant-agnostic regardless of priority, then priority descending, then
// registration order.
func lessCandidate(a, b *entry, tenantID string) bool {
	aExact := tenantID != "" && a.descriptor.TenantID == tenantID
	bExact := tenantID != "" && b.descriptor.TenantID == tenantID
	if aExact != bExact {
		return aExact
	}
	if a.descriptor.Priority != b.descriptor.Priority {
		return a.descriptor.Priority > b.descriptor.Priority
	}
	return a.order < b.order
}
