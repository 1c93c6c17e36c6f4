package providers

import (
	"context"
	"fmt"
	"sync"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
	"enrichment-engine/internal/merge"
)

// LookupEnricher serves enrichment data from an in-memory table keyed by
// one request parameter. It backs first-party datasets and makes a cheap
// last-resort candidate in fallback chains.
type LookupEnricher struct {
	descriptor enrichment.Descriptor
	shape      merge.Shape
	keyParam   string

	mu    sync.RWMutex
	table map[string]map[string]interface{}
}

// NewLookupEnricher creates a lookup enricher keyed by the given parameter
func NewLookupEnricher(descriptor enrichment.Descriptor, shape merge.Shape, keyParam string) (*LookupEnricher, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	if keyParam == "" {
		return nil, errors.ConfigError("lookup enricher needs a key parameter")
	}

	return &LookupEnricher{
		descriptor: descriptor,
		shape:      shape,
		keyParam:   keyParam,
		table:      make(map[string]map[string]interface{}),
	}, nil
}

// Load replaces or adds one record under the given key
func (e *LookupEnricher) Load(key string, record map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.table[key] = record
}

func (e *LookupEnricher) Descriptor() enrichment.Descriptor { return e.descriptor }

func (e *LookupEnricher) Shape() merge.Shape { return e.shape }

// Fetch resolves the key parameter against the table. A missing record is
// a non-transient provider failure so the fallback chain can try the next
// candidate.
func (e *LookupEnricher) Fetch(ctx context.Context, req *enrichment.Request) (interface{}, error) {
	raw, present := req.Parameters[e.keyParam]
	if !present {
		return nil, errors.ValidationError("missing required parameter: " + e.keyParam)
	}
	key := fmt.Sprintf("%v", raw)

	e.mu.RLock()
	record, found := e.table[key]
	e.mu.RUnlock()

	if !found {
		return nil, errors.ProviderError("no record for "+e.keyParam+"="+key, nil, false)
	}

	// Copy so callers cannot mutate the table through the result.
	out := make(map[string]interface{}, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out, nil
}

// Map filters the record down to the enricher's declared fields
func (e *LookupEnricher) Map(providerData interface{}) (map[string]interface{}, error) {
	record, ok := providerData.(map[string]interface{})
	if !ok {
		return nil, errors.ProviderError("lookup record is not an object", nil, false)
	}

	out := make(map[string]interface{})
	for _, field := range e.shape.Fields() {
		if value, present := record[field.Name]; present {
			out[field.Name] = value
		}
	}
	return out, nil
}

var _ enrichment.Enricher = (*LookupEnricher)(nil)
