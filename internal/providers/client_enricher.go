package providers

import (
	"context"
	"strings"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/enrichment"
	"enrichment-engine/internal/merge"
)

// ClientEnricher turns any ProviderClient into a registrable enricher with
// a declarative response mapping. Mapping values are dot paths into the
// provider response ("company.name"); an empty mapping passes the response
// through filtered to the shape's fields.
type ClientEnricher struct {
	descriptor enrichment.Descriptor
	shape      merge.Shape
	client     enrichment.ProviderClient
	mapping    map[string]string
}

// NewClientEnricher creates an enricher backed by the given client
func NewClientEnricher(descriptor enrichment.Descriptor, shape merge.Shape, client enrichment.ProviderClient, mapping map[string]string) (*ClientEnricher, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.ConfigError("enricher " + descriptor.ProviderName + " needs a provider client")
	}
	for field := range mapping {
		if !shape.Has(field) {
			return nil, errors.ConfigError("mapping targets unknown field " + field)
		}
	}

	return &ClientEnricher{
		descriptor: descriptor,
		shape:      shape,
		client:     client,
		mapping:    mapping,
	}, nil
}

func (e *ClientEnricher) Descriptor() enrichment.Descriptor { return e.descriptor }

func (e *ClientEnricher) Shape() merge.Shape { return e.shape }

// Fetch calls the provider with the request's parameters
func (e *ClientEnricher) Fetch(ctx context.Context, req *enrichment.Request) (interface{}, error) {
	return e.client.Call(ctx, req.Parameters)
}

// Map projects the provider response onto the enricher's shape
func (e *ClientEnricher) Map(providerData interface{}) (map[string]interface{}, error) {
	response, ok := providerData.(map[string]interface{})
	if !ok {
		return nil, errors.ProviderError("provider response is not an object", nil, false)
	}

	out := make(map[string]interface{})
	if len(e.mapping) == 0 {
		for _, field := range e.shape.Fields() {
			if value, present := response[field.Name]; present {
				out[field.Name] = value
			}
		}
		return out, nil
	}

	for field, path := range e.mapping {
		if value, present := lookupPath(response, path); present {
			out[field] = value
		}
	}
	return out, nil
}

// Probe delegates to the client when it supports connectivity checks
func (e *ClientEnricher) Probe(ctx context.Context) error {
	prober, ok := e.client.(interface{ Probe(context.Context) error })
	if !ok {
		return nil
	}
	return prober.Probe(ctx)
}

// lookupPath walks a dot path through nested response objects
func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = data
	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

var _ enrichment.Enricher = (*ClientEnricher)(nil)
