// Package enrichment defines the core data model of the engine: requests,
// responses, enricher descriptors and the Enricher capability contract.
package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/merge"
)

// Request describes one enrichment call. Type identifies the capability
// (e.g. "credit-report"); TenantID optionally selects a tenant-specific
// enricher variant; Parameters feed the provider call.
type Request struct {
	Type         string                 `json:"type"`
	TenantID     string                 `json:"tenant_id,omitempty"`
	Strategy     merge.Strategy         `json:"strategy"`
	SourceObject map[string]interface{} `json:"source_object,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	RequestID    string                 `json:"request_id"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the request shape. It does not check per-enricher required
// parameters; those depend on the resolved descriptor and are enforced before
// dispatch.
func (r *Request) Validate() error {
	if r == nil {
		return errors.ValidationError("request is required")
	}
	if r.Type == "" {
		return errors.ValidationError("request type must not be empty")
	}
	if r.Strategy != "" && !r.Strategy.Valid() {
		return errors.ValidationError("unknown merge strategy: " + string(r.Strategy))
	}
	return nil
}

// Normalize fills defaults: a generated request ID and the ENHANCE strategy.
func (r *Request) Normalize() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Strategy == "" {
		r.Strategy = merge.StrategyEnhance
	}
}

// CheckRequiredParams verifies the request carries every parameter a resolved
// enricher declares as required.
func (r *Request) CheckRequiredParams(required []string) error {
	for _, name := range required {
		v, ok := r.Parameters[name]
		if !ok || v == nil {
			return errors.ValidationError(fmt.Sprintf("missing required parameter %q for type %s", name, r.Type))
		}
	}
	return nil
}

// Response is the immutable outcome of one enrichment request. Exactly one of
// EnrichedData (on success) and Error (on failure) is populated.
type Response struct {
	Success             bool                   `json:"success"`
	EnrichedData        interface{}            `json:"enriched_data,omitempty"`
	Error               string                 `json:"error,omitempty"`
	ErrorType           errors.ErrorType       `json:"error_type,omitempty"`
	ProviderName        string                 `json:"provider_name,omitempty"`
	Type                string                 `json:"type"`
	StrategyUsed        merge.Strategy         `json:"strategy_used,omitempty"`
	FieldsEnrichedCount int                    `json:"fields_enriched_count"`
	Cost                float64                `json:"cost,omitempty"`
	CostCurrency        string                 `json:"cost_currency,omitempty"`
	ConfidenceScore     float64                `json:"confidence_score,omitempty"`
	RequestID           string                 `json:"request_id"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// Descriptor is the static metadata identifying one registered enricher.
// An empty TenantID means the enricher serves all tenants.
type Descriptor struct {
	ProviderName string   `json:"provider_name"`
	Type         string   `json:"type"`
	TenantID     string   `json:"tenant_id,omitempty"`
	Priority     int      `json:"priority"`
	Tags         []string `json:"tags,omitempty"`

	// RequiredParams lists parameter keys the request must carry.
	RequiredParams []string `json:"required_params,omitempty"`

	// Cost accounting and provider-reported confidence, copied onto responses.
	Cost            float64 `json:"cost,omitempty"`
	CostCurrency    string  `json:"cost_currency,omitempty"`
	ConfidenceScore float64 `json:"confidence_score,omitempty"`

	// CacheTTL overrides the engine's default provider-response TTL when set.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
}

// Key returns the identity triple used for duplicate detection.
func (d Descriptor) Key() string {
	return d.Type + "\x00" + d.TenantID + "\x00" + d.ProviderName
}

// Validate checks the descriptor's required fields.
func (d Descriptor) Validate() error {
	if d.ProviderName == "" {
		return errors.ConfigError("descriptor provider name must not be empty")
	}
	if d.Type == "" {
		return errors.ConfigError("descriptor type must not be empty")
	}
	return nil
}

// Enricher is the polymorphic capability serving one (type, tenant) pair.
//
// Fetch performs the provider call and may fail with provider or timeout
// errors; malformed requests are validation errors. Map is a pure,
// synchronous transform of the raw provider payload into the target field
// map and must not perform I/O.
type Enricher interface {
	Descriptor() Descriptor
	Shape() merge.Shape
	Fetch(ctx context.Context, req *Request) (interface{}, error)
	Map(providerData interface{}) (map[string]interface{}, error)
}

// ProviderClient is the narrow contract to the collaborator that actually
// talks to a third-party provider. The transport behind it (REST, SOAP,
// gRPC) is out of scope for the engine.
type ProviderClient interface {
	Call(ctx context.Context, params map[string]interface{}) (interface{}, error)
}
