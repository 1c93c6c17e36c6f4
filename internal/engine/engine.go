// Package engine orchestrates enrichment requests end to end: candidate
// resolution, cached and guarded provider calls, fallback across candidates,
// merge into the source object, and lineage recording.
package engine

import (
	"context"
	"sync"
	"time"

	"enrichment-engine/internal/cache"
	"enrichment-engine/internal/common/errors"
	"enrichment-engine/internal/common/logging"
	"enrichment-engine/internal/enrichment"
	"enrichment-engine/internal/events"
	"enrichment-engine/internal/fallback"
	"enrichment-engine/internal/health"
	"enrichment-engine/internal/lineage"
	"enrichment-engine/internal/merge"
	"enrichment-engine/internal/metrics"
	"enrichment-engine/internal/registry"
	"enrichment-engine/internal/resilience"
)

// Config carries the engine's tunables
type Config struct {
	// DefaultCacheTTL applies to providers without a descriptor override.
	// Zero disables caching for those providers.
	DefaultCacheTTL time.Duration
	// RequestTimeout bounds one whole Enrich call including fallback.
	RequestTimeout time.Duration
	// BatchWorkers bounds concurrent requests inside EnrichBatch.
	BatchWorkers int
}

// Dependencies are the engine's collaborators. Registry and Guards are
// required; the rest degrade gracefully when nil.
type Dependencies struct {
	Registry  *registry.Registry
	Guards    *resilience.Manager
	Cache     *cache.Layer
	Recorder  *lineage.Recorder
	Publisher events.Publisher
	Health    *health.Indicator
	Metrics   metrics.Sink
	Logger    logging.Logger
}

// Engine is the enrichment orchestrator. It is safe for concurrent use and
// never returns Go errors from Enrich: every outcome is a Response.
type Engine struct {
	config    Config
	registry  *registry.Registry
	guards    *resilience.Manager
	cache     *cache.Layer
	chain     *fallback.Chain
	recorder  *lineage.Recorder
	publisher events.Publisher
	health    *health.Indicator
	sink      metrics.Sink
	logger    logging.Logger
}

// New creates an engine from its dependencies
func New(config Config, deps Dependencies) (*Engine, error) {
	if deps.Registry == nil {
		return nil, errors.ConfigError("engine needs a registry")
	}
	if deps.Guards == nil {
		return nil, errors.ConfigError("engine needs a resiliency manager")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.BatchWorkers <= 0 {
		config.BatchWorkers = 8
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	sink := deps.Metrics
	if sink == nil {
		sink = metrics.NoopSink{}
	}

	return &Engine{
		config:    config,
		registry:  deps.Registry,
		guards:    deps.Guards,
		cache:     deps.Cache,
		chain:     fallback.New(logger),
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		health:    deps.Health,
		sink:      sink,
		logger:    logger,
	}, nil
}

// attempt is the per-candidate outcome carried through the fallback chain
type attempt struct {
	enricher enrichment.Enricher
	enriched interface{}
	fields   int
	cacheHit bool
}

// Enrich processes one request. The returned response is always non-nil;
// failures are reported through its Success and Error fields.
func (e *Engine) Enrich(ctx context.Context, req *enrichment.Request) *enrichment.Response {
	start := time.Now()

	if err := req.Validate(); err != nil {
		if req == nil {
			req = &enrichment.Request{}
		}
		return e.failure(req, err, start)
	}
	req.Normalize()

	ctx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()

	e.publish(ctx, events.TypeStarted, req, "")

	candidates := e.registry.Resolve(req.Type, req.TenantID)
	result, err := e.chain.Execute(ctx, candidates, func(ctx context.Context, candidate enrichment.Enricher) (interface{}, error) {
		return e.invoke(ctx, candidate, req)
	})
	if err != nil {
		return e.failure(req, err, start)
	}

	return e.success(ctx, req, result.(*attempt), start)
}

// invoke runs one candidate: parameter check, cached guarded fetch, then
// map and merge according to the request's strategy.
func (e *Engine) invoke(ctx context.Context, candidate enrichment.Enricher, req *enrichment.Request) (interface{}, error) {
	descriptor := candidate.Descriptor()

	if err := req.CheckRequiredParams(descriptor.RequiredParams); err != nil {
		return nil, err
	}

	payload, cacheHit, err := e.fetch(ctx, candidate, req)
	if err != nil {
		return nil, err
	}

	out := &attempt{enricher: candidate, cacheHit: cacheHit}

	if req.Strategy == merge.StrategyRaw {
		out.enriched = merge.Raw(payload)
		return out, nil
	}

	fields, err := candidate.Map(payload)
	if err != nil {
		return nil, err
	}

	merged, err := merge.Apply(req.Strategy, req.SourceObject, fields, candidate.Shape())
	if err != nil {
		return nil, err
	}

	out.enriched = merged
	out.fields = merge.EnrichedFields(req.SourceObject, merged, candidate.Shape())
	return out, nil
}

// fetch retrieves the provider payload through the candidate's resiliency
// guard, consulting the cache first when the provider has a TTL. Cache keys
// carry the provider name so fallback candidates never read each other's
// payloads.
func (e *Engine) fetch(ctx context.Context, candidate enrichment.Enricher, req *enrichment.Request) (interface{}, bool, error) {
	descriptor := candidate.Descriptor()
	guard := e.guards.Guard(descriptor.ProviderName)

	call := func(ctx context.Context) (interface{}, error) {
		return guard.Do(ctx, func(ctx context.Context) (interface{}, error) {
			return candidate.Fetch(ctx, req)
		})
	}

	ttl := descriptor.CacheTTL
	if ttl == 0 {
		ttl = e.config.DefaultCacheTTL
	}
	if e.cache == nil || ttl <= 0 {
		payload, err := call(ctx)
		return payload, false, err
	}

	key := cache.Key(req.Type, req.TenantID, req.Parameters) + ":" + descriptor.ProviderName
	payload, hit, err := e.cache.GetOrFetch(ctx, key, ttl, call)
	if err != nil {
		return nil, false, err
	}
	if hit {
		e.sink.IncCounter("cache_hits", map[string]string{"provider": descriptor.ProviderName})
	}
	return payload, hit, err
}

func (e *Engine) success(ctx context.Context, req *enrichment.Request, result *attempt, start time.Time) *enrichment.Response {
	descriptor := result.enricher.Descriptor()

	resp := &enrichment.Response{
		Success:             true,
		EnrichedData:        result.enriched,
		ProviderName:        descriptor.ProviderName,
		Type:                req.Type,
		StrategyUsed:        req.Strategy,
		FieldsEnrichedCount: result.fields,
		Cost:                descriptor.Cost,
		CostCurrency:        descriptor.CostCurrency,
		ConfidenceScore:     descriptor.ConfidenceScore,
		RequestID:           req.RequestID,
		Metadata:            responseMetadata(req, result.cacheHit),
	}

	e.recordLineage(req, resp)
	e.publish(ctx, events.TypeCompleted, req, descriptor.ProviderName)

	e.sink.IncCounter("enrich_requests", map[string]string{
		"type":    req.Type,
		"outcome": "success",
	})
	e.sink.ObserveDuration("enrich_duration", time.Since(start), map[string]string{"type": req.Type})

	e.logger.Info("enrichment completed",
		logging.String("request_id", req.RequestID),
		logging.String("type", req.Type),
		logging.String("provider", descriptor.ProviderName),
		logging.Int("fields_enriched", result.fields),
		logging.Bool("cache_hit", result.cacheHit),
	)
	return resp
}

func (e *Engine) failure(req *enrichment.Request, err error, start time.Time) *enrichment.Response {
	errType := errors.GetType(err)

	resp := &enrichment.Response{
		Success:   false,
		Error:     err.Error(),
		ErrorType: errType,
		Type:      req.Type,
		RequestID: req.RequestID,
	}

	e.recordFailureLineage(req, resp)
	e.publish(context.Background(), events.TypeFailed, req, "")

	e.sink.IncCounter("enrich_requests", map[string]string{
		"type":    req.Type,
		"outcome": string(errType),
	})
	e.sink.ObserveDuration("enrich_duration", time.Since(start), map[string]string{"type": req.Type})

	e.logger.Warn("enrichment failed",
		logging.String("request_id", req.RequestID),
		logging.String("type", req.Type),
		logging.String("error_type", string(errType)),
		logging.Err(err),
	)
	return resp
}

// EnrichBatch processes requests concurrently on a bounded worker pool.
// The returned channel yields one response per request in completion order
// and is closed once all requests finished.
func (e *Engine) EnrichBatch(ctx context.Context, reqs []*enrichment.Request) <-chan *enrichment.Response {
	out := make(chan *enrichment.Response, len(reqs))
	jobs := make(chan *enrichment.Request)

	var wg sync.WaitGroup
	workers := e.config.BatchWorkers
	if workers > len(reqs) {
		workers = len(reqs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				out <- e.Enrich(ctx, req)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, req := range reqs {
			select {
			case jobs <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Discover lists registered enricher descriptors, optionally filtered by
// type and tenant.
func (e *Engine) Discover(enrichmentType, tenantID string) []enrichment.Descriptor {
	return e.registry.Discover(enrichmentType, tenantID)
}

// Health returns the current provider health report, optionally narrowed
// to the providers serving one type and tenant. Empty filters match all.
func (e *Engine) Health(ctx context.Context, enrichmentType, tenantID string) *health.Report {
	if e.health == nil {
		return &health.Report{
			Status:    health.StatusHealthy,
			Providers: map[string]health.ProviderHealth{},
			CheckedAt: time.Now(),
		}
	}

	report := e.health.Check(ctx)
	if enrichmentType == "" && tenantID == "" {
		return report
	}

	names := make(map[string]bool)
	for _, d := range e.registry.Discover(enrichmentType, tenantID) {
		names[d.ProviderName] = true
	}

	filtered := &health.Report{
		Status:    health.StatusHealthy,
		Providers: make(map[string]health.ProviderHealth, len(names)),
		CheckedAt: report.CheckedAt,
	}
	unhealthy := 0
	for name, ph := range report.Providers {
		if !names[name] {
			continue
		}
		filtered.Providers[name] = ph
		switch ph.Status {
		case health.StatusUnhealthy:
			unhealthy++
		case health.StatusDegraded:
			if filtered.Status == health.StatusHealthy {
				filtered.Status = health.StatusDegraded
			}
		}
	}
	if unhealthy > 0 {
		if unhealthy == len(filtered.Providers) {
			filtered.Status = health.StatusUnhealthy
		} else {
			filtered.Status = health.StatusDegraded
		}
	}
	return filtered
}

// InvalidateCache drops cached payloads for one request identity across all
// candidates able to serve it.
func (e *Engine) InvalidateCache(ctx context.Context, enrichmentType, tenantID string, params map[string]interface{}) {
	if e.cache == nil {
		return
	}
	base := cache.Key(enrichmentType, tenantID, params)
	for _, d := range e.registry.Discover(enrichmentType, tenantID) {
		e.cache.Invalidate(ctx, base+":"+d.ProviderName)
	}
}

// Close flushes in-flight lineage writes
func (e *Engine) Close() {
	if e.recorder != nil {
		e.recorder.Flush()
	}
}

func (e *Engine) recordLineage(req *enrichment.Request, resp *enrichment.Response) {
	if e.recorder == nil {
		return
	}

	record := lineage.NewRecord(entityID(req), resp.ProviderName, lineage.OperationEnrichment)
	record.OperatorID = operatorID(req)
	record.InputHash = lineage.Hash(req.SourceObject)
	record.OutputHash = lineage.Hash(resp.EnrichedData)
	record.TraceID = req.RequestID
	record.Metadata = map[string]interface{}{
		"type":            req.Type,
		"strategy":        string(req.Strategy),
		"fields_enriched": resp.FieldsEnrichedCount,
	}
	e.recorder.Record(record)
}

// recordFailureLineage keeps provenance for failed requests too, with the
// error carried as record metadata instead of an output hash.
func (e *Engine) recordFailureLineage(req *enrichment.Request, resp *enrichment.Response) {
	if e.recorder == nil {
		return
	}

	record := lineage.NewRecord(entityID(req), "enrichment-engine", lineage.OperationEnrichment)
	record.OperatorID = operatorID(req)
	record.InputHash = lineage.Hash(req.SourceObject)
	record.TraceID = req.RequestID
	record.Metadata = map[string]interface{}{
		"type":       req.Type,
		"error_type": string(resp.ErrorType),
		"error":      resp.Error,
	}
	e.recorder.Record(record)
}

func entityID(req *enrichment.Request) string {
	if v, ok := req.Metadata["entity_id"].(string); ok && v != "" {
		return v
	}
	return req.RequestID
}

func operatorID(req *enrichment.Request) string {
	v, _ := req.Metadata["operator_id"].(string)
	return v
}

func (e *Engine) publish(ctx context.Context, eventType events.Type, req *enrichment.Request, provider string) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, events.Event{
		Type:           eventType,
		RequestID:      req.RequestID,
		EnrichmentType: req.Type,
		TenantID:       req.TenantID,
		ProviderName:   provider,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("failed to publish lifecycle event",
			logging.String("event", string(eventType)),
			logging.String("request_id", req.RequestID),
			logging.Err(err),
		)
	}
}

func responseMetadata(req *enrichment.Request, cacheHit bool) map[string]interface{} {
	meta := make(map[string]interface{}, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["cache_hit"] = cacheHit
	return meta
}
