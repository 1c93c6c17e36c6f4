// Package events publishes enrichment lifecycle events to a pluggable
// publisher. Publishing is best-effort: failures are logged, never fatal.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"enrichment-engine/internal/common/logging"
)

// Type names an enrichment lifecycle stage
type Type string

const (
	// TypeStarted is published when request processing begins
	TypeStarted Type = "STARTED"
	// TypeCompleted is published after a success response is built
	TypeCompleted Type = "COMPLETED"
	// TypeFailed is published after a failure response is built
	TypeFailed Type = "FAILED"
)

// Event is one lifecycle notification
type Event struct {
	Type           Type                   `json:"type"`
	RequestID      string                 `json:"request_id"`
	EnrichmentType string                 `json:"enrichment_type"`
	TenantID       string                 `json:"tenant_id,omitempty"`
	ProviderName   string                 `json:"provider_name,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Publisher delivers lifecycle events to interested collaborators
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log
type LogPublisher struct {
	logger logging.Logger
}

// NewLogPublisher creates a log-backed publisher
func NewLogPublisher(logger logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info("enrichment lifecycle event",
		logging.String("event", string(event.Type)),
		logging.String("request_id", event.RequestID),
		logging.String("type", event.EnrichmentType),
		logging.String("provider", event.ProviderName),
	)
	return nil
}

// RedisPublisher fans events out over Redis pub/sub for multi-instance
// deployments sharing one Redis.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on the given pub/sub channel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = "enrichment.events"
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

// Publish delivers the event as JSON on the configured channel
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*RedisPublisher)(nil)
)
