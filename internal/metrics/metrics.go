// Package metrics defines the passive emit-only sink the engine invokes
// around guarded provider calls and around whole requests. Backends are
// collaborators; this package ships a no-op and a logging implementation.
package metrics

import (
	"time"

	"enrichment-engine/internal/common/logging"
)

// Sink receives counters and durations. Implementations must be safe for
// concurrent use and must never block the caller on I/O.
type Sink interface {
	IncCounter(name string, tags map[string]string)
	ObserveDuration(name string, d time.Duration, tags map[string]string)
}

// NoopSink discards all emissions
type NoopSink struct{}

// IncCounter discards the counter
func (NoopSink) IncCounter(string, map[string]string) {}

// ObserveDuration discards the observation
func (NoopSink) ObserveDuration(string, time.Duration, map[string]string) {}

// LogSink writes emissions to the structured log at debug level
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink that logs every emission
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LogSink{logger: logger}
}

// IncCounter logs a counter increment
func (s *LogSink) IncCounter(name string, tags map[string]string) {
	s.logger.Debug("metric counter", logging.String("name", name), logging.Any("tags", tags))
}

// ObserveDuration logs a duration observation
func (s *LogSink) ObserveDuration(name string, d time.Duration, tags map[string]string) {
	s.logger.Debug("metric duration",
		logging.String("name", name),
		logging.Duration("value", d),
		logging.Any("tags", tags),
	)
}

var (
	_ Sink = NoopSink{}
	_ Sink = (*LogSink)(nil)
)
