package lineage

import (
	"context"
	"sync"
	"time"

	"enrichment-engine/internal/common/logging"
)

// Recorder writes lineage records to a sink on a fire-and-forget basis.
// Sink failures are logged and never surfaced to the enrichment caller.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	logger  logging.Logger
	wg      sync.WaitGroup
}

// NewRecorder creates a recorder over the given sink
func NewRecorder(sink Sink, timeout time.Duration, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{
		sink:    sink,
		timeout: timeout,
		logger:  logger,
	}
}

// Record persists the record asynchronously. The write is detached from the
// request context: a cancelled request does not roll back provenance for
// effects that already happened.
func (r *Recorder) Record(record Record) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.sink.Record(ctx, record); err != nil {
			r.logger.Warn("lineage recording failed",
				logging.String("record_id", record.RecordID),
				logging.String("entity_id", record.EntityID),
				logging.Err(err),
			)
		}
	}()
}

// Flush blocks until all in-flight recordings have completed. Intended for
// shutdown and tests.
func (r *Recorder) Flush() {
	r.wg.Wait()
}
