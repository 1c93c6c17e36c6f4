package lineage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestHash_DeterministicAndDistinct(t *testing.T) {
	a := Hash(map[string]interface{}{"name": "Acme", "score": 750})
	b := Hash(map[string]interface{}{"score": 750, "name": "Acme"})
	c := Hash(map[string]interface{}{"name": "Acme", "score": 751})

	if a != b {
		t.Error("Hash() should be independent of map insertion order")
	}
	if a == c {
		t.Error("Hash() should differ for different values")
	}
	if len(a) != 64 {
		t.Errorf("Hash() length = %d, want 64 hex chars", len(a))
	}
}

func TestNewRecord(t *testing.T) {
	record := NewRecord("company-12345", "enrichment-engine", OperationEnrichment)

	if record.RecordID == "" {
		t.Error("NewRecord() should assign a record ID")
	}
	if record.EntityID != "company-12345" || record.Operation != OperationEnrichment {
		t.Errorf("NewRecord() = %+v", record)
	}
	if record.Timestamp.IsZero() {
		t.Error("NewRecord() should set a timestamp")
	}
}

func TestMemorySink_AppendOnly(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record := NewRecord(fmt.Sprintf("entity-%d", i), "test", OperationEnrichment)
		if err := sink.Record(ctx, record); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	records := sink.Records()
	if len(records) != 3 {
		t.Fatalf("Records() = %d entries, want 3", len(records))
	}
	if records[0].EntityID != "entity-0" || records[2].EntityID != "entity-2" {
		t.Error("Records() should preserve append order")
	}
}

func TestSQLiteSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineage.db")
	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("NewSQLiteSink() error = %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	record := NewRecord("company-12345", "enrichment-engine", OperationEnrichment)
	record.InputHash = Hash("in")
	record.OutputHash = Hash("out")
	record.TraceID = "trace-1"
	record.Metadata = map[string]interface{}{"provider": "acme"}

	if err := sink.Record(ctx, record); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	count, err := sink.CountByEntity(ctx, "company-12345")
	if err != nil {
		t.Fatalf("CountByEntity() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountByEntity() = %d, want 1", count)
	}

	// Duplicate record IDs violate the append-only primary key.
	if err := sink.Record(ctx, record); err == nil {
		t.Error("Record() should reject duplicate record IDs")
	}
}

// failingSink always errors
type failingSink struct{}

func (failingSink) Record(ctx context.Context, record Record) error {
	return fmt.Errorf("sink unavailable")
}

func TestRecorder_FireAndForget(t *testing.T) {
	sink := NewMemorySink()
	recorder := NewRecorder(sink, time.Second, nil)

	recorder.Record(NewRecord("entity-1", "test", OperationEnrichment))
	recorder.Record(NewRecord("entity-2", "test", OperationEnrichment))
	recorder.Flush()

	if len(sink.Records()) != 2 {
		t.Errorf("sink holds %d records, want 2", len(sink.Records()))
	}
}

func TestRecorder_SinkFailureIsAbsorbed(t *testing.T) {
	recorder := NewRecorder(failingSink{}, time.Second, nil)

	// Must not panic or block; the failure is logged only.
	recorder.Record(NewRecord("entity-1", "test", OperationEnrichment))
	recorder.Flush()
}
