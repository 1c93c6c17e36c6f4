package lineage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"enrichment-engine/internal/common/errors"
)

// Sink persists lineage records. Implementations may be external services;
// the engine only requires best-effort, append-only semantics.
type Sink interface {
	Record(ctx context.Context, record Record) error
}

// MemorySink is the in-memory default sink
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends a lineage record
func (m *MemorySink) Record(ctx context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of all recorded entries in append order
func (m *MemorySink) Records() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// SQLiteSink persists lineage records to a local SQLite database
type SQLiteSink struct {
	db *sql.DB
}

const lineageSchema = `
CREATE TABLE IF NOT EXISTS lineage_records (
	record_id     TEXT PRIMARY KEY,
	entity_id     TEXT NOT NULL,
	source_system TEXT NOT NULL,
	operation     TEXT NOT NULL,
	operator_id   TEXT,
	timestamp     DATETIME NOT NULL,
	input_hash    TEXT NOT NULL,
	output_hash   TEXT NOT NULL,
	trace_id      TEXT,
	metadata      TEXT
);
CREATE INDEX IF NOT EXISTS idx_lineage_entity ON lineage_records(entity_id);
CREATE INDEX IF NOT EXISTS idx_lineage_trace ON lineage_records(trace_id);
`

// NewSQLiteSink opens (and migrates) a SQLite-backed sink at the given path
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.LineageError("failed to open lineage database", err)
	}
	if _, err := db.Exec(lineageSchema); err != nil {
		db.Close()
		return nil, errors.LineageError("failed to migrate lineage schema", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Record inserts a lineage record
func (s *SQLiteSink) Record(ctx context.Context, record Record) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lineage_records
			(record_id, entity_id, source_system, operation, operator_id, timestamp, input_hash, output_hash, trace_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RecordID, record.EntityID, record.SourceSystem, string(record.Operation),
		record.OperatorID, record.Timestamp, record.InputHash, record.OutputHash,
		record.TraceID, string(metadata),
	)
	if err != nil {
		return errors.LineageError("failed to insert lineage record", err)
	}
	return nil
}

// CountByEntity returns the number of records for one entity
func (s *SQLiteSink) CountByEntity(ctx context.Context, entityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lineage_records WHERE entity_id = ?`, entityID,
	).Scan(&count)
	if err != nil {
		return 0, errors.LineageError("failed to count lineage records", err)
	}
	return count, nil
}

// Close releases the underlying database handle
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

var (
	_ Sink = (*MemorySink)(nil)
	_ Sink = (*SQLiteSink)(nil)
)
