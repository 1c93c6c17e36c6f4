// Package lineage records provenance for every completed enrichment run:
// input/output hashes, the responsible operator and trace correlation.
// Records are append-only; recording failures never affect the response
// already produced.
package lineage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names the kind of data transformation a record captures
type Operation string

const (
	// OperationEnrichment marks records produced by the enrichment pipeline
	OperationEnrichment Operation = "ENRICHMENT"
	// OperationTransformation marks records produced by standalone transforms
	OperationTransformation Operation = "TRANSFORMATION"
)

// Record is one immutable provenance entry
type Record struct {
	RecordID     string                 `json:"record_id"`
	EntityID     string                 `json:"entity_id"`
	SourceSystem string                 `json:"source_system"`
	Operation    Operation              `json:"operation"`
	OperatorID   string                 `json:"operator_id,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	InputHash    string                 `json:"input_hash"`
	OutputHash   string                 `json:"output_hash"`
	TraceID      string                 `json:"trace_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewRecord builds a record with a generated ID and current timestamp
func NewRecord(entityID, sourceSystem string, op Operation) Record {
	return Record{
		RecordID:     uuid.NewString(),
		EntityID:     entityID,
		SourceSystem: sourceSystem,
		Operation:    op,
		Timestamp:    time.Now().UTC(),
	}
}

// Hash computes the canonical SHA-256 digest of a value for provenance
// comparison. Equal values always hash equally; map keys are sorted by the
// JSON encoder.
func Hash(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
