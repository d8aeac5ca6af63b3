package port

import (
	"context"

	"github.com/google/uuid"
)

// TargetField describes one schema element the worker should extract.
type TargetField struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Group        string `json:"group,omitempty"`
	IsIdentifier bool   `json:"is_identifier"`
}

// KnownRow is one already-merged row handed to a later pass so the worker
// can skip settled fields and focus on gaps.
type KnownRow struct {
	RecordIndex int                `json:"record_index"`
	Fields      map[string]*string `json:"fields"`
}

// WorkerRule is the free-text rule content forwarded to the worker.
type WorkerRule struct {
	TargetField *string `json:"target_field"`
	Content     string  `json:"content"`
}

// WorkerInput is the single JSON object written to the worker's stdin.
type WorkerInput struct {
	SessionID            uuid.UUID     `json:"session_id"`
	DocumentIDs          []uuid.UUID   `json:"document_ids"`
	TargetFields         []TargetField `json:"target_fields"`
	IdentifierReferences []KnownRow    `json:"identifier_references"`
	ExtractionRules      []WorkerRule  `json:"extraction_rules"`
	ExtractionNumber     int           `json:"extraction_number"`
}

// WorkerFact is one raw extracted value reported by the worker.
type WorkerFact struct {
	RecordIndex int     `json:"record_index"`
	FieldName   string  `json:"field_name"`
	Value       *string `json:"value"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// WorkerResult is the parsed final output block of a successful run.
type WorkerResult struct {
	RecordCount int
	Facts       []WorkerFact
	RawOutput   string
}

// WorkerProgress is one progress update scanned from the worker's stdout.
type WorkerProgress struct {
	Progress int
	Step     string
}

// ExtractionWorker abstracts the external worker process boundary.
// onProgress may be nil. Cancelling ctx terminates the underlying process.
type ExtractionWorker interface {
	Run(ctx context.Context, input WorkerInput, onProgress func(WorkerProgress)) (*WorkerResult, error)
}
