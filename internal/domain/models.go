package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project owns a schema definition and zero or more extraction sessions.
type Project struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	SchemaMode SchemaMode `db:"schema_mode" json:"schema_mode"`
	CreatedBy  uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// SchemaField is a scalar field of a fixed-schema project.
type SchemaField struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProjectID  uuid.UUID `db:"project_id" json:"project_id"`
	Name       string    `db:"name" json:"name"`
	FieldType  FieldType `db:"field_type" json:"field_type"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Collection is a named repeating group of a fixed-schema project.
type Collection struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProjectID  uuid.UUID `db:"project_id" json:"project_id"`
	Name       string    `db:"name" json:"name"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CollectionProperty is one column of a collection. At most one property
// per collection carries IsIdentifier.
type CollectionProperty struct {
	ID           uuid.UUID `db:"id" json:"id"`
	CollectionID uuid.UUID `db:"collection_id" json:"collection_id"`
	Name         string    `db:"name" json:"name"`
	FieldType    FieldType `db:"field_type" json:"field_type"`
	IsIdentifier bool      `db:"is_identifier" json:"is_identifier"`
	OrderIndex   int       `db:"order_index" json:"order_index"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// WorkflowStep is a named unit of extraction in a workflow-schema project.
// A list-typed step behaves like a collection.
type WorkflowStep struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProjectID  uuid.UUID `db:"project_id" json:"project_id"`
	StepName   string    `db:"step_name" json:"step_name"`
	StepType   StepType  `db:"step_type" json:"step_type"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StepValue is one typed value of a workflow step. For list steps exactly
// one value is marked IsIdentifier. ToolID optionally references a
// reusable extraction tool the worker knows how to run.
type StepValue struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	StepID       uuid.UUID  `db:"step_id" json:"step_id"`
	ValueName    string     `db:"value_name" json:"value_name"`
	DataType     FieldType  `db:"data_type" json:"data_type"`
	ToolID       *uuid.UUID `db:"tool_id" json:"tool_id"`
	IsIdentifier bool       `db:"is_identifier" json:"is_identifier"`
	OrderIndex   int        `db:"order_index" json:"order_index"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// ExtractionSession is one logical extraction effort over a document set.
// Sessions are append-mostly: jobs and grid cells accumulate, nothing is
// partially deleted.
type ExtractionSession struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	ProjectID     uuid.UUID       `db:"project_id" json:"project_id"`
	Status        SessionStatus   `db:"status" json:"status"`
	DocumentCount int             `db:"document_count" json:"document_count"`
	ExtractedData json.RawMessage `db:"extracted_data" json:"extracted_data"`
	CreatedBy     uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// JobLogEntry is one timestamped line of a job's append-only log.
type JobLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// ExtractionJob is one pass attempt against a session's documents.
// Mutated only by the job manager; terminal states are immutable.
type ExtractionJob struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	SessionID        uuid.UUID       `db:"session_id" json:"session_id"`
	ProjectID        uuid.UUID       `db:"project_id" json:"project_id"`
	ExtractionNumber int             `db:"extraction_number" json:"extraction_number"`
	DocumentIDs      json.RawMessage `db:"document_ids" json:"document_ids"`
	Status           JobStatus       `db:"status" json:"status"`
	Progress         int             `db:"progress" json:"progress"`
	CurrentStep      string          `db:"current_step" json:"current_step"`
	Logs             json.RawMessage `db:"logs" json:"logs"`
	Results          json.RawMessage `db:"results" json:"results"`
	RecordsProcessed int             `db:"records_processed" json:"records_processed"`
	ProcessingTimeMs int64           `db:"processing_time_ms" json:"processing_time_ms"`
	ErrorMessage     string          `db:"error_message" json:"error_message"`
	StartedAt        *time.Time      `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time      `db:"completed_at" json:"completed_at"`
	CreatedBy        uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// DocumentIDList decodes the job's document-id set.
func (j *ExtractionJob) DocumentIDList() []uuid.UUID {
	var ids []uuid.UUID
	_ = json.Unmarshal(j.DocumentIDs, &ids)
	return ids
}

// LogEntries decodes the job's log lines.
func (j *ExtractionJob) LogEntries() []JobLogEntry {
	var entries []JobLogEntry
	_ = json.Unmarshal(j.Logs, &entries)
	return entries
}

// IdentifierReference is one raw fact emitted by a single pass:
// (session, extraction number, record index, field name) -> value.
// Append-only; later passes supersede by restating the same
// recordIndex/fieldName at a higher extraction number.
type IdentifierReference struct {
	ID               uuid.UUID `db:"id" json:"id"`
	SessionID        uuid.UUID `db:"session_id" json:"session_id"`
	ExtractionNumber int       `db:"extraction_number" json:"extraction_number"`
	RecordIndex      int       `db:"record_index" json:"record_index"`
	FieldName        string    `db:"field_name" json:"field_name"`
	ExtractedValue   *string   `db:"extracted_value" json:"extracted_value"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// FieldValidation is one authoritative grid cell. ElementID is the schema
// element (field or step value) the cell belongs to; GroupID is its
// collection or list step, nil for scalars. IdentifierID names the row a
// repeating-group cell belongs to. ElementName keeps the raw reported
// field name when the element could not be resolved against the schema.
type FieldValidation struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	SessionID        uuid.UUID        `db:"session_id" json:"session_id"`
	ElementID        uuid.UUID        `db:"element_id" json:"element_id"`
	GroupID          *uuid.UUID       `db:"group_id" json:"group_id"`
	ElementName      *string          `db:"element_name" json:"element_name,omitempty"`
	RecordIndex      int              `db:"record_index" json:"record_index"`
	IdentifierID     string           `db:"identifier_id" json:"identifier_id"`
	ExtractedValue   *string          `db:"extracted_value" json:"extracted_value"`
	ValidationStatus ValidationStatus `db:"validation_status" json:"validation_status"`
	AIReasoning      string           `db:"ai_reasoning" json:"ai_reasoning"`
	ConfidenceScore  float64          `db:"confidence_score" json:"confidence_score"`
	ManuallyVerified bool             `db:"manually_verified" json:"manually_verified"`
	ManuallyUpdated  bool             `db:"manually_updated" json:"manually_updated"`
	SchemaMismatch   bool             `db:"schema_mismatch" json:"schema_mismatch"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// ExtractionRule is a per-project declarative rule applied at cell-write
// time. TargetField nil means the rule applies to every field. RuleConfig
// carries the pattern evaluator's settings; RuleContent is free text
// forwarded to the worker.
type ExtractionRule struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ProjectID   uuid.UUID       `db:"project_id" json:"project_id"`
	TargetField *string         `db:"target_field" json:"target_field"`
	RuleContent string          `db:"rule_content" json:"rule_content"`
	RuleConfig  json.RawMessage `db:"rule_config" json:"rule_config"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedBy   uuid.UUID       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// JobCacheEntry stores an intermediate artifact keyed per job with an
// expiry. Expired rows are skipped at read time and swept periodically.
type JobCacheEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	JobID     uuid.UUID       `db:"job_id" json:"job_id"`
	CacheKey  string          `db:"cache_key" json:"cache_key"`
	Data      json.RawMessage `db:"data" json:"data"`
	ExpiresAt time.Time       `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
