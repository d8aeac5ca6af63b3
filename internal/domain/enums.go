package domain

// SchemaMode selects how a project describes its extraction target.
type SchemaMode string

const (
	SchemaModeFixed    SchemaMode = "fixed"    // scalar fields + collections
	SchemaModeWorkflow SchemaMode = "workflow" // ordered workflow steps
)

// FieldType is the primitive type of a schema field or step value.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeBoolean FieldType = "boolean"
)

// AllowedFieldTypes enumerates the accepted primitive types.
var AllowedFieldTypes = map[FieldType]bool{
	FieldTypeText:    true,
	FieldTypeNumber:  true,
	FieldTypeDate:    true,
	FieldTypeBoolean: true,
}

// StepType distinguishes scalar workflow steps from repeating ones.
type StepType string

const (
	StepTypeSingle StepType = "single"
	StepTypeList   StepType = "list"
)

// SessionStatus is the lifecycle of an extraction session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// JobStatus is the lifecycle of an extraction job (one pass).
// Transitions are one-way: pending -> running -> completed|failed|cancelled.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ValidationStatus is the review state of a single grid cell.
type ValidationStatus string

const (
	ValidationStatusPending ValidationStatus = "pending"
	ValidationStatusValid   ValidationStatus = "valid"
	ValidationStatusInvalid ValidationStatus = "invalid"
)
