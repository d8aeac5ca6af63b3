package port

import (
	"context"

	"github.com/google/uuid"

	"tessera/internal/domain"
)

// FieldValidationRepository defines the contract for grid cell persistence.
// A cell is addressed by (sessionID, elementID, recordIndex); recordIndex
// is 0 for scalar elements.
type FieldValidationRepository interface {
	Create(ctx context.Context, cell *domain.FieldValidation) error
	GetByID(ctx context.Context, cellID uuid.UUID) (*domain.FieldValidation, error)
	GetByKey(ctx context.Context, sessionID, elementID uuid.UUID, recordIndex int) (*domain.FieldValidation, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.FieldValidation, error)
	ListByGroup(ctx context.Context, sessionID, groupID uuid.UUID) ([]domain.FieldValidation, error)
	Update(ctx context.Context, cell *domain.FieldValidation) error
}

// ReferenceRepository defines the contract for raw pass-scoped identifier
// references. Inserts are append-only; rows are never updated.
type ReferenceRepository interface {
	CreateBatch(ctx context.Context, refs []domain.IdentifierReference) error
	// ListUpTo returns all references for the session with
	// extraction_number <= maxExtractionNumber, ordered by
	// extraction_number, then record_index.
	ListUpTo(ctx context.Context, sessionID uuid.UUID, maxExtractionNumber int) ([]domain.IdentifierReference, error)
}

// RuleRepository defines the contract for extraction rule persistence.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.ExtractionRule) error
	GetByID(ctx context.Context, ruleID uuid.UUID) (*domain.ExtractionRule, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, activeOnly bool) ([]domain.ExtractionRule, error)
	Update(ctx context.Context, rule *domain.ExtractionRule) error
	Delete(ctx context.Context, ruleID uuid.UUID) error
}
