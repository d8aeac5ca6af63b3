package port

import (
	"context"

	"github.com/google/uuid"

	"tessera/internal/domain"
)

// SchemaRepository defines the read/write contract for a project's schema
// definition: scalar fields and collections in fixed mode, workflow steps
// and step values in workflow mode. All list methods return elements
// ordered by order_index.
type SchemaRepository interface {
	CreateField(ctx context.Context, field *domain.SchemaField) error
	CreateCollection(ctx context.Context, collection *domain.Collection) error
	CreateProperty(ctx context.Context, property *domain.CollectionProperty) error
	CreateStep(ctx context.Context, step *domain.WorkflowStep) error
	CreateStepValue(ctx context.Context, value *domain.StepValue) error

	GetFields(ctx context.Context, projectID uuid.UUID) ([]domain.SchemaField, error)
	GetCollections(ctx context.Context, projectID uuid.UUID) ([]domain.Collection, error)
	GetProperties(ctx context.Context, collectionID uuid.UUID) ([]domain.CollectionProperty, error)
	GetWorkflowSteps(ctx context.Context, projectID uuid.UUID) ([]domain.WorkflowStep, error)
	GetStepValues(ctx context.Context, stepID uuid.UUID) ([]domain.StepValue, error)
}
