package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type schemaRepo struct {
	db *sqlx.DB
}

// NewSchemaRepo creates a new PostgreSQL-backed SchemaRepository.
func NewSchemaRepo(db *sqlx.DB) port.SchemaRepository {
	return &schemaRepo{db: db}
}

func (r *schemaRepo) CreateField(ctx context.Context, field *domain.SchemaField) error {
	field.CreatedAt = time.Now().UTC()
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO schema_fields (id, project_id, name, field_type, order_index, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		field.ID, field.ProjectID, field.Name, field.FieldType,
		field.OrderIndex, field.CreatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.CreateField: %w", err)
	}
	return nil
}

func (r *schemaRepo) CreateCollection(ctx context.Context, collection *domain.Collection) error {
	collection.CreatedAt = time.Now().UTC()
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO collections (id, project_id, name, order_index, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		collection.ID, collection.ProjectID, collection.Name,
		collection.OrderIndex, collection.CreatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.CreateCollection: %w", err)
	}
	return nil
}

func (r *schemaRepo) CreateProperty(ctx context.Context, property *domain.CollectionProperty) error {
	property.CreatedAt = time.Now().UTC()
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO collection_properties (
			id, collection_id, name, field_type, is_identifier, order_index, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		property.ID, property.CollectionID, property.Name, property.FieldType,
		property.IsIdentifier, property.OrderIndex, property.CreatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.CreateProperty: %w", err)
	}
	return nil
}

func (r *schemaRepo) CreateStep(ctx context.Context, step *domain.WorkflowStep) error {
	step.CreatedAt = time.Now().UTC()
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO workflow_steps (id, project_id, step_name, step_type, order_index, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		step.ID, step.ProjectID, step.StepName, step.StepType,
		step.OrderIndex, step.CreatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.CreateStep: %w", err)
	}
	return nil
}

func (r *schemaRepo) CreateStepValue(ctx context.Context, value *domain.StepValue) error {
	value.CreatedAt = time.Now().UTC()
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO step_values (
			id, step_id, value_name, data_type, tool_id, is_identifier, order_index, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		value.ID, value.StepID, value.ValueName, value.DataType,
		value.ToolID, value.IsIdentifier, value.OrderIndex, value.CreatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.CreateStepValue: %w", err)
	}
	return nil
}

func (r *schemaRepo) GetFields(ctx context.Context, projectID uuid.UUID) ([]domain.SchemaField, error) {
	var fields []domain.SchemaField
	err := q(ctx, r.db).SelectContext(ctx, &fields,
		"SELECT * FROM schema_fields WHERE project_id = $1 ORDER BY order_index", projectID)
	if err != nil {
		return nil, fmt.Errorf("schemaRepo.GetFields: %w", err)
	}
	return fields, nil
}

func (r *schemaRepo) GetCollections(ctx context.Context, projectID uuid.UUID) ([]domain.Collection, error) {
	var collections []domain.Collection
	err := q(ctx, r.db).SelectContext(ctx, &collections,
		"SELECT * FROM collections WHERE project_id = $1 ORDER BY order_index", projectID)
	if err != nil {
		return nil, fmt.Errorf("schemaRepo.GetCollections: %w", err)
	}
	return collections, nil
}

func (r *schemaRepo) GetProperties(ctx context.Context, collectionID uuid.UUID) ([]domain.CollectionProperty, error) {
	var properties []domain.CollectionProperty
	err := q(ctx, r.db).SelectContext(ctx, &properties,
		"SELECT * FROM collection_properties WHERE collection_id = $1 ORDER BY order_index", collectionID)
	if err != nil {
		return nil, fmt.Errorf("schemaRepo.GetProperties: %w", err)
	}
	return properties, nil
}

func (r *schemaRepo) GetWorkflowSteps(ctx context.Context, projectID uuid.UUID) ([]domain.WorkflowStep, error) {
	var steps []domain.WorkflowStep
	err := q(ctx, r.db).SelectContext(ctx, &steps,
		"SELECT * FROM workflow_steps WHERE project_id = $1 ORDER BY order_index", projectID)
	if err != nil {
		return nil, fmt.Errorf("schemaRepo.GetWorkflowSteps: %w", err)
	}
	return steps, nil
}

func (r *schemaRepo) GetStepValues(ctx context.Context, stepID uuid.UUID) ([]domain.StepValue, error) {
	var values []domain.StepValue
	err := q(ctx, r.db).SelectContext(ctx, &values,
		"SELECT * FROM step_values WHERE step_id = $1 ORDER BY order_index", stepID)
	if err != nil {
		return nil, fmt.Errorf("schemaRepo.GetStepValues: %w", err)
	}
	return values, nil
}
