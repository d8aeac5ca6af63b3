package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type schemaRepo struct {
	mu          sync.RWMutex
	fields      map[uuid.UUID]domain.SchemaField
	collections map[uuid.UUID]domain.Collection
	properties  map[uuid.UUID]domain.CollectionProperty
	steps       map[uuid.UUID]domain.WorkflowStep
	values      map[uuid.UUID]domain.StepValue
}

// NewSchemaRepo creates a new in-memory SchemaRepository.
func NewSchemaRepo() port.SchemaRepository {
	return &schemaRepo{
		fields:      make(map[uuid.UUID]domain.SchemaField),
		collections: make(map[uuid.UUID]domain.Collection),
		properties:  make(map[uuid.UUID]domain.CollectionProperty),
		steps:       make(map[uuid.UUID]domain.WorkflowStep),
		values:      make(map[uuid.UUID]domain.StepValue),
	}
}

func (r *schemaRepo) CreateField(ctx context.Context, field *domain.SchemaField) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	field.CreatedAt = time.Now().UTC()
	r.fields[field.ID] = *field
	return nil
}

func (r *schemaRepo) CreateCollection(ctx context.Context, collection *domain.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	collection.CreatedAt = time.Now().UTC()
	r.collections[collection.ID] = *collection
	return nil
}

func (r *schemaRepo) CreateProperty(ctx context.Context, property *domain.CollectionProperty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	property.CreatedAt = time.Now().UTC()
	r.properties[property.ID] = *property
	return nil
}

func (r *schemaRepo) CreateStep(ctx context.Context, step *domain.WorkflowStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	step.CreatedAt = time.Now().UTC()
	r.steps[step.ID] = *step
	return nil
}

func (r *schemaRepo) CreateStepValue(ctx context.Context, value *domain.StepValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	value.CreatedAt = time.Now().UTC()
	r.values[value.ID] = *value
	return nil
}

func (r *schemaRepo) GetFields(ctx context.Context, projectID uuid.UUID) ([]domain.SchemaField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SchemaField
	for _, f := range r.fields {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *schemaRepo) GetCollections(ctx context.Context, projectID uuid.UUID) ([]domain.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Collection
	for _, c := range r.collections {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *schemaRepo) GetProperties(ctx context.Context, collectionID uuid.UUID) ([]domain.CollectionProperty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.CollectionProperty
	for _, p := range r.properties {
		if p.CollectionID == collectionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *schemaRepo) GetWorkflowSteps(ctx context.Context, projectID uuid.UUID) ([]domain.WorkflowStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WorkflowStep
	for _, s := range r.steps {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *schemaRepo) GetStepValues(ctx context.Context, stepID uuid.UUID) ([]domain.StepValue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.StepValue
	for _, v := range r.values {
		if v.StepID == stepID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}
