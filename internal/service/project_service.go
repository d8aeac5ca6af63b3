package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
	"tessera/internal/schema"
)

// CreateProjectInput holds the fields for creating a project.
type CreateProjectInput struct {
	Name       string
	SchemaMode domain.SchemaMode
	CreatedBy  uuid.UUID
}

// AddFieldInput holds the fields for adding a scalar field to a
// fixed-schema project.
type AddFieldInput struct {
	ProjectID  uuid.UUID
	Name       string
	FieldType  domain.FieldType
	OrderIndex int
}

// AddCollectionInput holds the fields for adding a repeating group.
type AddCollectionInput struct {
	ProjectID  uuid.UUID
	Name       string
	OrderIndex int
}

// AddPropertyInput holds the fields for adding a collection column.
type AddPropertyInput struct {
	CollectionID uuid.UUID
	Name         string
	FieldType    domain.FieldType
	IsIdentifier bool
	OrderIndex   int
}

// AddStepInput holds the fields for adding a workflow step.
type AddStepInput struct {
	ProjectID  uuid.UUID
	StepName   string
	StepType   domain.StepType
	OrderIndex int
}

// AddStepValueInput holds the fields for adding a step value.
type AddStepValueInput struct {
	StepID       uuid.UUID
	ValueName    string
	DataType     domain.FieldType
	ToolID       *uuid.UUID
	IsIdentifier bool
	OrderIndex   int
}

// ProjectService manages projects and their schema definitions.
type ProjectService interface {
	CreateProject(ctx context.Context, in CreateProjectInput) (*domain.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context, offset, limit int) ([]domain.Project, int, error)

	AddField(ctx context.Context, in AddFieldInput) (*domain.SchemaField, error)
	AddCollection(ctx context.Context, in AddCollectionInput) (*domain.Collection, error)
	AddProperty(ctx context.Context, in AddPropertyInput) (*domain.CollectionProperty, error)
	AddStep(ctx context.Context, in AddStepInput) (*domain.WorkflowStep, error)
	AddStepValue(ctx context.Context, in AddStepValueInput) (*domain.StepValue, error)

	ResolveSchema(ctx context.Context, projectID uuid.UUID) (*schema.Resolved, error)
}

type projectService struct {
	projectRepo port.ProjectRepository
	schemaRepo  port.SchemaRepository
	registry    *schema.Registry
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo port.ProjectRepository, schemaRepo port.SchemaRepository, registry *schema.Registry) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		schemaRepo:  schemaRepo,
		registry:    registry,
	}
}

func (s *projectService) CreateProject(ctx context.Context, in CreateProjectInput) (*domain.Project, error) {
	switch in.SchemaMode {
	case domain.SchemaModeFixed, domain.SchemaModeWorkflow:
	default:
		return nil, fmt.Errorf("schema mode %q: %w", in.SchemaMode, domain.ErrInvalidSchema)
	}
	project := &domain.Project{
		ID:         uuid.New(),
		Name:       in.Name,
		SchemaMode: in.SchemaMode,
		CreatedBy:  in.CreatedBy,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("projectService.CreateProject: %w", err)
	}
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	return s.projectRepo.GetByID(ctx, projectID)
}

func (s *projectService) ListProjects(ctx context.Context, offset, limit int) ([]domain.Project, int, error) {
	return s.projectRepo.List(ctx, offset, limit)
}

func (s *projectService) AddField(ctx context.Context, in AddFieldInput) (*domain.SchemaField, error) {
	if err := s.requireMode(ctx, in.ProjectID, domain.SchemaModeFixed); err != nil {
		return nil, err
	}
	if !domain.AllowedFieldTypes[in.FieldType] {
		return nil, fmt.Errorf("field type %q: %w", in.FieldType, domain.ErrInvalidFieldType)
	}
	field := &domain.SchemaField{
		ID:         uuid.New(),
		ProjectID:  in.ProjectID,
		Name:       in.Name,
		FieldType:  in.FieldType,
		OrderIndex: in.OrderIndex,
	}
	if err := s.schemaRepo.CreateField(ctx, field); err != nil {
		return nil, fmt.Errorf("projectService.AddField: %w", err)
	}
	return field, nil
}

func (s *projectService) AddCollection(ctx context.Context, in AddCollectionInput) (*domain.Collection, error) {
	if err := s.requireMode(ctx, in.ProjectID, domain.SchemaModeFixed); err != nil {
		return nil, err
	}
	collection := &domain.Collection{
		ID:         uuid.New(),
		ProjectID:  in.ProjectID,
		Name:       in.Name,
		OrderIndex: in.OrderIndex,
	}
	if err := s.schemaRepo.CreateCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("projectService.AddCollection: %w", err)
	}
	return collection, nil
}

func (s *projectService) AddProperty(ctx context.Context, in AddPropertyInput) (*domain.CollectionProperty, error) {
	if !domain.AllowedFieldTypes[in.FieldType] {
		return nil, fmt.Errorf("field type %q: %w", in.FieldType, domain.ErrInvalidFieldType)
	}
	if in.IsIdentifier {
		existing, err := s.schemaRepo.GetProperties(ctx, in.CollectionID)
		if err != nil {
			return nil, fmt.Errorf("projectService.AddProperty: %w", err)
		}
		for _, p := range existing {
			if p.IsIdentifier {
				return nil, domain.ErrDuplicateIdentifier
			}
		}
	}
	property := &domain.CollectionProperty{
		ID:           uuid.New(),
		CollectionID: in.CollectionID,
		Name:         in.Name,
		FieldType:    in.FieldType,
		IsIdentifier: in.IsIdentifier,
		OrderIndex:   in.OrderIndex,
	}
	if err := s.schemaRepo.CreateProperty(ctx, property); err != nil {
		return nil, fmt.Errorf("projectService.AddProperty: %w", err)
	}
	return property, nil
}

func (s *projectService) AddStep(ctx context.Context, in AddStepInput) (*domain.WorkflowStep, error) {
	if err := s.requireMode(ctx, in.ProjectID, domain.SchemaModeWorkflow); err != nil {
		return nil, err
	}
	step := &domain.WorkflowStep{
		ID:         uuid.New(),
		ProjectID:  in.ProjectID,
		StepName:   in.StepName,
		StepType:   in.StepType,
		OrderIndex: in.OrderIndex,
	}
	if err := s.schemaRepo.CreateStep(ctx, step); err != nil {
		return nil, fmt.Errorf("projectService.AddStep: %w", err)
	}
	return step, nil
}

func (s *projectService) AddStepValue(ctx context.Context, in AddStepValueInput) (*domain.StepValue, error) {
	if !domain.AllowedFieldTypes[in.DataType] {
		return nil, fmt.Errorf("data type %q: %w", in.DataType, domain.ErrInvalidFieldType)
	}
	if in.IsIdentifier {
		existing, err := s.schemaRepo.GetStepValues(ctx, in.StepID)
		if err != nil {
			return nil, fmt.Errorf("projectService.AddStepValue: %w", err)
		}
		for _, v := range existing {
			if v.IsIdentifier {
				return nil, domain.ErrDuplicateIdentifier
			}
		}
	}
	value := &domain.StepValue{
		ID:           uuid.New(),
		StepID:       in.StepID,
		ValueName:    in.ValueName,
		DataType:     in.DataType,
		ToolID:       in.ToolID,
		IsIdentifier: in.IsIdentifier,
		OrderIndex:   in.OrderIndex,
	}
	if err := s.schemaRepo.CreateStepValue(ctx, value); err != nil {
		return nil, fmt.Errorf("projectService.AddStepValue: %w", err)
	}
	return value, nil
}

func (s *projectService) ResolveSchema(ctx context.Context, projectID uuid.UUID) (*schema.Resolved, error) {
	return s.registry.Resolve(ctx, projectID)
}

func (s *projectService) requireMode(ctx context.Context, projectID uuid.UUID, mode domain.SchemaMode) error {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.SchemaMode != mode {
		return fmt.Errorf("project %s is %s-mode: %w", projectID, project.SchemaMode, domain.ErrInvalidSchema)
	}
	return nil
}
