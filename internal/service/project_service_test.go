package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
	"tessera/internal/repository/memory"
	"tessera/internal/schema"
	"tessera/internal/service"
)

func newProjectService() service.ProjectService {
	projectRepo := memory.NewProjectRepo()
	schemaRepo := memory.NewSchemaRepo()
	return service.NewProjectService(projectRepo, schemaRepo, schema.NewRegistry(projectRepo, schemaRepo))
}

func TestProjectService_CreateProject(t *testing.T) {
	svc := newProjectService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, service.CreateProjectInput{
		Name: "invoices", SchemaMode: domain.SchemaModeFixed, CreatedBy: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "invoices", project.Name)

	got, err := svc.GetProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)
}

func TestProjectService_CreateProjectRejectsUnknownMode(t *testing.T) {
	svc := newProjectService()
	_, err := svc.CreateProject(context.Background(), service.CreateProjectInput{
		Name: "x", SchemaMode: "freeform",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestProjectService_AddFieldValidatesType(t *testing.T) {
	svc := newProjectService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, service.CreateProjectInput{
		Name: "p", SchemaMode: domain.SchemaModeFixed,
	})
	require.NoError(t, err)

	_, err = svc.AddField(ctx, service.AddFieldInput{
		ProjectID: project.ID, Name: "Total", FieldType: "decimal",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFieldType)

	field, err := svc.AddField(ctx, service.AddFieldInput{
		ProjectID: project.ID, Name: "Total", FieldType: domain.FieldTypeNumber,
	})
	require.NoError(t, err)
	assert.Equal(t, project.ID, field.ProjectID)
}

func TestProjectService_AddFieldRequiresFixedMode(t *testing.T) {
	svc := newProjectService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, service.CreateProjectInput{
		Name: "wf", SchemaMode: domain.SchemaModeWorkflow,
	})
	require.NoError(t, err)

	_, err = svc.AddField(ctx, service.AddFieldInput{
		ProjectID: project.ID, Name: "Total", FieldType: domain.FieldTypeNumber,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}

func TestProjectService_SecondIdentifierRejected(t *testing.T) {
	svc := newProjectService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, service.CreateProjectInput{
		Name: "p", SchemaMode: domain.SchemaModeFixed,
	})
	require.NoError(t, err)
	collection, err := svc.AddCollection(ctx, service.AddCollectionInput{
		ProjectID: project.ID, Name: "Items",
	})
	require.NoError(t, err)

	_, err = svc.AddProperty(ctx, service.AddPropertyInput{
		CollectionID: collection.ID, Name: "SKU", FieldType: domain.FieldTypeText, IsIdentifier: true,
	})
	require.NoError(t, err)

	_, err = svc.AddProperty(ctx, service.AddPropertyInput{
		CollectionID: collection.ID, Name: "Serial", FieldType: domain.FieldTypeText, IsIdentifier: true,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
}

func TestProjectService_WorkflowSchema(t *testing.T) {
	svc := newProjectService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, service.CreateProjectInput{
		Name: "wf", SchemaMode: domain.SchemaModeWorkflow,
	})
	require.NoError(t, err)

	step, err := svc.AddStep(ctx, service.AddStepInput{
		ProjectID: project.ID, StepName: "Readings", StepType: domain.StepTypeList,
	})
	require.NoError(t, err)

	_, err = svc.AddStepValue(ctx, service.AddStepValueInput{
		StepID: step.ID, ValueName: "Probe", DataType: domain.FieldTypeText, IsIdentifier: true,
	})
	require.NoError(t, err)

	sc, err := svc.ResolveSchema(ctx, project.ID)
	require.NoError(t, err)
	probe, ok := sc.ElementByName("Probe")
	require.True(t, ok)
	assert.True(t, probe.IsIdentifier)
}
