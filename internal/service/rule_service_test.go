package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
	"tessera/internal/repository/memory"
	"tessera/internal/service"
)

func newRuleService(t *testing.T) (service.RuleService, uuid.UUID) {
	t.Helper()
	projectRepo := memory.NewProjectRepo()
	projectID := uuid.New()
	require.NoError(t, projectRepo.Create(context.Background(), &domain.Project{
		ID: projectID, Name: "p", SchemaMode: domain.SchemaModeFixed, CreatedBy: uuid.New(),
	}))
	return service.NewRuleService(memory.NewRuleRepo(), projectRepo), projectID
}

func TestRuleService_CreateRule(t *testing.T) {
	svc, projectID := newRuleService(t)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, service.CreateRuleInput{
		ProjectID:   projectID,
		TargetField: strPtr("Quantity"),
		RuleContent: "quantities are whole numbers",
		RuleConfig:  json.RawMessage(`{"pattern":"\\.","force_invalid":true}`),
		CreatedBy:   uuid.New(),
	})
	require.NoError(t, err)
	assert.True(t, rule.IsActive)

	got, err := svc.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "quantities are whole numbers", got.RuleContent)
}

func TestRuleService_CreateRuleRejectsBadPattern(t *testing.T) {
	svc, projectID := newRuleService(t)
	_, err := svc.CreateRule(context.Background(), service.CreateRuleInput{
		ProjectID:   projectID,
		RuleContent: "broken",
		RuleConfig:  json.RawMessage(`{"pattern":"["}`),
	})
	assert.Error(t, err)
}

func TestRuleService_CreateRuleRequiresProject(t *testing.T) {
	svc, _ := newRuleService(t)
	_, err := svc.CreateRule(context.Background(), service.CreateRuleInput{
		ProjectID:   uuid.New(),
		RuleContent: "x",
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestRuleService_ListActiveOnly(t *testing.T) {
	svc, projectID := newRuleService(t)
	ctx := context.Background()

	active, err := svc.CreateRule(ctx, service.CreateRuleInput{ProjectID: projectID, RuleContent: "keep"})
	require.NoError(t, err)
	retired, err := svc.CreateRule(ctx, service.CreateRuleInput{ProjectID: projectID, RuleContent: "drop"})
	require.NoError(t, err)

	_, err = svc.UpdateRule(ctx, retired.ID, service.UpdateRuleInput{
		RuleContent: retired.RuleContent, IsActive: false,
	})
	require.NoError(t, err)

	rules, err := svc.ListRules(ctx, projectID, true)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, active.ID, rules[0].ID)

	all, err := svc.ListRules(ctx, projectID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRuleService_DeleteRule(t *testing.T) {
	svc, projectID := newRuleService(t)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, service.CreateRuleInput{ProjectID: projectID, RuleContent: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID))
	_, err = svc.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
}
