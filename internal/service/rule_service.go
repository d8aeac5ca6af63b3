package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
	"tessera/internal/rules"
)

// CreateRuleInput holds the fields for creating an extraction rule.
type CreateRuleInput struct {
	ProjectID   uuid.UUID
	TargetField *string
	RuleContent string
	RuleConfig  json.RawMessage
	CreatedBy   uuid.UUID
}

// UpdateRuleInput holds the mutable fields of an extraction rule.
type UpdateRuleInput struct {
	TargetField *string
	RuleContent string
	RuleConfig  json.RawMessage
	IsActive    bool
}

// RuleService manages per-project extraction rules.
type RuleService interface {
	CreateRule(ctx context.Context, in CreateRuleInput) (*domain.ExtractionRule, error)
	GetRule(ctx context.Context, ruleID uuid.UUID) (*domain.ExtractionRule, error)
	ListRules(ctx context.Context, projectID uuid.UUID, activeOnly bool) ([]domain.ExtractionRule, error)
	UpdateRule(ctx context.Context, ruleID uuid.UUID, in UpdateRuleInput) (*domain.ExtractionRule, error)
	DeleteRule(ctx context.Context, ruleID uuid.UUID) error
}

type ruleService struct {
	ruleRepo    port.RuleRepository
	projectRepo port.ProjectRepository
}

// NewRuleService creates a new RuleService.
func NewRuleService(ruleRepo port.RuleRepository, projectRepo port.ProjectRepository) RuleService {
	return &ruleService{ruleRepo: ruleRepo, projectRepo: projectRepo}
}

func (s *ruleService) CreateRule(ctx context.Context, in CreateRuleInput) (*domain.ExtractionRule, error) {
	if _, err := s.projectRepo.GetByID(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	if err := validateRuleConfig(in.RuleConfig); err != nil {
		return nil, err
	}
	rule := &domain.ExtractionRule{
		ID:          uuid.New(),
		ProjectID:   in.ProjectID,
		TargetField: in.TargetField,
		RuleContent: in.RuleContent,
		RuleConfig:  in.RuleConfig,
		IsActive:    true,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("ruleService.CreateRule: %w", err)
	}
	return rule, nil
}

func (s *ruleService) GetRule(ctx context.Context, ruleID uuid.UUID) (*domain.ExtractionRule, error) {
	return s.ruleRepo.GetByID(ctx, ruleID)
}

func (s *ruleService) ListRules(ctx context.Context, projectID uuid.UUID, activeOnly bool) ([]domain.ExtractionRule, error) {
	return s.ruleRepo.ListByProject(ctx, projectID, activeOnly)
}

func (s *ruleService) UpdateRule(ctx context.Context, ruleID uuid.UUID, in UpdateRuleInput) (*domain.ExtractionRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if err := validateRuleConfig(in.RuleConfig); err != nil {
		return nil, err
	}
	rule.TargetField = in.TargetField
	rule.RuleContent = in.RuleContent
	rule.RuleConfig = in.RuleConfig
	rule.IsActive = in.IsActive
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("ruleService.UpdateRule: %w", err)
	}
	return rule, nil
}

func (s *ruleService) DeleteRule(ctx context.Context, ruleID uuid.UUID) error {
	return s.ruleRepo.Delete(ctx, ruleID)
}

// validateRuleConfig rejects configs the write-time evaluator would
// silently skip, so bad patterns fail at creation instead.
func validateRuleConfig(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var cfg rules.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("rule config: %w", err)
	}
	if cfg.Pattern != "" {
		if err := rules.CheckPattern(cfg.Pattern); err != nil {
			return fmt.Errorf("rule pattern: %w", err)
		}
	}
	return nil
}
