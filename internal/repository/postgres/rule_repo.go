package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type ruleRepo struct {
	db *sqlx.DB
}

// NewRuleRepo creates a new PostgreSQL-backed RuleRepository.
func NewRuleRepo(db *sqlx.DB) port.RuleRepository {
	return &ruleRepo{db: db}
}

func (r *ruleRepo) Create(ctx context.Context, rule *domain.ExtractionRule) error {
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO extraction_rules (
			id, project_id, target_field, rule_content, rule_config,
			is_active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rule.ID, rule.ProjectID, rule.TargetField, rule.RuleContent, rule.RuleConfig,
		rule.IsActive, rule.CreatedBy, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ruleRepo.Create: %w", err)
	}
	return nil
}

func (r *ruleRepo) GetByID(ctx context.Context, ruleID uuid.UUID) (*domain.ExtractionRule, error) {
	var rule domain.ExtractionRule
	err := q(ctx, r.db).GetContext(ctx, &rule,
		"SELECT * FROM extraction_rules WHERE id = $1", ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, fmt.Errorf("ruleRepo.GetByID: %w", err)
	}
	return &rule, nil
}

func (r *ruleRepo) ListByProject(ctx context.Context, projectID uuid.UUID, activeOnly bool) ([]domain.ExtractionRule, error) {
	query := "SELECT * FROM extraction_rules WHERE project_id = $1"
	if activeOnly {
		query += " AND is_active"
	}
	query += " ORDER BY created_at"

	var rulesOut []domain.ExtractionRule
	err := q(ctx, r.db).SelectContext(ctx, &rulesOut, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("ruleRepo.ListByProject: %w", err)
	}
	return rulesOut, nil
}

func (r *ruleRepo) Update(ctx context.Context, rule *domain.ExtractionRule) error {
	rule.UpdatedAt = time.Now().UTC()
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE extraction_rules SET
			target_field = $1, rule_content = $2, rule_config = $3,
			is_active = $4, updated_at = $5
		 WHERE id = $6`,
		rule.TargetField, rule.RuleContent, rule.RuleConfig,
		rule.IsActive, rule.UpdatedAt, rule.ID)
	if err != nil {
		return fmt.Errorf("ruleRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func (r *ruleRepo) Delete(ctx context.Context, ruleID uuid.UUID) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		"DELETE FROM extraction_rules WHERE id = $1", ruleID)
	if err != nil {
		return fmt.Errorf("ruleRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}
