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

type fieldValidationRepo struct {
	db *sqlx.DB
}

// NewFieldValidationRepo creates a new PostgreSQL-backed
// FieldValidationRepository.
func NewFieldValidationRepo(db *sqlx.DB) port.FieldValidationRepository {
	return &fieldValidationRepo{db: db}
}

func (r *fieldValidationRepo) Create(ctx context.Context, cell *domain.FieldValidation) error {
	now := time.Now().UTC()
	if cell.CreatedAt.IsZero() {
		cell.CreatedAt = now
	}
	if cell.UpdatedAt.IsZero() {
		cell.UpdatedAt = now
	}

	query := `INSERT INTO field_validations (
		id, session_id, element_id, group_id, element_name,
		record_index, identifier_id, extracted_value,
		validation_status, ai_reasoning, confidence_score,
		manually_verified, manually_updated, schema_mismatch,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11,
		$12, $13, $14,
		$15, $16
	)`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		cell.ID, cell.SessionID, cell.ElementID, cell.GroupID, cell.ElementName,
		cell.RecordIndex, cell.IdentifierID, cell.ExtractedValue,
		cell.ValidationStatus, cell.AIReasoning, cell.ConfidenceScore,
		cell.ManuallyVerified, cell.ManuallyUpdated, cell.SchemaMismatch,
		cell.CreatedAt, cell.UpdatedAt)
	if err != nil {
		return fmt.Errorf("fieldValidationRepo.Create: %w", err)
	}
	return nil
}

func (r *fieldValidationRepo) GetByID(ctx context.Context, cellID uuid.UUID) (*domain.FieldValidation, error) {
	var cell domain.FieldValidation
	err := q(ctx, r.db).GetContext(ctx, &cell,
		"SELECT * FROM field_validations WHERE id = $1", cellID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCellNotFound
		}
		return nil, fmt.Errorf("fieldValidationRepo.GetByID: %w", err)
	}
	return &cell, nil
}

func (r *fieldValidationRepo) GetByKey(ctx context.Context, sessionID, elementID uuid.UUID, recordIndex int) (*domain.FieldValidation, error) {
	var cell domain.FieldValidation
	err := q(ctx, r.db).GetContext(ctx, &cell,
		`SELECT * FROM field_validations
		 WHERE session_id = $1 AND element_id = $2 AND record_index = $3`,
		sessionID, elementID, recordIndex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCellNotFound
		}
		return nil, fmt.Errorf("fieldValidationRepo.GetByKey: %w", err)
	}
	return &cell, nil
}

func (r *fieldValidationRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.FieldValidation, error) {
	var cells []domain.FieldValidation
	err := q(ctx, r.db).SelectContext(ctx, &cells,
		`SELECT * FROM field_validations WHERE session_id = $1
		 ORDER BY record_index, element_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fieldValidationRepo.ListBySession: %w", err)
	}
	return cells, nil
}

func (r *fieldValidationRepo) ListByGroup(ctx context.Context, sessionID, groupID uuid.UUID) ([]domain.FieldValidation, error) {
	var cells []domain.FieldValidation
	err := q(ctx, r.db).SelectContext(ctx, &cells,
		`SELECT * FROM field_validations WHERE session_id = $1 AND group_id = $2
		 ORDER BY record_index, element_id`, sessionID, groupID)
	if err != nil {
		return nil, fmt.Errorf("fieldValidationRepo.ListByGroup: %w", err)
	}
	return cells, nil
}

func (r *fieldValidationRepo) Update(ctx context.Context, cell *domain.FieldValidation) error {
	cell.UpdatedAt = time.Now().UTC()
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE field_validations SET
			group_id = $1, element_name = $2, identifier_id = $3,
			extracted_value = $4, validation_status = $5, ai_reasoning = $6,
			confidence_score = $7, manually_verified = $8, manually_updated = $9,
			schema_mismatch = $10, updated_at = $11
		 WHERE id = $12`,
		cell.GroupID, cell.ElementName, cell.IdentifierID,
		cell.ExtractedValue, cell.ValidationStatus, cell.AIReasoning,
		cell.ConfidenceScore, cell.ManuallyVerified, cell.ManuallyUpdated,
		cell.SchemaMismatch, cell.UpdatedAt, cell.ID)
	if err != nil {
		return fmt.Errorf("fieldValidationRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrCellNotFound
	}
	return nil
}
