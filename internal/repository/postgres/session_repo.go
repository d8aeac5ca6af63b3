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

type sessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo creates a new PostgreSQL-backed SessionRepository.
func NewSessionRepo(db *sqlx.DB) port.SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *domain.ExtractionSession) error {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO extraction_sessions (
			id, project_id, status, document_count, extracted_data,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.ProjectID, session.Status, session.DocumentCount,
		session.ExtractedData, session.CreatedBy, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.ExtractionSession, error) {
	var session domain.ExtractionSession
	err := q(ctx, r.db).GetContext(ctx, &session,
		"SELECT * FROM extraction_sessions WHERE id = $1", sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}
	return &session, nil
}

func (r *sessionRepo) ListByProject(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]domain.ExtractionSession, int, error) {
	var total int
	err := q(ctx, r.db).GetContext(ctx, &total,
		"SELECT COUNT(*) FROM extraction_sessions WHERE project_id = $1", projectID)
	if err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.ListByProject count: %w", err)
	}

	var sessions []domain.ExtractionSession
	err = q(ctx, r.db).SelectContext(ctx, &sessions,
		`SELECT * FROM extraction_sessions WHERE project_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		projectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.ListByProject: %w", err)
	}
	return sessions, total, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *domain.ExtractionSession) error {
	session.UpdatedAt = time.Now().UTC()
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE extraction_sessions SET
			status = $1, document_count = $2, extracted_data = $3, updated_at = $4
		 WHERE id = $5`,
		session.Status, session.DocumentCount, session.ExtractedData,
		session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("sessionRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
