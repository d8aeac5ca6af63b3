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

type projectRepo struct {
	db *sqlx.DB
}

// NewProjectRepo creates a new PostgreSQL-backed ProjectRepository.
func NewProjectRepo(db *sqlx.DB) port.ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *domain.Project) error {
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO projects (id, name, schema_mode, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.Name, project.SchemaMode, project.CreatedBy,
		project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("projectRepo.Create: %w", err)
	}
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, projectID uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := q(ctx, r.db).GetContext(ctx, &project,
		"SELECT * FROM projects WHERE id = $1", projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("projectRepo.GetByID: %w", err)
	}
	return &project, nil
}

func (r *projectRepo) List(ctx context.Context, offset, limit int) ([]domain.Project, int, error) {
	var total int
	err := q(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM projects")
	if err != nil {
		return nil, 0, fmt.Errorf("projectRepo.List count: %w", err)
	}

	var projects []domain.Project
	err = q(ctx, r.db).SelectContext(ctx, &projects,
		"SELECT * FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("projectRepo.List: %w", err)
	}
	return projects, total, nil
}
