package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type jobRepo struct {
	db *sqlx.DB
}

// NewJobRepo creates a new PostgreSQL-backed JobRepository.
func NewJobRepo(db *sqlx.DB) port.JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `INSERT INTO extraction_jobs (
		id, session_id, project_id, extraction_number, document_ids,
		status, progress, current_step, logs, results,
		records_processed, processing_time_ms, error_message,
		started_at, completed_at, created_by, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13,
		$14, $15, $16, $17, $18
	)`

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		job.ID, job.SessionID, job.ProjectID, job.ExtractionNumber, job.DocumentIDs,
		job.Status, job.Progress, job.CurrentStep, job.Logs, job.Results,
		job.RecordsProcessed, job.ProcessingTimeMs, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.CreatedBy, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.Create: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error) {
	var job domain.ExtractionJob
	err := q(ctx, r.db).GetContext(ctx, &job,
		"SELECT * FROM extraction_jobs WHERE id = $1", jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("jobRepo.GetByID: %w", err)
	}
	return &job, nil
}

func (r *jobRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error) {
	var jobs []domain.ExtractionJob
	err := q(ctx, r.db).SelectContext(ctx, &jobs,
		"SELECT * FROM extraction_jobs WHERE session_id = $1 ORDER BY extraction_number",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.ListBySession: %w", err)
	}
	return jobs, nil
}

func (r *jobRepo) Update(ctx context.Context, job *domain.ExtractionJob, expected domain.JobStatus) error {
	job.UpdatedAt = time.Now().UTC()
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE extraction_jobs SET
			status = $1, progress = $2, current_step = $3, logs = $4, results = $5,
			records_processed = $6, processing_time_ms = $7, error_message = $8,
			started_at = $9, completed_at = $10, updated_at = $11
		 WHERE id = $12 AND status = $13`,
		job.Status, job.Progress, job.CurrentStep, job.Logs, job.Results,
		job.RecordsProcessed, job.ProcessingTimeMs, job.ErrorMessage,
		job.StartedAt, job.CompletedAt, job.UpdatedAt, job.ID, expected)
	if err != nil {
		return fmt.Errorf("jobRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.GetByID(ctx, job.ID); err != nil {
			return err
		}
		return domain.ErrJobStale
	}
	return nil
}

func (r *jobRepo) UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, step string) error {
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE extraction_jobs
		 SET progress = $2, current_step = $3, updated_at = $4
		 WHERE id = $1 AND status = $5`,
		jobID, progress, step, time.Now().UTC(), domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("jobRepo.UpdateProgress: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrJobStale
	}
	return nil
}

func (r *jobRepo) AppendLog(ctx context.Context, jobID uuid.UUID, entry domain.JobLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("jobRepo.AppendLog: encoding entry: %w", err)
	}
	result, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE extraction_jobs
		 SET logs = logs || $2::jsonb, updated_at = $3
		 WHERE id = $1`,
		jobID, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("jobRepo.AppendLog: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) NextExtractionNumber(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var next int
	err := q(ctx, r.db).GetContext(ctx, &next,
		`SELECT COALESCE(MAX(extraction_number) + 1, 0) FROM extraction_jobs
		 WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("jobRepo.NextExtractionNumber: %w", err)
	}
	return next, nil
}

func (r *jobRepo) HasActiveJob(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var active bool
	err := q(ctx, r.db).GetContext(ctx, &active,
		`SELECT EXISTS (
			SELECT 1 FROM extraction_jobs
			WHERE session_id = $1 AND status IN ($2, $3)
		)`, sessionID, domain.JobStatusPending, domain.JobStatusRunning)
	if err != nil {
		return false, fmt.Errorf("jobRepo.HasActiveJob: %w", err)
	}
	return active, nil
}

func (r *jobRepo) ListPending(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	var jobs []domain.ExtractionJob
	err := q(ctx, r.db).SelectContext(ctx, &jobs,
		`SELECT * FROM extraction_jobs j
		 WHERE j.status = $1
		   AND NOT EXISTS (
			SELECT 1 FROM extraction_jobs r
			WHERE r.session_id = j.session_id AND r.status = $2
		   )
		 ORDER BY j.created_at
		 LIMIT $3`,
		domain.JobStatusPending, domain.JobStatusRunning, limit)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.ListPending: %w", err)
	}
	return jobs, nil
}
