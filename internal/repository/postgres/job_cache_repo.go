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

type jobCacheRepo struct {
	db *sqlx.DB
}

// NewJobCacheRepo creates a new PostgreSQL-backed JobCacheRepository.
func NewJobCacheRepo(db *sqlx.DB) port.JobCacheRepository {
	return &jobCacheRepo{db: db}
}

func (r *jobCacheRepo) Put(ctx context.Context, entry *domain.JobCacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO job_cache (id, job_id, cache_key, data, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (job_id, cache_key) DO UPDATE SET
			data = EXCLUDED.data, expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`,
		entry.ID, entry.JobID, entry.CacheKey, entry.Data,
		entry.ExpiresAt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("jobCacheRepo.Put: %w", err)
	}
	return nil
}

func (r *jobCacheRepo) Get(ctx context.Context, jobID uuid.UUID, cacheKey string) (*domain.JobCacheEntry, error) {
	var entry domain.JobCacheEntry
	err := q(ctx, r.db).GetContext(ctx, &entry,
		`SELECT * FROM job_cache
		 WHERE job_id = $1 AND cache_key = $2 AND expires_at > $3`,
		jobID, cacheKey, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("jobCacheRepo.Get: %w", err)
	}
	return &entry, nil
}

func (r *jobCacheRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := q(ctx, r.db).ExecContext(ctx,
		"DELETE FROM job_cache WHERE expires_at <= $1", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("jobCacheRepo.DeleteExpired: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
