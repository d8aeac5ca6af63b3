package port

import (
	"context"

	"github.com/google/uuid"

	"tessera/internal/domain"
)

// JobRepository defines the contract for extraction job persistence.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error)
	// Update writes the full row only while its stored status still
	// equals expected, returning ErrJobStale when a concurrent
	// transition won. Status changes race cancellation; an unguarded
	// write could resurrect a terminal job.
	Update(ctx context.Context, job *domain.ExtractionJob, expected domain.JobStatus) error
	// UpdateProgress writes progress and current step while the job is
	// still running, returning ErrJobStale otherwise. Logs are left
	// untouched.
	UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, step string) error
	// AppendLog atomically appends one entry to the job's log.
	AppendLog(ctx context.Context, jobID uuid.UUID, entry domain.JobLogEntry) error
	// NextExtractionNumber returns the next pass number for a session:
	// strictly increasing, contiguous from 0.
	NextExtractionNumber(ctx context.Context, sessionID uuid.UUID) (int, error)
	// HasActiveJob reports whether the session has a pending or running job.
	HasActiveJob(ctx context.Context, sessionID uuid.UUID) (bool, error)
	// ListPending returns up to limit pending jobs whose session has no
	// running job, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.ExtractionJob, error)
}

// JobCacheRepository defines the contract for per-job cached artifacts.
type JobCacheRepository interface {
	// Put stores or replaces the entry for (jobID, cacheKey).
	Put(ctx context.Context, entry *domain.JobCacheEntry) error
	// Get returns the entry for (jobID, cacheKey) if it has not expired.
	Get(ctx context.Context, jobID uuid.UUID, cacheKey string) (*domain.JobCacheEntry, error)
	// DeleteExpired removes all entries past their expiry and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
