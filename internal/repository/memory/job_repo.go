package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
)

type jobRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.ExtractionJob
}

// NewJobRepo creates a new in-memory JobRepository.
func NewJobRepo() port.JobRepository {
	return &jobRepo{jobs: make(map[uuid.UUID]domain.ExtractionJob)}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = *job
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

func (r *jobRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ExtractionJob
	for _, j := range r.jobs {
		if j.SessionID == sessionID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExtractionNumber < out[j].ExtractionNumber })
	return out, nil
}

func (r *jobRepo) Update(ctx context.Context, job *domain.ExtractionJob, expected domain.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if stored.Status != expected {
		return domain.ErrJobStale
	}
	job.UpdatedAt = time.Now().UTC()
	r.jobs[job.ID] = *job
	return nil
}

func (r *jobRepo) UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, step string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if stored.Status != domain.JobStatusRunning {
		return domain.ErrJobStale
	}
	stored.Progress = progress
	stored.CurrentStep = step
	stored.UpdatedAt = time.Now().UTC()
	r.jobs[jobID] = stored
	return nil
}

func (r *jobRepo) AppendLog(ctx context.Context, jobID uuid.UUID, entry domain.JobLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	entries := stored.LogEntries()
	entries = append(entries, entry)
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	stored.Logs = data
	stored.UpdatedAt = time.Now().UTC()
	r.jobs[jobID] = stored
	return nil
}

func (r *jobRepo) NextExtractionNumber(ctx context.Context, sessionID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	next := 0
	for _, j := range r.jobs {
		if j.SessionID == sessionID && j.ExtractionNumber >= next {
			next = j.ExtractionNumber + 1
		}
	}
	return next, nil
}

func (r *jobRepo) HasActiveJob(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.SessionID == sessionID &&
			(j.Status == domain.JobStatusPending || j.Status == domain.JobStatusRunning) {
			return true, nil
		}
	}
	return false, nil
}

func (r *jobRepo) ListPending(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	running := make(map[uuid.UUID]bool)
	for _, j := range r.jobs {
		if j.Status == domain.JobStatusRunning {
			running[j.SessionID] = true
		}
	}

	var pending []domain.ExtractionJob
	for _, j := range r.jobs {
		if j.Status == domain.JobStatusPending && !running[j.SessionID] {
			pending = append(pending, j)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}
