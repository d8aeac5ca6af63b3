package memory_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
	"tessera/internal/repository/memory"
)

func seedJob(t *testing.T, repo interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
}, status domain.JobStatus) *domain.ExtractionJob {
	t.Helper()
	job := &domain.ExtractionJob{
		ID:          uuid.New(),
		SessionID:   uuid.New(),
		ProjectID:   uuid.New(),
		Status:      status,
		DocumentIDs: json.RawMessage("[]"),
		Logs:        json.RawMessage("[]"),
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestJobRepo_UpdateRequiresExpectedStatus(t *testing.T) {
	repo := memory.NewJobRepo()
	ctx := context.Background()
	job := seedJob(t, repo, domain.JobStatusPending)

	// A cancel commits first.
	cancelled := *job
	cancelled.Status = domain.JobStatusCancelled
	require.NoError(t, repo.Update(ctx, &cancelled, domain.JobStatusPending))

	// The stale pending-to-running write loses instead of resurrecting
	// the row.
	running := *job
	running.Status = domain.JobStatusRunning
	assert.ErrorIs(t, repo.Update(ctx, &running, domain.JobStatusPending), domain.ErrJobStale)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, got.Status)
}

func TestJobRepo_UpdateMissingJob(t *testing.T) {
	repo := memory.NewJobRepo()
	job := &domain.ExtractionJob{ID: uuid.New(), Status: domain.JobStatusPending}
	assert.ErrorIs(t, repo.Update(context.Background(), job, domain.JobStatusPending), domain.ErrJobNotFound)
}

func TestJobRepo_UpdateProgressOnlyWhileRunning(t *testing.T) {
	repo := memory.NewJobRepo()
	ctx := context.Background()
	job := seedJob(t, repo, domain.JobStatusRunning)

	require.NoError(t, repo.UpdateProgress(ctx, job.ID, 40, "extracting"))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "extracting", got.CurrentStep)

	done := *got
	done.Status = domain.JobStatusCancelled
	require.NoError(t, repo.Update(ctx, &done, domain.JobStatusRunning))

	// A progress report that lost the race to a cancel is rejected and
	// changes nothing.
	assert.ErrorIs(t, repo.UpdateProgress(ctx, job.ID, 90, "collecting results"), domain.ErrJobStale)
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, got.Status)
	assert.Equal(t, 40, got.Progress)
}

func TestJobRepo_AppendLogKeepsEarlierEntries(t *testing.T) {
	repo := memory.NewJobRepo()
	ctx := context.Background()
	job := seedJob(t, repo, domain.JobStatusRunning)

	now := time.Now().UTC()
	require.NoError(t, repo.AppendLog(ctx, job.ID, domain.JobLogEntry{Timestamp: now, Message: "first"}))
	require.NoError(t, repo.AppendLog(ctx, job.ID, domain.JobLogEntry{Timestamp: now, Message: "second"}))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	entries := got.LogEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}
