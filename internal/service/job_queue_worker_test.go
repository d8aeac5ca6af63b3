package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tessera/internal/domain"
	"tessera/internal/service"
	"tessera/mocks"
)

func TestJobQueueWorker_PollsAndDispatchesJobs(t *testing.T) {
	jobRepo := new(mocks.MockJobRepo)
	jobSvc := new(mocks.MockJobService)

	job := domain.ExtractionJob{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Status:    domain.JobStatusPending,
	}

	// First poll returns one job, subsequent polls return empty
	jobRepo.On("ListPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ExtractionJob{job}, nil).Once()
	jobRepo.On("ListPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ExtractionJob{}, nil).Maybe()

	jobSvc.On("Execute", mock.Anything, job.ID).Return(nil).Maybe()

	cfg := service.JobQueueConfig{
		PollInterval: 50 * time.Millisecond,
		Concurrency:  2,
	}
	worker := service.NewJobQueueWorker(jobRepo, jobSvc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// Wait for at least one poll cycle
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	jobRepo.AssertCalled(t, "ListPending", mock.Anything, mock.AnythingOfType("int"))
	jobSvc.AssertCalled(t, "Execute", mock.Anything, job.ID)
}

func TestJobQueueWorker_RespectsConcurrencyCap(t *testing.T) {
	jobRepo := new(mocks.MockJobRepo)
	jobSvc := new(mocks.MockJobService)

	cfg := service.JobQueueConfig{
		PollInterval: 50 * time.Millisecond,
		Concurrency:  2,
	}

	// Return empty to verify the limit parameter
	jobRepo.On("ListPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ExtractionJob{}, nil).Maybe()

	worker := service.NewJobQueueWorker(jobRepo, jobSvc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	// Verify ListPending was called with limit <= concurrency
	for _, call := range jobRepo.Calls {
		if call.Method == "ListPending" {
			limit := call.Arguments.Get(1).(int)
			assert.LessOrEqual(t, limit, cfg.Concurrency)
		}
	}
}

func TestJobQueueWorker_DoesNotDispatchSameJobTwice(t *testing.T) {
	jobRepo := new(mocks.MockJobRepo)
	jobSvc := new(mocks.MockJobService)

	job := domain.ExtractionJob{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Status:    domain.JobStatusPending,
	}

	// Every poll keeps returning the same job, as a slow Execute would
	// leave it pending in storage.
	jobRepo.On("ListPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ExtractionJob{job}, nil).Maybe()

	block := make(chan struct{})
	jobSvc.On("Execute", mock.Anything, job.ID).
		Run(func(mock.Arguments) { <-block }).
		Return(nil).Maybe()

	cfg := service.JobQueueConfig{
		PollInterval: 30 * time.Millisecond,
		Concurrency:  3,
	}
	worker := service.NewJobQueueWorker(jobRepo, jobSvc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// Several poll cycles happen while the first dispatch is blocked.
	time.Sleep(200 * time.Millisecond)
	cancel()
	close(block)
	<-done

	executions := 0
	for _, call := range jobSvc.Calls {
		if call.Method == "Execute" {
			executions++
		}
	}
	assert.Equal(t, 1, executions)
}

func TestJobQueueWorker_CleanShutdown(t *testing.T) {
	jobRepo := new(mocks.MockJobRepo)
	jobSvc := new(mocks.MockJobService)

	jobRepo.On("ListPending", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ExtractionJob{}, nil).Maybe()

	cfg := service.JobQueueConfig{
		PollInterval: 50 * time.Millisecond,
		Concurrency:  5,
	}
	worker := service.NewJobQueueWorker(jobRepo, jobSvc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// Cancel immediately
	cancel()

	select {
	case <-done:
		// Success — Start returned promptly
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestJobQueueWorker_PollErrorDoesNotStopWorker(t *testing.T) {
	jobRepo := new(mocks.MockJobRepo)
	jobSvc := new(mocks.MockJobService)

	jobRepo.On("ListPending", mock.Anything, mock.AnythingOfType("int")).
		Return(nil, errors.New("db connection error")).Maybe()

	cfg := service.JobQueueConfig{
		PollInterval: 50 * time.Millisecond,
		Concurrency:  5,
	}
	worker := service.NewJobQueueWorker(jobRepo, jobSvc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// Let a few poll cycles happen with errors
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Success — no panic, no goroutine leak
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	jobSvc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}
