package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/port"
)

// JobQueueConfig holds settings for the job queue worker.
type JobQueueConfig struct {
	PollInterval time.Duration
	Concurrency  int
}

// JobQueueWorker polls for pending extraction jobs and dispatches them
// for execution. Sessions with a running job are skipped by the poll
// query, which keeps one active pass per session.
type JobQueueWorker struct {
	jobRepo    port.JobRepository
	jobService JobService
	cfg        JobQueueConfig
	wg         sync.WaitGroup

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewJobQueueWorker creates a new JobQueueWorker.
func NewJobQueueWorker(jobRepo port.JobRepository, jobService JobService, cfg JobQueueConfig) *JobQueueWorker {
	return &JobQueueWorker{
		jobRepo:    jobRepo,
		jobService: jobService,
		cfg:        cfg,
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight executions have finished.
func (w *JobQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("jobQueueWorker: started (poll=%s, concurrency=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency)

	for {
		select {
		case <-ctx.Done():
			log.Printf("jobQueueWorker: shutting down, waiting for in-flight jobs...")
			w.wg.Wait()
			log.Printf("jobQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			available := w.cfg.Concurrency - len(sem)
			if available <= 0 {
				continue
			}

			jobs, err := w.jobRepo.ListPending(ctx, available)
			if err != nil {
				if ctx.Err() != nil {
					// Context canceled during poll — exit gracefully
					continue
				}
				log.Printf("jobQueueWorker: ListPending error: %v", err)
				continue
			}

			for i := range jobs {
				job := jobs[i] // copy for goroutine
				if !w.claim(job.ID) {
					continue
				}

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer w.release(job.ID)
					defer func() { <-sem }() // release

					// Use a fresh context independent of the poll context
					// so in-flight jobs complete even during shutdown. The
					// per-job worker deadline is applied inside Execute.
					execCtx, cancel := context.WithCancel(context.Background())
					defer cancel()

					log.Printf("jobQueueWorker: dispatching job %s (session %s, pass %d)",
						job.ID, job.SessionID, job.ExtractionNumber)
					if err := w.jobService.Execute(execCtx, job.ID); err != nil {
						log.Printf("jobQueueWorker: job %s: %v", job.ID, err)
					}
				}()
			}
		}
	}
}

// claim marks a job as dispatched so overlapping polls cannot start the
// same job twice.
func (w *JobQueueWorker) claim(jobID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[jobID] {
		return false
	}
	w.inFlight[jobID] = true
	return true
}

func (w *JobQueueWorker) release(jobID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, jobID)
}
