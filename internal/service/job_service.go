package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/grid"
	"tessera/internal/merge"
	"tessera/internal/port"
	"tessera/internal/rules"
	"tessera/internal/schema"
	"tessera/internal/worker"
)

// CreateJobInput holds the fields for scheduling an extraction pass.
type CreateJobInput struct {
	SessionID   uuid.UUID
	DocumentIDs []uuid.UUID
	CreatedBy   uuid.UUID
}

// JobConfig holds job manager settings.
type JobConfig struct {
	// WorkerTimeout is the wall-clock deadline for one worker invocation.
	WorkerTimeout time.Duration
}

// JobService owns the extraction job lifecycle: scheduling passes,
// driving the external worker, and committing each pass's output to the
// merge engine and the validation grid.
type JobService interface {
	CreateJob(ctx context.Context, in CreateJobInput) (*domain.ExtractionJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error)
	ListJobs(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error)
	// Execute runs one pending job to a terminal state. It blocks for the
	// duration of the worker invocation.
	Execute(ctx context.Context, jobID uuid.UUID) error
	CancelJob(ctx context.Context, jobID uuid.UUID) error
	AddLog(ctx context.Context, jobID uuid.UUID, message string) error

	CacheData(ctx context.Context, jobID uuid.UUID, key string, data json.RawMessage, ttlHours int) error
	GetCachedData(ctx context.Context, jobID uuid.UUID, key string) (json.RawMessage, error)
	CleanupExpiredCache(ctx context.Context) (int64, error)
}

type jobService struct {
	jobRepo     port.JobRepository
	sessionRepo port.SessionRepository
	ruleRepo    port.RuleRepository
	cacheRepo   port.JobCacheRepository
	txRunner    port.TxRunner
	registry    *schema.Registry
	gridStore   *grid.Store
	mergeEng    *merge.Engine
	runner      port.ExtractionWorker
	cfg         JobConfig

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewJobService creates a new JobService.
func NewJobService(
	jobRepo port.JobRepository,
	sessionRepo port.SessionRepository,
	ruleRepo port.RuleRepository,
	cacheRepo port.JobCacheRepository,
	txRunner port.TxRunner,
	registry *schema.Registry,
	gridStore *grid.Store,
	mergeEng *merge.Engine,
	runner port.ExtractionWorker,
	cfg JobConfig,
) JobService {
	return &jobService{
		jobRepo:     jobRepo,
		sessionRepo: sessionRepo,
		ruleRepo:    ruleRepo,
		cacheRepo:   cacheRepo,
		txRunner:    txRunner,
		registry:    registry,
		gridStore:   gridStore,
		mergeEng:    mergeEng,
		runner:      runner,
		cfg:         cfg,
		cancels:     make(map[uuid.UUID]context.CancelFunc),
	}
}

func (s *jobService) CreateJob(ctx context.Context, in CreateJobInput) (*domain.ExtractionJob, error) {
	session, err := s.sessionRepo.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusInProgress {
		return nil, domain.ErrSessionClosed
	}
	active, err := s.jobRepo.HasActiveJob(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("jobService.CreateJob: %w", err)
	}
	if active {
		return nil, domain.ErrSessionBusy
	}
	number, err := s.jobRepo.NextExtractionNumber(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("jobService.CreateJob: %w", err)
	}

	docIDs, err := json.Marshal(in.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("jobService.CreateJob: encoding document ids: %w", err)
	}
	job := &domain.ExtractionJob{
		ID:               uuid.New(),
		SessionID:        in.SessionID,
		ProjectID:        session.ProjectID,
		ExtractionNumber: number,
		DocumentIDs:      docIDs,
		Status:           domain.JobStatusPending,
		Logs:             json.RawMessage("[]"),
		CreatedBy:        in.CreatedBy,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("jobService.CreateJob: %w", err)
	}
	log.Printf("jobService.CreateJob: session %s pass %d scheduled (job %s)", in.SessionID, number, job.ID)
	return job, nil
}

func (s *jobService) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error) {
	return s.jobRepo.GetByID(ctx, jobID)
}

func (s *jobService) ListJobs(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error) {
	return s.jobRepo.ListBySession(ctx, sessionID)
}

func (s *jobService) Execute(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}
	if job.Status != domain.JobStatusPending {
		return fmt.Errorf("jobService.Execute: job %s is %s, not pending", jobID, job.Status)
	}

	started := time.Now().UTC()
	job.Status = domain.JobStatusRunning
	job.StartedAt = &started
	job.CurrentStep = "starting worker"
	appendLog(job, "extraction started")
	if err := s.jobRepo.Update(ctx, job, domain.JobStatusPending); err != nil {
		// A cancel that landed between the read and this write wins.
		if errors.Is(err, domain.ErrJobStale) {
			return domain.ErrJobTerminal
		}
		return fmt.Errorf("jobService.Execute: %w", err)
	}

	input, sc, eng, err := s.buildWorkerInput(ctx, job)
	if err != nil {
		return s.failJob(ctx, job, started, fmt.Sprintf("preparing pass: %v", err))
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WorkerTimeout)
	s.registerCancel(job.ID, cancel)
	defer func() {
		s.unregisterCancel(job.ID)
		cancel()
	}()

	result, runErr := s.runner.Run(runCtx, *input, func(p port.WorkerProgress) {
		s.recordProgress(job.ID, p)
	})
	if runErr != nil {
		return s.handleRunError(ctx, job, started, runErr)
	}

	return s.completePass(ctx, job, sc, eng, result, started)
}

// buildWorkerInput resolves the schema, rules and prior-pass context a
// worker invocation needs.
func (s *jobService) buildWorkerInput(ctx context.Context, job *domain.ExtractionJob) (*port.WorkerInput, *schema.Resolved, *rules.Engine, error) {
	sc, err := s.registry.Resolve(ctx, job.ProjectID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolving schema: %w", err)
	}
	ruleRows, err := s.ruleRepo.ListByProject(ctx, job.ProjectID, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading rules: %w", err)
	}
	eng := rules.NewEngine(ruleRows)

	var known []port.KnownRow
	if job.ExtractionNumber > 0 {
		rows, err := s.mergeEng.MergeUpTo(ctx, job.SessionID, job.ExtractionNumber-1, identifierField(sc))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("merging prior passes: %w", err)
		}
		known = merge.KnownRows(rows)
	}

	workerRules := make([]port.WorkerRule, 0, len(ruleRows))
	for i := range ruleRows {
		workerRules = append(workerRules, port.WorkerRule{
			TargetField: ruleRows[i].TargetField,
			Content:     ruleRows[i].RuleContent,
		})
	}

	return &port.WorkerInput{
		SessionID:            job.SessionID,
		DocumentIDs:          job.DocumentIDList(),
		TargetFields:         sc.TargetFields(),
		IdentifierReferences: known,
		ExtractionRules:      workerRules,
		ExtractionNumber:     job.ExtractionNumber,
	}, sc, eng, nil
}

// completePass commits one successful pass: references and grid cells in
// a single transaction, then the session snapshot and the job's terminal
// state.
func (s *jobService) completePass(ctx context.Context, job *domain.ExtractionJob, sc *schema.Resolved, eng *rules.Engine, result *port.WorkerResult, started time.Time) error {
	facts := make([]merge.Fact, 0, len(result.Facts))
	writes := make([]grid.Write, 0, len(result.Facts))
	for _, f := range result.Facts {
		facts = append(facts, merge.Fact{RecordIndex: f.RecordIndex, FieldName: f.FieldName, Value: f.Value})
		writes = append(writes, grid.Write{
			RecordIndex: f.RecordIndex,
			FieldName:   f.FieldName,
			Value:       f.Value,
			Confidence:  f.Confidence,
			Reasoning:   f.Reasoning,
		})
	}

	var stats *grid.PassStats
	err := s.txRunner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.mergeEng.RecordPassOutput(txCtx, job.SessionID, job.ExtractionNumber, facts); err != nil {
			return err
		}
		var applyErr error
		stats, applyErr = s.gridStore.ApplyPass(txCtx, sc, eng, job.SessionID, writes)
		if applyErr != nil {
			return applyErr
		}
		return s.refreshSnapshot(txCtx, job.SessionID, job.ExtractionNumber, sc)
	})
	if err != nil {
		return s.failJob(ctx, job, started, fmt.Sprintf("committing pass output: %v", err))
	}

	// A cancel racing the commit must not be resurrected.
	current, err := s.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		log.Printf("jobService.completePass: job %s already %s, leaving as is", job.ID, current.Status)
		return nil
	}

	completed := time.Now().UTC()
	results, _ := json.Marshal(map[string]interface{}{
		"record_count": result.RecordCount,
		"fact_count":   len(result.Facts),
		"grid":         stats,
	})
	current.Status = domain.JobStatusCompleted
	current.Progress = 100
	current.CurrentStep = "completed"
	current.Results = results
	current.RecordsProcessed = result.RecordCount
	current.ProcessingTimeMs = completed.Sub(started).Milliseconds()
	current.CompletedAt = &completed
	appendLog(current, fmt.Sprintf("extraction completed: %d records, %d cells written, %d skipped, %d placeholders",
		result.RecordCount, stats.Written, stats.Skipped, stats.Placeholders))
	if err := s.jobRepo.Update(ctx, current, domain.JobStatusRunning); err != nil {
		if errors.Is(err, domain.ErrJobStale) {
			log.Printf("jobService.completePass: job %s transitioned concurrently, leaving as is", job.ID)
			return nil
		}
		return fmt.Errorf("jobService.completePass: %w", err)
	}
	log.Printf("jobService.completePass: job %s completed in %dms", job.ID, current.ProcessingTimeMs)
	return nil
}

// refreshSnapshot rewrites the session's merged-data snapshot after a pass.
func (s *jobService) refreshSnapshot(ctx context.Context, sessionID uuid.UUID, extractionNumber int, sc *schema.Resolved) error {
	rows, err := s.mergeEng.MergeUpTo(ctx, sessionID, extractionNumber, identifierField(sc))
	if err != nil {
		return err
	}
	snapshot, err := json.Marshal(merge.KnownRows(rows))
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	session.ExtractedData = snapshot
	return s.sessionRepo.Update(ctx, session)
}

func (s *jobService) handleRunError(ctx context.Context, job *domain.ExtractionJob, started time.Time, runErr error) error {
	if errors.Is(runErr, context.Canceled) {
		// CancelJob already moved the row to cancelled; nothing to record.
		log.Printf("jobService.Execute: job %s worker killed by cancellation", job.ID)
		return nil
	}
	if errors.Is(runErr, context.DeadlineExceeded) {
		return s.failJob(ctx, job, started, fmt.Sprintf("worker timed out after %s", s.cfg.WorkerTimeout))
	}

	var exitErr *worker.ExitError
	if errors.As(runErr, &exitErr) && exitErr.Stderr != "" {
		appendLog(job, "worker stderr: "+exitErr.Stderr)
	}
	var parseErr *worker.ParseError
	if errors.As(runErr, &parseErr) {
		appendLog(job, "raw worker output: "+parseErr.Raw)
	}
	return s.failJob(ctx, job, started, runErr.Error())
}

// failJob moves a job to failed unless it already reached a terminal
// state. The session stays usable; a new pass can be created.
func (s *jobService) failJob(ctx context.Context, job *domain.ExtractionJob, started time.Time, message string) error {
	current, err := s.jobRepo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return nil
	}
	prev := current.Status
	completed := time.Now().UTC()
	current.Status = domain.JobStatusFailed
	current.ErrorMessage = message
	current.CompletedAt = &completed
	current.ProcessingTimeMs = completed.Sub(started).Milliseconds()
	current.Logs = job.Logs
	appendLog(current, "extraction failed: "+message)
	if err := s.jobRepo.Update(ctx, current, prev); err != nil {
		if errors.Is(err, domain.ErrJobStale) {
			log.Printf("jobService.failJob: job %s transitioned concurrently, leaving as is", job.ID)
			return nil
		}
		return fmt.Errorf("jobService.failJob: %w", err)
	}
	log.Printf("jobService.Execute: job %s failed: %s", job.ID, message)
	return nil
}

func (s *jobService) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	// A pending job may start running between the read and the write;
	// re-read and try again until the cancel lands or the job is
	// already terminal.
	for {
		job, err := s.jobRepo.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return domain.ErrJobNotCancellable
		}
		prev := job.Status
		job.Status = domain.JobStatusCancelled
		completed := time.Now().UTC()
		job.CompletedAt = &completed
		appendLog(job, "job cancelled")
		err = s.jobRepo.Update(ctx, job, prev)
		if errors.Is(err, domain.ErrJobStale) {
			continue
		}
		if err != nil {
			return fmt.Errorf("jobService.CancelJob: %w", err)
		}
		break
	}

	s.mu.Lock()
	cancel, running := s.cancels[jobID]
	s.mu.Unlock()
	if running {
		log.Printf("jobService.CancelJob: killing worker process for job %s", jobID)
		cancel()
	}
	return nil
}

func (s *jobService) AddLog(ctx context.Context, jobID uuid.UUID, message string) error {
	entry := domain.JobLogEntry{Timestamp: time.Now().UTC(), Message: message}
	if err := s.jobRepo.AppendLog(ctx, jobID, entry); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("jobService.AddLog: %w", err)
	}
	return nil
}

func (s *jobService) CacheData(ctx context.Context, jobID uuid.UUID, key string, data json.RawMessage, ttlHours int) error {
	if _, err := s.jobRepo.GetByID(ctx, jobID); err != nil {
		return err
	}
	entry := &domain.JobCacheEntry{
		ID:        uuid.New(),
		JobID:     jobID,
		CacheKey:  key,
		Data:      data,
		ExpiresAt: time.Now().UTC().Add(time.Duration(ttlHours) * time.Hour),
	}
	if err := s.cacheRepo.Put(ctx, entry); err != nil {
		return fmt.Errorf("jobService.CacheData: %w", err)
	}
	return nil
}

func (s *jobService) GetCachedData(ctx context.Context, jobID uuid.UUID, key string) (json.RawMessage, error) {
	entry, err := s.cacheRepo.Get(ctx, jobID, key)
	if err != nil {
		return nil, err
	}
	return entry.Data, nil
}

func (s *jobService) CleanupExpiredCache(ctx context.Context) (int64, error) {
	removed, err := s.cacheRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("jobService.CleanupExpiredCache: %w", err)
	}
	if removed > 0 {
		log.Printf("jobService.CleanupExpiredCache: removed %d expired entries", removed)
	}
	return removed, nil
}

// recordProgress persists a progress update without failing the pass on
// a transient write error. The write only lands while the job is still
// running; a lost race against a cancel is dropped silently.
func (s *jobService) recordProgress(jobID uuid.UUID, p port.WorkerProgress) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.jobRepo.UpdateProgress(ctx, jobID, p.Progress, p.Step)
	if err != nil && !errors.Is(err, domain.ErrJobStale) {
		log.Printf("jobService.recordProgress: %v", err)
	}
}

func (s *jobService) registerCancel(jobID uuid.UUID, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[jobID] = cancel
}

func (s *jobService) unregisterCancel(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, jobID)
}

// identifierField picks the schema's row-identity column for merge
// keying: the identifier of the first repeating group, in schema order.
func identifierField(sc *schema.Resolved) string {
	for _, el := range sc.Elements() {
		if el.IsIdentifier {
			return el.Name
		}
	}
	return ""
}

func appendLog(job *domain.ExtractionJob, message string) {
	entries := job.LogEntries()
	entries = append(entries, domain.JobLogEntry{Timestamp: time.Now().UTC(), Message: message})
	if data, err := json.Marshal(entries); err == nil {
		job.Logs = data
	}
}
