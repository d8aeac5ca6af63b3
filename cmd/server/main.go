package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"tessera/internal/config"
	"tessera/internal/grid"
	"tessera/internal/handler"
	"tessera/internal/merge"
	"tessera/internal/port"
	"tessera/internal/repository/memory"
	"tessera/internal/repository/postgres"
	"tessera/internal/router"
	"tessera/internal/schema"
	"tessera/internal/service"
	"tessera/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type repositories struct {
	project port.ProjectRepository
	schema  port.SchemaRepository
	session port.SessionRepository
	job     port.JobRepository
	ref     port.ReferenceRepository
	cell    port.FieldValidationRepository
	rule    port.RuleRepository
	cache   port.JobCacheRepository
	tx      port.TxRunner
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var (
		repos repositories
		db    *sqlx.DB
	)
	switch cfg.Storage.Backend {
	case "memory":
		repos = repositories{
			project: memory.NewProjectRepo(),
			schema:  memory.NewSchemaRepo(),
			session: memory.NewSessionRepo(),
			job:     memory.NewJobRepo(),
			ref:     memory.NewReferenceRepo(),
			cell:    memory.NewFieldValidationRepo(),
			rule:    memory.NewRuleRepo(),
			cache:   memory.NewJobCacheRepo(),
			tx:      memory.NewTxRunner(),
		}
		log.Println("main: using in-memory storage backend")
	case "postgres":
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		repos = repositories{
			project: postgres.NewProjectRepo(db),
			schema:  postgres.NewSchemaRepo(db),
			session: postgres.NewSessionRepo(db),
			job:     postgres.NewJobRepo(db),
			ref:     postgres.NewReferenceRepo(db),
			cell:    postgres.NewFieldValidationRepo(db),
			rule:    postgres.NewRuleRepo(db),
			cache:   postgres.NewJobCacheRepo(db),
			tx:      postgres.NewTxRunner(db),
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// Core engines
	registry := schema.NewRegistry(repos.project, repos.schema)
	gridStore := grid.NewStore(repos.cell, cfg.Grid.ValidThreshold)
	mergeEng := merge.NewEngine(repos.ref, cfg.Merge.ByIdentifier)
	runner := worker.NewRunner(cfg.Worker.Command, cfg.Worker.Args, cfg.Worker.WorkDir)

	// Services
	projectSvc := service.NewProjectService(repos.project, repos.schema, registry)
	sessionSvc := service.NewSessionService(repos.session, repos.project)
	ruleSvc := service.NewRuleService(repos.rule, repos.project)
	gridSvc := service.NewGridService(repos.session, repos.job, registry, gridStore, mergeEng)
	jobSvc := service.NewJobService(
		repos.job, repos.session, repos.rule, repos.cache,
		repos.tx, registry, gridStore, mergeEng, runner,
		service.JobConfig{WorkerTimeout: time.Duration(cfg.Worker.TimeoutSecs) * time.Second},
	)

	// Handlers
	projectH := handler.NewProjectHandler(projectSvc)
	sessionH := handler.NewSessionHandler(sessionSvc, gridSvc)
	jobH := handler.NewJobHandler(jobSvc)
	gridH := handler.NewGridHandler(gridSvc)
	ruleH := handler.NewRuleHandler(ruleSvc)
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	healthH := handler.NewHealthHandler(pinger)

	r := router.Setup(cfg.CORS.AllowedOrigins, projectH, sessionH, jobH, gridH, ruleH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background workers
	queueWorker := service.NewJobQueueWorker(repos.job, jobSvc, service.JobQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
	})
	go queueWorker.Start(ctx)

	sweeper := service.NewCacheSweeper(jobSvc, time.Duration(cfg.Queue.CacheSweepMinutes)*time.Minute)
	go sweeper.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("main: server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("main: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
