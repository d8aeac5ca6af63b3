package service

import (
	"context"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/grid"
	"tessera/internal/merge"
	"tessera/internal/port"
	"tessera/internal/schema"
)

// GridService exposes the validation grid for reading, export and
// manual review.
type GridService interface {
	Grid(ctx context.Context, sessionID uuid.UUID) ([]grid.GridCell, error)
	// Rows returns the merged row view across all completed passes.
	Rows(ctx context.Context, sessionID uuid.UUID) ([]port.KnownRow, error)
	// Resolved returns the session's resolved schema, for export rendering.
	Resolved(ctx context.Context, sessionID uuid.UUID) (*schema.Resolved, error)
	EditCell(ctx context.Context, cellID uuid.UUID, value *string, reasoning string) (*domain.FieldValidation, error)
	VerifyCell(ctx context.Context, cellID uuid.UUID, verified bool) (*domain.FieldValidation, error)
}

type gridService struct {
	sessionRepo port.SessionRepository
	jobRepo     port.JobRepository
	registry    *schema.Registry
	store       *grid.Store
	mergeEng    *merge.Engine
}

// NewGridService creates a new GridService.
func NewGridService(sessionRepo port.SessionRepository, jobRepo port.JobRepository, registry *schema.Registry, store *grid.Store, mergeEng *merge.Engine) GridService {
	return &gridService{
		sessionRepo: sessionRepo,
		jobRepo:     jobRepo,
		registry:    registry,
		store:       store,
		mergeEng:    mergeEng,
	}
}

func (s *gridService) Grid(ctx context.Context, sessionID uuid.UUID) ([]grid.GridCell, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sc, err := s.registry.Resolve(ctx, session.ProjectID)
	if err != nil {
		return nil, err
	}
	return s.store.Grid(ctx, sc, sessionID)
}

func (s *gridService) Rows(ctx context.Context, sessionID uuid.UUID) ([]port.KnownRow, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sc, err := s.registry.Resolve(ctx, session.ProjectID)
	if err != nil {
		return nil, err
	}
	max, err := s.jobRepo.NextExtractionNumber(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.mergeEng.MergeUpTo(ctx, sessionID, max-1, identifierField(sc))
	if err != nil {
		return nil, err
	}
	return merge.KnownRows(rows), nil
}

func (s *gridService) Resolved(ctx context.Context, sessionID uuid.UUID) (*schema.Resolved, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.registry.Resolve(ctx, session.ProjectID)
}

func (s *gridService) EditCell(ctx context.Context, cellID uuid.UUID, value *string, reasoning string) (*domain.FieldValidation, error) {
	return s.store.EditCell(ctx, cellID, value, reasoning)
}

func (s *gridService) VerifyCell(ctx context.Context, cellID uuid.UUID, verified bool) (*domain.FieldValidation, error) {
	return s.store.Verify(ctx, cellID, verified)
}
