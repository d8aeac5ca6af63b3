package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"tessera/internal/domain"
	"tessera/internal/port"
)

// CreateSessionInput holds the fields for starting an extraction session.
type CreateSessionInput struct {
	ProjectID     uuid.UUID
	DocumentCount int
	CreatedBy     uuid.UUID
}

// SessionService manages extraction sessions.
type SessionService interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (*domain.ExtractionSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ExtractionSession, error)
	ListSessions(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]domain.ExtractionSession, int, error)
	// CloseSession marks a session completed or failed. Jobs can no longer
	// be created for it.
	CloseSession(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus) (*domain.ExtractionSession, error)
}

type sessionService struct {
	sessionRepo port.SessionRepository
	projectRepo port.ProjectRepository
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessionRepo port.SessionRepository, projectRepo port.ProjectRepository) SessionService {
	return &sessionService{sessionRepo: sessionRepo, projectRepo: projectRepo}
}

func (s *sessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.ExtractionSession, error) {
	if _, err := s.projectRepo.GetByID(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	session := &domain.ExtractionSession{
		ID:            uuid.New(),
		ProjectID:     in.ProjectID,
		Status:        domain.SessionStatusInProgress,
		DocumentCount: in.DocumentCount,
		ExtractedData: json.RawMessage("[]"),
		CreatedBy:     in.CreatedBy,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("sessionService.CreateSession: %w", err)
	}
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ExtractionSession, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}

func (s *sessionService) ListSessions(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]domain.ExtractionSession, int, error) {
	return s.sessionRepo.ListByProject(ctx, projectID, offset, limit)
}

func (s *sessionService) CloseSession(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus) (*domain.ExtractionSession, error) {
	if status != domain.SessionStatusCompleted && status != domain.SessionStatusFailed {
		return nil, fmt.Errorf("sessionService.CloseSession: %q is not a closing status", status)
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusInProgress {
		return nil, domain.ErrSessionClosed
	}
	session.Status = status
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("sessionService.CloseSession: %w", err)
	}
	return session, nil
}
