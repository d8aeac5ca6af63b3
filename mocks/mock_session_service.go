package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tessera/internal/domain"
	"tessera/internal/service"
)

// MockSessionService is a mock implementation of service.SessionService.
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) CreateSession(ctx context.Context, in service.CreateSessionInput) (*domain.ExtractionSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionSession), args.Error(1)
}

func (m *MockSessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.ExtractionSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionSession), args.Error(1)
}

func (m *MockSessionService) ListSessions(ctx context.Context, projectID uuid.UUID, offset, limit int) ([]domain.ExtractionSession, int, error) {
	args := m.Called(ctx, projectID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionSession), args.Int(1), args.Error(2)
}

func (m *MockSessionService) CloseSession(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus) (*domain.ExtractionSession, error) {
	args := m.Called(ctx, sessionID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionSession), args.Error(1)
}
