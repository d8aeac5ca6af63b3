package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tessera/internal/domain"
	"tessera/internal/grid"
	"tessera/internal/port"
	"tessera/internal/schema"
)

// MockGridService is a mock implementation of service.GridService.
type MockGridService struct {
	mock.Mock
}

func (m *MockGridService) Grid(ctx context.Context, sessionID uuid.UUID) ([]grid.GridCell, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]grid.GridCell), args.Error(1)
}

func (m *MockGridService) Rows(ctx context.Context, sessionID uuid.UUID) ([]port.KnownRow, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.KnownRow), args.Error(1)
}

func (m *MockGridService) Resolved(ctx context.Context, sessionID uuid.UUID) (*schema.Resolved, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schema.Resolved), args.Error(1)
}

func (m *MockGridService) EditCell(ctx context.Context, cellID uuid.UUID, value *string, reasoning string) (*domain.FieldValidation, error) {
	args := m.Called(ctx, cellID, value, reasoning)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FieldValidation), args.Error(1)
}

func (m *MockGridService) VerifyCell(ctx context.Context, cellID uuid.UUID, verified bool) (*domain.FieldValidation, error) {
	args := m.Called(ctx, cellID, verified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FieldValidation), args.Error(1)
}
