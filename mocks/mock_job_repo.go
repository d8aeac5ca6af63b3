package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tessera/internal/domain"
)

// MockJobRepo is a mock implementation of port.JobRepository.
type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockJobRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractionJob), args.Error(1)
}

func (m *MockJobRepo) Update(ctx context.Context, job *domain.ExtractionJob, expected domain.JobStatus) error {
	args := m.Called(ctx, job, expected)
	return args.Error(0)
}

func (m *MockJobRepo) UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, step string) error {
	args := m.Called(ctx, jobID, progress, step)
	return args.Error(0)
}

func (m *MockJobRepo) AppendLog(ctx context.Context, jobID uuid.UUID, entry domain.JobLogEntry) error {
	args := m.Called(ctx, jobID, entry)
	return args.Error(0)
}

func (m *MockJobRepo) NextExtractionNumber(ctx context.Context, sessionID uuid.UUID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRepo) HasActiveJob(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobRepo) ListPending(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractionJob), args.Error(1)
}
