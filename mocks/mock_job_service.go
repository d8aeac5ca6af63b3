package mocks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tessera/internal/domain"
	"tessera/internal/service"
)

// MockJobService is a mock implementation of service.JobService.
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) CreateJob(ctx context.Context, in service.CreateJobInput) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockJobService) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockJobService) ListJobs(ctx context.Context, sessionID uuid.UUID) ([]domain.ExtractionJob, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractionJob), args.Error(1)
}

func (m *MockJobService) Execute(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobService) CancelJob(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobService) AddLog(ctx context.Context, jobID uuid.UUID, message string) error {
	args := m.Called(ctx, jobID, message)
	return args.Error(0)
}

func (m *MockJobService) CacheData(ctx context.Context, jobID uuid.UUID, key string, data json.RawMessage, ttlHours int) error {
	args := m.Called(ctx, jobID, key, data, ttlHours)
	return args.Error(0)
}

func (m *MockJobService) GetCachedData(ctx context.Context, jobID uuid.UUID, key string) (json.RawMessage, error) {
	args := m.Called(ctx, jobID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockJobService) CleanupExpiredCache(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
