package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tessera/internal/port"
)

// MockExtractionWorker is a mock implementation of port.ExtractionWorker.
type MockExtractionWorker struct {
	mock.Mock
}

func (m *MockExtractionWorker) Run(ctx context.Context, input port.WorkerInput, onProgress func(port.WorkerProgress)) (*port.WorkerResult, error) {
	args := m.Called(ctx, input, onProgress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.WorkerResult), args.Error(1)
}
