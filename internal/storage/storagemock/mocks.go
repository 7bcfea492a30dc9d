// Package storagemock contains testify mocks for the storage package.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage"
)

// MockRunRepository is a mock of storage.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

var _ storage.RunRepository = &MockRunRepository{}

func (m *MockRunRepository) SaveRunReport(ctx context.Context, r model.RunReport) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunRepository) GetRunReport(ctx context.Context, id string) (*model.RunReport, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.RunReport)
	return r, args.Error(1)
}

func (m *MockRunRepository) ListRunReports(ctx context.Context, opts storage.ListRunReportsOpts) ([]model.RunReport, error) {
	args := m.Called(ctx, opts)
	r, _ := args.Get(0).([]model.RunReport)
	return r, args.Error(1)
}
