// Package actionmock contains testify mocks for the action package.
package actionmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/bulkr/internal/action"
	"github.com/slok/bulkr/internal/model"
)

// MockExecutor is a mock of action.Executor.
type MockExecutor struct {
	mock.Mock
}

var _ action.Executor = &MockExecutor{}

func (m *MockExecutor) Execute(ctx context.Context, req action.Request) model.Outcome {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Outcome)
}
