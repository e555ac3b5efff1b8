package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/worker"
)

// MockStageGuard is a mock type for the StageGuard type
type MockStageGuard struct {
	mock.Mock
}

// Begin provides a mock function with given fields: ctx, storyID, stage
func (_m *MockStageGuard) Begin(ctx context.Context, storyID string, stage string) (bool, error) {
	ret := _m.Called(ctx, storyID, stage)
	return ret.Bool(0), ret.Error(1)
}

// Release provides a mock function with given fields: ctx, storyID, stage
func (_m *MockStageGuard) Release(ctx context.Context, storyID string, stage string) error {
	ret := _m.Called(ctx, storyID, stage)
	return ret.Error(0)
}

// NewMockStageGuard creates a new instance of MockStageGuard. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockStageGuard(t interface {
	mock.TestingT
	Helper()
}) *MockStageGuard {
	m := &MockStageGuard{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ worker.StageGuard = (*MockStageGuard)(nil)
