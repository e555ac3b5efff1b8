package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/messaging"
)

// MockPublisher is a mock type for the Publisher type
type MockPublisher struct {
	mock.Mock
}

// PublishStoryEvent provides a mock function with given fields: ctx, event, storyID, profileID
func (_m *MockPublisher) PublishStoryEvent(ctx context.Context, event messaging.StoryEvent, storyID string, profileID string) error {
	ret := _m.Called(ctx, event, storyID, profileID)
	return ret.Error(0)
}

// Close provides a mock function
func (_m *MockPublisher) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockPublisher creates a new instance of MockPublisher. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockPublisher {
	m := &MockPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.Publisher = (*MockPublisher)(nil)
