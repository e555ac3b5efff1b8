package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/model"
	"storybook-server/internal/repository"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// GetStory provides a mock function with given fields: ctx, storyID
func (_m *MockStoryRepository) GetStory(ctx context.Context, storyID string) (*model.StoryDocument, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *model.StoryDocument
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.StoryDocument)
	}

	return r0, ret.Error(1)
}

// UpdateStory provides a mock function with given fields: ctx, storyID, fields
func (_m *MockStoryRepository) UpdateStory(ctx context.Context, storyID string, fields map[string]interface{}) error {
	ret := _m.Called(ctx, storyID, fields)
	return ret.Error(0)
}

// SetStatus provides a mock function with given fields: ctx, storyID, status
func (_m *MockStoryRepository) SetStatus(ctx context.Context, storyID string, status model.StoryStatus) error {
	ret := _m.Called(ctx, storyID, status)
	return ret.Error(0)
}

// FailStory provides a mock function with given fields: ctx, storyID, cause
func (_m *MockStoryRepository) FailStory(ctx context.Context, storyID string, cause string) error {
	ret := _m.Called(ctx, storyID, cause)
	return ret.Error(0)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)

// MockProfileRepository is a mock type for the ProfileRepository type
type MockProfileRepository struct {
	mock.Mock
}

// GetProfile provides a mock function with given fields: ctx, profileID
func (_m *MockProfileRepository) GetProfile(ctx context.Context, profileID string) (*model.Profile, error) {
	ret := _m.Called(ctx, profileID)

	var r0 *model.Profile
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Profile)
	}

	return r0, ret.Error(1)
}

// NewMockProfileRepository creates a new instance of MockProfileRepository. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockProfileRepository(t interface {
	mock.TestingT
	Helper()
}) *MockProfileRepository {
	m := &MockProfileRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.ProfileRepository = (*MockProfileRepository)(nil)
