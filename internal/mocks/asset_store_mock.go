package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/storage"
)

// MockAssetStore is a mock type for the AssetStore type
type MockAssetStore struct {
	mock.Mock
}

// Upload provides a mock function with given fields: ctx, storyID, path, data, contentType
func (_m *MockAssetStore) Upload(ctx context.Context, storyID string, path string, data []byte, contentType string) (string, error) {
	ret := _m.Called(ctx, storyID, path, data, contentType)

	var r0 string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(string)
	}

	return r0, ret.Error(1)
}

// NewMockAssetStore creates a new instance of MockAssetStore. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockAssetStore(t interface {
	mock.TestingT
	Helper()
}) *MockAssetStore {
	m := &MockAssetStore{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ storage.AssetStore = (*MockAssetStore)(nil)
