package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storybook-server/internal/service"
)

// MockSpeechClient is a mock type for the SpeechClient type
type MockSpeechClient struct {
	mock.Mock
}

// Synthesize provides a mock function with given fields: ctx, text
func (_m *MockSpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ret := _m.Called(ctx, text)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}

	return r0, ret.Error(1)
}

// NewMockSpeechClient creates a new instance of MockSpeechClient. It also registers a testing interface on the mock.
// The first argument is typically a *testing.T value.
func NewMockSpeechClient(t interface {
	mock.TestingT
	Helper()
}) *MockSpeechClient {
	m := &MockSpeechClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.SpeechClient = (*MockSpeechClient)(nil)
