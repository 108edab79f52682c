package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockName is the provider name that causes dispatch outcomes to be
// recorded as MOCK_SENT instead of SENT.
const MockName = "mock"

// MockProvider is the deterministic no-op backend for local development and
// tests. Every send succeeds with a synthesized request id.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Name() string { return MockName }

func (p *MockProvider) SendAlimtalk(ctx context.Context, req AlimtalkRequest) (*SendResult, error) {
	return mockResult(), nil
}

func (p *MockProvider) SendSMS(ctx context.Context, req SMSRequest) (*SendResult, error) {
	return mockResult(), nil
}

func mockResult() *SendResult {
	id := uuid.NewString()
	return &SendResult{
		RequestID: fmt.Sprintf("mock-%s", id[:12]),
		Raw:       `{"ok":true,"mode":"mock"}`,
	}
}
