package insight

import (
	"context"

	"github.com/datapilot/datapilot/internal/llm"
	"github.com/stretchr/testify/mock"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockProvider) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockProvider) IsModelAvailable(ctx context.Context, model string) bool {
	args := m.Called(ctx, model)
	return args.Bool(0)
}

func (m *mockProvider) Chat(ctx context.Context, model, prompt string, maxTokens int) (*llm.Result, error) {
	args := m.Called(ctx, model, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Result), args.Error(1)
}
