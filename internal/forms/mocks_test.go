package forms

import (
	"context"

	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) IdentifyFields(ctx context.Context, formHTML string) (map[types.Role]string, error) {
	args := m.Called(ctx, formHTML)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[types.Role]string), args.Error(1)
}

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	args := m.Called(ctx, prompt, tier)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	return m.Called(tier).String(0)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}
