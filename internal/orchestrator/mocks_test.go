package orchestrator

import (
	"context"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/datapilot/datapilot/internal/retrieval"
	"github.com/stretchr/testify/mock"
)

type mockEDARunner struct {
	mock.Mock
}

func (m *mockEDARunner) Run(ctx context.Context, f *dataset.Frame, opts pipeline.EDAOptions) (*pipeline.EDAResult, error) {
	args := m.Called(ctx, f, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.EDAResult), args.Error(1)
}

type mockTrainer struct {
	mock.Mock
}

func (m *mockTrainer) Train(ctx context.Context, f *dataset.Frame, opts pipeline.TrainOptions) (*pipeline.TrainOutput, error) {
	args := m.Called(ctx, f, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.TrainOutput), args.Error(1)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Search(ctx context.Context, query string, topK int) ([]retrieval.Snippet, string, error) {
	args := m.Called(ctx, query, topK)
	var snippets []retrieval.Snippet
	if args.Get(0) != nil {
		snippets = args.Get(0).([]retrieval.Snippet)
	}
	return snippets, args.String(1), args.Error(2)
}

type mockInsightGenerator struct {
	mock.Mock
}

func (m *mockInsightGenerator) Generate(ctx context.Context, opts insight.Options) (*insight.Output, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*insight.Output), args.Error(1)
}
