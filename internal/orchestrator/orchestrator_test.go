package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decisionFrame() *dataset.Frame {
	f := &dataset.Frame{Columns: []string{"f1", "f2", "target"}}
	for i := 1; i <= 5; i++ {
		f.Rows = append(f.Rows, []string{
			fmt.Sprintf("%d", i*2), fmt.Sprintf("%d", i*3), fmt.Sprintf("%d", i),
		})
	}
	return f
}

func trainOutputWithR2(r2 float64) *pipeline.TrainOutput {
	return &pipeline.TrainOutput{
		Results: []domain.ModelResult{
			{ModelName: "LinearRegression", Metrics: map[string]float64{"R2": r2, "RMSE": 1.0}},
			{ModelName: "RandomForestRegressor", Metrics: map[string]float64{"R2": r2 - 0.1, "RMSE": 1.2}},
		},
	}
}

func defaultConfig() Config {
	return Config{
		EDAQualityThreshold:       0.8,
		ModelPerformanceThreshold: 0.75,
		DataQualityScore:          0.85,
	}
}

func TestDecideLowR2GeneratesInsights(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)
	retriever := new(mockRetriever)
	insights := new(mockInsightGenerator)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pipeline.EDAResult{Report: "eda report"}, nil)
	trainer.On("Train", mock.Anything, mock.Anything, mock.Anything).
		Return(trainOutputWithR2(0.7), nil)
	retriever.On("Search", mock.Anything, "Ways to improve regression R2 score", 2).
		Return(nil, "some domain context", nil)
	insights.On("Generate", mock.Anything, mock.MatchedBy(func(opts insight.Options) bool {
		return opts.ModelChoice == "gpt-4" && opts.ForceRegenerate && opts.EnableCoT
	})).Return(&insight.Output{Insights: "try gradient boosting"}, nil)

	agent := NewAgent(defaultConfig(), eda, trainer, retriever, insights)
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{TargetCol: "target"})

	require.False(t, decision.Failed())
	assert.Equal(t, "Tune hyperparameters or try alternative models.", decision.NextAction)
	assert.Equal(t, "Best R2 (0.7) < threshold (0.75).", decision.Reason)
	assert.Equal(t, "try gradient boosting", decision.AIInsights)
	assert.Equal(t, "eda report", decision.EDAReport)
	assert.Len(t, decision.ModelResults, 2)
}

func TestDecideHighR2SkipsInsights(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)
	retriever := new(mockRetriever)
	insights := new(mockInsightGenerator)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pipeline.EDAResult{Report: "eda report"}, nil)
	trainer.On("Train", mock.Anything, mock.Anything, mock.Anything).
		Return(trainOutputWithR2(0.9), nil)

	agent := NewAgent(defaultConfig(), eda, trainer, retriever, insights)
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{TargetCol: "target"})

	assert.Equal(t, "Proceed to forecasting or deployment.", decision.NextAction)
	assert.Equal(t, "Data quality & model performance are satisfactory (R2=0.9).", decision.Reason)
	assert.Empty(t, decision.AIInsights)
	retriever.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	insights.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestDecideLowDataQualitySkipsTraining(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pipeline.EDAResult{Report: "eda report"}, nil)

	cfg := defaultConfig()
	cfg.DataQualityScore = 0.5

	agent := NewAgent(cfg, eda, trainer, new(mockRetriever), new(mockInsightGenerator))
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{})

	assert.Equal(t, "Perform advanced feature engineering.", decision.NextAction)
	assert.Equal(t, "Data quality score (0.5) < threshold (0.8).", decision.Reason)
	trainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything, mock.Anything)
}

func TestDecideEDAFailureShortCircuits(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("no numeric columns"))

	agent := NewAgent(defaultConfig(), eda, trainer, new(mockRetriever), new(mockInsightGenerator))
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{})

	require.True(t, decision.Failed())
	assert.Equal(t, "EDA failed", decision.Error)
	assert.Equal(t, "no numeric columns", decision.Details)
	assert.Empty(t, decision.NextAction)
	trainer.AssertNotCalled(t, "Train", mock.Anything, mock.Anything, mock.Anything)
}

func TestDecideTrainingFailure(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pipeline.EDAResult{Report: "eda report"}, nil)
	trainer.On("Train", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("no models trained successfully"))

	agent := NewAgent(defaultConfig(), eda, trainer, new(mockRetriever), new(mockInsightGenerator))
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{})

	require.True(t, decision.Failed())
	assert.Equal(t, "Model training failed", decision.Error)
	assert.Empty(t, decision.NextAction)
}

func TestDecideInsightFailureDegrades(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)
	retriever := new(mockRetriever)
	insights := new(mockInsightGenerator)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pipeline.EDAResult{Report: "eda report"}, nil)
	trainer.On("Train", mock.Anything, mock.Anything, mock.Anything).
		Return(trainOutputWithR2(0.6), nil)
	retriever.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, "context", nil)
	insights.On("Generate", mock.Anything, mock.Anything).
		Return(nil, errors.New("ollama is down"))

	agent := NewAgent(defaultConfig(), eda, trainer, retriever, insights)
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{})

	require.False(t, decision.Failed())
	assert.Equal(t, "Tune hyperparameters or try alternative models.", decision.NextAction)
	assert.Equal(t, "No AI insights available due to an error.", decision.AIInsights)
}

func TestDecideTrainsWithFixedSelection(t *testing.T) {
	eda := new(mockEDARunner)
	trainer := new(mockTrainer)

	eda.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(&pipeline.EDAResult{Report: "r"}, nil)
	trainer.On("Train", mock.Anything, mock.Anything, mock.MatchedBy(func(opts pipeline.TrainOptions) bool {
		return opts.TargetCol == "price" &&
			opts.TaskType == "regression" &&
			len(opts.SelectedModels) == 2 &&
			opts.SelectedModels[0] == "LinearRegression" &&
			opts.SelectedModels[1] == "RandomForestRegressor" &&
			!opts.EnableCrossValidation
	})).Return(trainOutputWithR2(0.9), nil)

	agent := NewAgent(defaultConfig(), eda, trainer, new(mockRetriever), new(mockInsightGenerator))
	decision := agent.DecideNextSteps(context.Background(), decisionFrame(), Options{TargetCol: "price"})

	require.False(t, decision.Failed())
	trainer.AssertExpectations(t)
}
