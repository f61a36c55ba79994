package orchestrator

import (
	"context"
	"fmt"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/datapilot/datapilot/internal/retrieval"
	"github.com/rs/zerolog/log"
)

const (
	actionFeatureEngineering = "Perform advanced feature engineering."
	actionTuneModels         = "Tune hyperparameters or try alternative models."
	actionProceed            = "Proceed to forecasting or deployment."

	degradedInsights = "No AI insights available due to an error."

	contextQuery = "Ways to improve regression R2 score"
)

// EDARunner runs the exploratory analysis stage.
type EDARunner interface {
	Run(ctx context.Context, f *dataset.Frame, opts pipeline.EDAOptions) (*pipeline.EDAResult, error)
}

// Trainer runs the model training stage.
type Trainer interface {
	Train(ctx context.Context, f *dataset.Frame, opts pipeline.TrainOptions) (*pipeline.TrainOutput, error)
}

// ContextRetriever looks up domain context for a query.
type ContextRetriever interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Snippet, string, error)
}

// InsightGenerator produces AI insights from summaries.
type InsightGenerator interface {
	Generate(ctx context.Context, opts insight.Options) (*insight.Output, error)
}

// Config carries the decision thresholds. DataQualityScore is injected
// rather than derived from the EDA output; pipeline.AggregateQualityScore
// is the candidate derivation if that ever changes.
type Config struct {
	EDAQualityThreshold       float64
	ModelPerformanceThreshold float64
	DataQualityScore          float64
}

// Options scope one decision run.
type Options struct {
	TargetCol string
	SessionID string
}

// Agent is the decision loop over the pipeline stages. Each invocation is
// a fresh, complete run: no retries, no persisted partial progress.
type Agent struct {
	cfg       Config
	eda       EDARunner
	trainer   Trainer
	retriever ContextRetriever
	insights  InsightGenerator
}

func NewAgent(cfg Config, eda EDARunner, trainer Trainer, retriever ContextRetriever, insights InsightGenerator) *Agent {
	if cfg.EDAQualityThreshold == 0 {
		cfg.EDAQualityThreshold = 0.8
	}
	if cfg.ModelPerformanceThreshold == 0 {
		cfg.ModelPerformanceThreshold = 0.75
	}
	if cfg.DataQualityScore == 0 {
		cfg.DataQualityScore = 0.85
	}
	return &Agent{cfg: cfg, eda: eda, trainer: trainer, retriever: retriever, insights: insights}
}

// DecideNextSteps runs EDA, inspects data quality, conditionally trains
// models, and picks a next action. Stage failures become a decision record
// with an error key instead of propagating; every successful path carries
// a next_action.
func (a *Agent) DecideNextSteps(ctx context.Context, f *dataset.Frame, opts Options) *domain.Decision {
	log.Info().Msg("orchestrator: starting EDA analysis")
	decision := &domain.Decision{}

	if opts.TargetCol == "" {
		opts.TargetCol = "target"
	}

	edaOut, err := a.eda.Run(ctx, f, pipeline.EDAOptions{
		Interactive:         false,
		ExcludeDateFeatures: true,
		CorrelationMethod:   "pearson",
		SampleSize:          100000,
	})
	if err != nil {
		log.Error().Err(err).Msg("orchestrator: EDA failed")
		return &domain.Decision{Error: "EDA failed", Details: err.Error()}
	}
	decision.EDAReport = edaOut.Report

	dataQuality := a.cfg.DataQualityScore
	if dataQuality < a.cfg.EDAQualityThreshold {
		log.Info().Float64("quality", dataQuality).Msg("data quality is low, suggesting advanced feature engineering")
		decision.NextAction = actionFeatureEngineering
		decision.Reason = fmt.Sprintf("Data quality score (%g) < threshold (%g).", dataQuality, a.cfg.EDAQualityThreshold)
		return decision
	}

	log.Info().Msg("data quality is acceptable, proceeding to model training")
	trainOut, err := a.trainer.Train(ctx, f, pipeline.TrainOptions{
		TargetCol:       opts.TargetCol,
		TaskType:        "regression",
		SelectedModels:  []string{"LinearRegression", "RandomForestRegressor"},
		SelectedMetrics: []string{"RMSE", "R2"},
		CVFolds:         3,
		SampleSize:      100000,
		SessionID:       opts.SessionID,
	})
	if err != nil {
		log.Error().Err(err).Msg("orchestrator: model training failed")
		return &domain.Decision{Error: "Model training failed", Details: err.Error()}
	}
	decision.ModelResults = trainOut.Results

	// Best R2 across trained models, defaulting to 0 when none reported it.
	bestR2 := 0.0
	for i, res := range trainOut.Results {
		if r2 := res.R2(); i == 0 || r2 > bestR2 {
			bestR2 = r2
		}
	}

	if bestR2 >= a.cfg.ModelPerformanceThreshold {
		decision.NextAction = actionProceed
		decision.Reason = fmt.Sprintf("Data quality & model performance are satisfactory (R2=%g).", bestR2)
		return decision
	}

	decision.NextAction = actionTuneModels
	decision.Reason = fmt.Sprintf("Best R2 (%g) < threshold (%g).", bestR2, a.cfg.ModelPerformanceThreshold)
	decision.AIInsights = a.augment(ctx, edaOut.Report)
	return decision
}

// augment retrieves domain context and generates insights for the
// low-performance branch. Any failure degrades to a placeholder string
// rather than failing the decision.
func (a *Agent) augment(ctx context.Context, report string) string {
	_, domainContext, err := a.retriever.Search(ctx, contextQuery, 2)
	if err != nil {
		log.Error().Err(err).Msg("failed to retrieve domain context")
		return degradedInsights
	}

	out, err := a.insights.Generate(ctx, insight.Options{
		EDASummary:      fmt.Sprintf("%s\n\nAdditional Domain Context:\n%s", report, domainContext),
		ModelSummary:    "Model training results indicate low R2. Consider adjusting hyperparameters and exploring alternative algorithms.",
		ModelChoice:     "gpt-4",
		ForceRegenerate: true,
		EnableCoT:       true,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to generate AI insights")
		return degradedInsights
	}
	return out.Insights
}
