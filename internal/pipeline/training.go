package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/rs/zerolog/log"
)

// TrainOptions control one training run.
type TrainOptions struct {
	TargetCol             string
	TaskType              string
	SelectedModels        []string
	SelectedMetrics       []string
	SelectedFeatures      []string
	EnableCrossValidation bool
	CVFolds               int
	SampleData            bool
	SampleSize            int
	SessionID             string
	Seed                  int64
}

// TrainOutput holds the per-model metric rows plus the saved artifact file
// names keyed by model name.
type TrainOutput struct {
	Results       []domain.ModelResult `json:"results"`
	TrainedModels map[string]string    `json:"trained_models"`
}

// MetricFunc computes one evaluation metric.
type MetricFunc func(yTrue, yPred []float64) float64

// Metrics returns the metric registry for a task type. Only regression is
// supported.
func Metrics(taskType string) map[string]MetricFunc {
	return map[string]MetricFunc{
		"RMSE": rmse,
		"R2":   r2Score,
		"MAE":  mae,
	}
}

func rmse(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	sum := 0.0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(yTrue)))
}

func mae(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	sum := 0.0
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue))
}

func r2Score(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	var ssRes, ssTot float64
	for i := range yTrue {
		ssRes += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
		ssTot += (yTrue[i] - mean) * (yTrue[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// Trainer trains and evaluates a batch of models over one dataset and
// persists the resulting artifacts.
type Trainer struct {
	models *fsstore.ModelRepository
}

func NewTrainer(models *fsstore.ModelRepository) *Trainer {
	return &Trainer{models: models}
}

// Train fits each selected model on an 80/20 split and computes the
// selected metrics on the held-out set. A model that fails to fit is
// logged and excluded from the results; it does not abort its siblings.
// The run fails with TrainingError only when nothing can be trained.
func (t *Trainer) Train(ctx context.Context, f *dataset.Frame, opts TrainOptions) (*TrainOutput, error) {
	if opts.TaskType != "" && opts.TaskType != "regression" {
		return nil, &domain.TrainingError{Err: fmt.Errorf("unsupported task type: %s", opts.TaskType)}
	}
	if f == nil || f.NumRows() == 0 {
		return nil, &domain.TrainingError{Err: &domain.EmptyDatasetError{Source: "training input"}}
	}
	if !f.HasColumn(opts.TargetCol) {
		return nil, &domain.TrainingError{Err: fmt.Errorf("target column %q not found", opts.TargetCol)}
	}
	if len(opts.SelectedModels) == 0 {
		return nil, &domain.TrainingError{Err: fmt.Errorf("no models selected")}
	}

	if opts.SampleData && opts.SampleSize > 0 {
		f = f.Sample(opts.SampleSize, opts.Seed)
	}

	features := opts.SelectedFeatures
	if len(features) == 0 {
		for _, c := range f.NumericColumns() {
			if c != opts.TargetCol {
				features = append(features, c)
			}
		}
	}
	if len(features) == 0 {
		return nil, &domain.TrainingError{Err: fmt.Errorf("no numeric feature columns available")}
	}

	matrix, kept, err := f.Matrix(append(append([]string(nil), features...), opts.TargetCol))
	if err != nil {
		return nil, &domain.TrainingError{Err: err}
	}
	if len(matrix) < 5 {
		return nil, &domain.TrainingError{Err: fmt.Errorf("only %d usable rows after dropping missing values", len(matrix))}
	}
	_ = kept

	X := make([][]float64, len(matrix))
	y := make([]float64, len(matrix))
	for i, row := range matrix {
		X[i] = row[:len(features)]
		y[i] = row[len(features)]
	}

	trainX, trainY, testX, testY := split(X, y, 0.2, opts.Seed)

	metricFuncs := Metrics(opts.TaskType)
	selectedMetrics := opts.SelectedMetrics
	if len(selectedMetrics) == 0 {
		selectedMetrics = []string{"RMSE", "R2"}
	}

	output := &TrainOutput{TrainedModels: make(map[string]string)}
	for _, modelName := range opts.SelectedModels {
		if err := ctx.Err(); err != nil {
			return nil, &domain.TrainingError{Err: err}
		}

		result, artifactFile, err := t.trainOne(modelName, features, trainX, trainY, testX, testY, metricFuncs, selectedMetrics, opts)
		if err != nil {
			// Per-model failures are swallowed so sibling models still run.
			log.Error().Err(err).Str("model", modelName).Msg("model training failed, skipping")
			continue
		}
		output.Results = append(output.Results, *result)
		if artifactFile != "" {
			output.TrainedModels[modelName] = artifactFile
		}
	}

	if len(output.Results) == 0 {
		return nil, &domain.TrainingError{Err: fmt.Errorf("no models trained successfully")}
	}
	return output, nil
}

func (t *Trainer) trainOne(modelName string, features []string, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, metricFuncs map[string]MetricFunc, selectedMetrics []string, opts TrainOptions) (*domain.ModelResult, string, error) {
	estimator, kind, err := newEstimator(modelName, opts.Seed)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	if err := estimator.Fit(trainX, trainY); err != nil {
		return nil, "", fmt.Errorf("fit failed: %w", err)
	}
	elapsed := time.Since(start).Seconds()

	preds := estimator.Predict(testX)
	metrics := make(map[string]float64, len(selectedMetrics))
	for _, name := range selectedMetrics {
		fn, ok := metricFuncs[name]
		if !ok {
			log.Warn().Str("metric", name).Msg("unknown metric requested, skipping")
			continue
		}
		metrics[name] = round4(fn(testY, preds))
	}

	if opts.EnableCrossValidation {
		folds := opts.CVFolds
		if folds < 2 {
			folds = 3
		}
		if cv, err := crossValidateR2(modelName, trainX, trainY, folds, opts.Seed); err == nil {
			metrics["CV_R2"] = round4(cv)
		} else {
			log.Warn().Err(err).Str("model", modelName).Msg("cross-validation failed")
		}
	}

	result := &domain.ModelResult{
		ModelName:    modelName,
		Metrics:      metrics,
		TrainSeconds: round4(elapsed),
	}

	_, raw, err := EncodeEstimator(estimator)
	if err != nil {
		return nil, "", err
	}
	artifact := &domain.Artifact{
		ModelName:       modelName,
		TaskType:        "regression",
		TargetColumn:    opts.TargetCol,
		TrainingColumns: features,
		EstimatorKind:   kind,
		Estimator:       raw,
		TrainedAt:       time.Now().Unix(),
	}

	artifactFile, err := t.models.Save(artifact, opts.SessionID)
	if err != nil {
		// The metric row is still useful without the persisted artifact.
		log.Error().Err(err).Str("model", modelName).Msg("failed to save model artifact")
		return result, "", nil
	}
	result.ArtifactFile = artifactFile
	return result, artifactFile, nil
}

// crossValidateR2 averages held-out R2 over k folds.
func crossValidateR2(modelName string, X [][]float64, y []float64, folds int, seed int64) (float64, error) {
	if len(X) < folds {
		return 0, fmt.Errorf("not enough rows for %d folds", folds)
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(X))

	total := 0.0
	for fold := 0; fold < folds; fold++ {
		var trainX, testX [][]float64
		var trainY, testY []float64
		for i, idx := range perm {
			if i%folds == fold {
				testX = append(testX, X[idx])
				testY = append(testY, y[idx])
			} else {
				trainX = append(trainX, X[idx])
				trainY = append(trainY, y[idx])
			}
		}

		estimator, _, err := newEstimator(modelName, seed+int64(fold))
		if err != nil {
			return 0, err
		}
		if err := estimator.Fit(trainX, trainY); err != nil {
			return 0, err
		}
		total += r2Score(testY, estimator.Predict(testX))
	}
	return total / float64(folds), nil
}

// split shuffles with a seeded permutation and carves off a test fraction.
func split(X [][]float64, y []float64, testFraction float64, seed int64) ([][]float64, []float64, [][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(X))

	testN := int(float64(len(X)) * testFraction)
	if testN < 1 {
		testN = 1
	}

	var trainX, testX [][]float64
	var trainY, testY []float64
	for i, idx := range perm {
		if i < testN {
			testX = append(testX, X[idx])
			testY = append(testY, y[idx])
		} else {
			trainX = append(trainX, X[idx])
			trainY = append(trainY, y[idx])
		}
	}
	return trainX, trainY, testX, testY
}
