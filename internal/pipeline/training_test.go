package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearFrame(n int) *dataset.Frame {
	f := &dataset.Frame{Columns: []string{"x1", "x2", "y"}}
	for i := 0; i < n; i++ {
		x1 := float64(i)
		x2 := float64(i % 7)
		y := 2*x1 + 3*x2 + 5
		f.Rows = append(f.Rows, []string{
			fmt.Sprintf("%g", x1), fmt.Sprintf("%g", x2), fmt.Sprintf("%g", y),
		})
	}
	return f
}

func newTestTrainer(t *testing.T) *Trainer {
	t.Helper()
	models, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)
	return NewTrainer(models)
}

func TestTrainLinearRegressionOnLinearData(t *testing.T) {
	trainer := newTestTrainer(t)

	out, err := trainer.Train(context.Background(), linearFrame(40), TrainOptions{
		TargetCol:      "y",
		SelectedModels: []string{"LinearRegression"},
		Seed:           42,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)

	res := out.Results[0]
	assert.Equal(t, "LinearRegression", res.ModelName)
	assert.InDelta(t, 1.0, res.Metrics["R2"], 1e-6)
	assert.InDelta(t, 0.0, res.Metrics["RMSE"], 1e-6)
	assert.NotEmpty(t, res.ArtifactFile)
	assert.Contains(t, out.TrainedModels, "LinearRegression")
}

func TestTrainRandomForest(t *testing.T) {
	trainer := newTestTrainer(t)

	out, err := trainer.Train(context.Background(), linearFrame(60), TrainOptions{
		TargetCol:       "y",
		SelectedModels:  []string{"RandomForestRegressor"},
		SelectedMetrics: []string{"RMSE", "R2", "MAE"},
		Seed:            7,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Greater(t, out.Results[0].Metrics["R2"], 0.5)
	assert.Contains(t, out.Results[0].Metrics, "MAE")
}

func TestTrainSkipsFailingModel(t *testing.T) {
	trainer := newTestTrainer(t)

	out, err := trainer.Train(context.Background(), linearFrame(40), TrainOptions{
		TargetCol:      "y",
		SelectedModels: []string{"NoSuchModel", "LinearRegression"},
		Seed:           1,
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "LinearRegression", out.Results[0].ModelName)
}

func TestTrainFailsWhenNothingTrains(t *testing.T) {
	trainer := newTestTrainer(t)

	_, err := trainer.Train(context.Background(), linearFrame(40), TrainOptions{
		TargetCol:      "y",
		SelectedModels: []string{"NoSuchModel"},
	})
	var trainErr *domain.TrainingError
	require.ErrorAs(t, err, &trainErr)
}

func TestTrainMissingTarget(t *testing.T) {
	trainer := newTestTrainer(t)

	_, err := trainer.Train(context.Background(), linearFrame(10), TrainOptions{
		TargetCol:      "absent",
		SelectedModels: []string{"LinearRegression"},
	})
	var trainErr *domain.TrainingError
	require.ErrorAs(t, err, &trainErr)
}

func TestTrainWithCrossValidation(t *testing.T) {
	trainer := newTestTrainer(t)

	out, err := trainer.Train(context.Background(), linearFrame(50), TrainOptions{
		TargetCol:             "y",
		SelectedModels:        []string{"LinearRegression"},
		EnableCrossValidation: true,
		CVFolds:               3,
		Seed:                  3,
	})
	require.NoError(t, err)
	assert.Contains(t, out.Results[0].Metrics, "CV_R2")
	assert.InDelta(t, 1.0, out.Results[0].Metrics["CV_R2"], 1e-6)
}

func TestMetricFunctions(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1, 2, 3, 4}
	assert.InDelta(t, 0, rmse(yTrue, yPred), 1e-12)
	assert.InDelta(t, 0, mae(yTrue, yPred), 1e-12)
	assert.InDelta(t, 1, r2Score(yTrue, yPred), 1e-12)

	yPred = []float64{2, 3, 4, 5}
	assert.InDelta(t, 1, rmse(yTrue, yPred), 1e-12)
	assert.InDelta(t, 1, mae(yTrue, yPred), 1e-12)
	assert.Less(t, r2Score(yTrue, yPred), 1.0)
}
