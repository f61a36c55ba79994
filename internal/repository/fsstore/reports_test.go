package fsstore_test

import (
	"strings"
	"testing"

	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEDAReportRoundTrip(t *testing.T) {
	store, err := fsstore.NewReportStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.SaveEDAReport("ds-1", "Dataset Shape: (10, 3)\n"))

	report, err := store.EDAReport("ds-1")
	require.NoError(t, err)
	assert.Equal(t, "Dataset Shape: (10, 3)\n", report)

	_, err = store.EDAReport("other")
	assert.Error(t, err)
}

func TestTrainingSummaryFromSavedResults(t *testing.T) {
	store, err := fsstore.NewReportStore(t.TempDir())
	require.NoError(t, err)

	results := []domain.ModelResult{
		{ModelName: "LinearRegression", Metrics: map[string]float64{"R2": 0.91, "RMSE": 1.2}},
		{ModelName: "RandomForestRegressor", Metrics: map[string]float64{"R2": 0.88}},
	}
	require.NoError(t, store.SaveTrainingResults("ds-1", results))

	summary, err := store.TrainingSummary("ds-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(summary, "Model Training Results:\n\n"))
	// Metric columns come back sorted by name.
	assert.Contains(t, summary, "model_name  R2  RMSE")
	assert.Contains(t, summary, "LinearRegression  0.91  1.2")
	// A model missing a metric leaves the cell empty rather than failing.
	assert.Contains(t, summary, "RandomForestRegressor  0.88")
}

func TestTrainingSummaryMissingDataset(t *testing.T) {
	store, err := fsstore.NewReportStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.TrainingSummary("nope")
	assert.Error(t, err)
}

func TestTrainingSummaryCapsRows(t *testing.T) {
	store, err := fsstore.NewReportStore(t.TempDir())
	require.NoError(t, err)

	var results []domain.ModelResult
	for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		results = append(results, domain.ModelResult{ModelName: name, Metrics: map[string]float64{"R2": 0.5}})
	}
	require.NoError(t, store.SaveTrainingResults("ds-1", results))

	summary, err := store.TrainingSummary("ds-1")
	require.NoError(t, err)
	assert.Contains(t, summary, "m5")
	assert.NotContains(t, summary, "m6")
}
