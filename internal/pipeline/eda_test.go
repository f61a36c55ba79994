package pipeline

import (
	"context"
	"testing"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edaFrame() *dataset.Frame {
	return &dataset.Frame{
		Columns: []string{"price", "size", "city"},
		Rows: [][]string{
			{"100", "50", "berlin"},
			{"200", "100", "munich"},
			{"300", "150", "berlin"},
			{"400", "200", "hamburg"},
			{"", "250", "berlin"},
		},
	}
}

func TestRunEDAProducesReportAndTables(t *testing.T) {
	out, err := RunEDA(context.Background(), edaFrame(), EDAOptions{TargetCol: "price"})
	require.NoError(t, err)

	assert.Contains(t, out.Report, "Dataset shape: 5 rows x 3 columns")
	assert.Contains(t, out.Report, "Target column: price")
	assert.Contains(t, out.Report, "price: 20.00% missing")
	assert.Contains(t, out.Report, "Overall data quality score:")

	require.Contains(t, out.Tables, "summary_statistics")
	require.Contains(t, out.Tables, "missing_values")
	require.Contains(t, out.Tables, "correlations")

	// price and size correlate perfectly over the rows where both exist.
	corr := out.Tables["correlations"]
	require.Len(t, corr, 1)
	assert.InDelta(t, 1.0, corr[0]["correlation"].(float64), 1e-6)
}

func TestRunEDAEmptyDataset(t *testing.T) {
	_, err := RunEDA(context.Background(), &dataset.Frame{Columns: []string{"a"}}, EDAOptions{})
	var edaErr *domain.EDAError
	require.ErrorAs(t, err, &edaErr)
}

func TestRunEDARejectsUnknownCorrelationMethod(t *testing.T) {
	_, err := RunEDA(context.Background(), edaFrame(), EDAOptions{CorrelationMethod: "kendall"})
	var edaErr *domain.EDAError
	require.ErrorAs(t, err, &edaErr)
	assert.Contains(t, err.Error(), "kendall")
}

func TestRunEDASamplesLargeFrames(t *testing.T) {
	f := linearFrame(100)
	out, err := RunEDA(context.Background(), f, EDAOptions{SampleSize: 20})
	require.NoError(t, err)
	assert.Contains(t, out.Report, "Analysis performed on a sample of 20 rows.")
	// The shape line still describes the full dataset.
	assert.Contains(t, out.Report, "Dataset shape: 100 rows x 3 columns")
}

func TestProfileColumnsQuality(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"full", "half", "constant"},
		Rows: [][]string{
			{"1", "a", "x"},
			{"2", "", "x"},
			{"3", "b", "x"},
			{"4", "", "x"},
		},
	}

	profiles := ProfileColumns(f)
	require.Len(t, profiles, 3)

	byName := map[string]QualityProfile{}
	for _, p := range profiles {
		byName[p.ColumnName] = p
	}

	assert.Equal(t, 0.0, byName["full"].NullRate)
	assert.InDelta(t, 1.0, byName["full"].QualityScore, 1e-9)
	assert.InDelta(t, 0.5, byName["half"].NullRate, 1e-9)
	// Single-valued columns lose the diversity share of the score.
	assert.InDelta(t, 0.8, byName["constant"].QualityScore, 1e-9)
	assert.Equal(t, 1, byName["constant"].DistinctCount)

	agg := AggregateQualityScore(profiles)
	assert.Greater(t, agg, 0.0)
	assert.LessOrEqual(t, agg, 1.0)
}
