package pipeline

import (
	"math"
	"strconv"
	"testing"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFeaturesLogTransform(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"v"},
		Rows:    [][]string{{"0"}, {"9"}, {""}},
	}

	out, applied, err := ApplyFeatures(f, FeatureOptions{LogTransform: []string{"v"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"log(v)"}, applied)

	v0, _ := strconv.ParseFloat(out.Rows[0][0], 64)
	v1, _ := strconv.ParseFloat(out.Rows[1][0], 64)
	assert.InDelta(t, 0, v0, 1e-9)
	assert.InDelta(t, math.Log1p(9), v1, 1e-9)
	assert.Equal(t, "", out.Rows[2][0])
}

func TestApplyFeaturesLogTransformRejectsNegatives(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"v"},
		Rows:    [][]string{{"-1"}},
	}

	_, _, err := ApplyFeatures(f, FeatureOptions{LogTransform: []string{"v"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestApplyFeaturesStandardize(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"v"},
		Rows:    [][]string{{"10"}, {"20"}, {"30"}},
	}

	out, applied, err := ApplyFeatures(f, FeatureOptions{Standardize: []string{"v"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"standardize(v)"}, applied)

	mid, _ := strconv.ParseFloat(out.Rows[1][0], 64)
	assert.InDelta(t, 0, mid, 1e-9)
	lo, _ := strconv.ParseFloat(out.Rows[0][0], 64)
	hi, _ := strconv.ParseFloat(out.Rows[2][0], 64)
	assert.InDelta(t, -hi, lo, 1e-9)
}

func TestApplyFeaturesDateParts(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"created", "v"},
		Rows: [][]string{
			{"2024-03-15", "1"},
			{"not-a-date", "2"},
		},
	}

	out, applied, err := ApplyFeatures(f, FeatureOptions{
		ExtractDate:  []string{"created"},
		DropOriginal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"date_parts(created)"}, applied)

	assert.False(t, out.HasColumn("created"))
	require.True(t, out.HasColumn("created_year"))
	assert.Equal(t, "2024", out.Rows[0][out.ColumnIndex("created_year")])
	assert.Equal(t, "3", out.Rows[0][out.ColumnIndex("created_month")])
	assert.Equal(t, "15", out.Rows[0][out.ColumnIndex("created_day")])
	// Unparseable dates produce empty part cells.
	assert.Equal(t, "", out.Rows[1][out.ColumnIndex("created_year")])
}

func TestApplyFeaturesUnknownColumn(t *testing.T) {
	f := &dataset.Frame{Columns: []string{"v"}, Rows: [][]string{{"1"}}}
	_, _, err := ApplyFeatures(f, FeatureOptions{Standardize: []string{"nope"}})
	require.Error(t, err)
}
