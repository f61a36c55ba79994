package pipeline

import (
	"testing"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessDropsDuplicates(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"1", "x"},
			{"1", "x"},
			{"2", "y"},
			{"1", "x"},
		},
	}

	out, summary, err := Preprocess(f, PreprocessOptions{DropDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.RowsBefore)
	assert.Equal(t, 2, summary.RowsAfter)
	assert.Equal(t, 2, summary.DuplicatesDropped)
	assert.Len(t, out.Rows, 2)
	// The input frame is untouched.
	assert.Len(t, f.Rows, 4)
}

func TestPreprocessImputesMeanAndMode(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"num", "cat"},
		Rows: [][]string{
			{"10", "red"},
			{"", "red"},
			{"20", ""},
			{"30", "blue"},
		},
	}

	out, summary, err := Preprocess(f, PreprocessOptions{FillMissing: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ImputedCells)
	assert.ElementsMatch(t, []string{"num", "cat"}, summary.ImputedColumns)

	assert.Equal(t, "20", out.Rows[1][0]) // mean of 10, 20, 30
	assert.Equal(t, "red", out.Rows[2][1])
}

func TestPreprocessEmptyFrame(t *testing.T) {
	_, _, err := Preprocess(&dataset.Frame{Columns: []string{"a"}}, PreprocessOptions{})
	var emptyErr *domain.EmptyDatasetError
	require.ErrorAs(t, err, &emptyErr)
}

func TestPreprocessNoOpKeepsRows(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"a"},
		Rows:    [][]string{{"1"}, {"1"}, {""}},
	}

	out, summary, err := Preprocess(f, PreprocessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.RowsAfter)
	assert.Equal(t, 0, summary.ImputedCells)
	assert.Equal(t, "", out.Rows[2][0])
}
