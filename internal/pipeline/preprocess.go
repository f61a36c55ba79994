package pipeline

import (
	"strconv"
	"strings"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
)

// PreprocessOptions control the cleaning pass.
type PreprocessOptions struct {
	DropDuplicates bool
	FillMissing    bool
}

// PreprocessSummary reports what the cleaning pass changed.
type PreprocessSummary struct {
	RowsBefore        int      `json:"rows_before"`
	RowsAfter         int      `json:"rows_after"`
	DuplicatesDropped int      `json:"duplicates_dropped"`
	ImputedCells      int      `json:"imputed_cells"`
	ImputedColumns    []string `json:"imputed_columns,omitempty"`
}

// Preprocess cleans a frame: optional duplicate-row removal, then missing
// value imputation (numeric mean, categorical mode). Returns a new frame;
// the input is not mutated.
func Preprocess(f *dataset.Frame, opts PreprocessOptions) (*dataset.Frame, *PreprocessSummary, error) {
	if f == nil || f.NumRows() == 0 {
		return nil, nil, &domain.EmptyDatasetError{Source: "preprocess input"}
	}

	out := f.Clone()
	summary := &PreprocessSummary{RowsBefore: f.NumRows()}

	if opts.DropDuplicates {
		seen := make(map[string]bool, len(out.Rows))
		var kept [][]string
		for _, row := range out.Rows {
			key := strings.Join(row, "\x1f")
			if seen[key] {
				summary.DuplicatesDropped++
				continue
			}
			seen[key] = true
			kept = append(kept, row)
		}
		out.Rows = kept
	}

	if opts.FillMissing {
		for colIdx, name := range out.Columns {
			imputed := imputeColumn(out, colIdx, name)
			if imputed > 0 {
				summary.ImputedCells += imputed
				summary.ImputedColumns = append(summary.ImputedColumns, name)
			}
		}
	}

	summary.RowsAfter = out.NumRows()
	if summary.RowsAfter == 0 {
		return nil, nil, &domain.EmptyDatasetError{Source: "preprocess output"}
	}
	return out, summary, nil
}

func imputeColumn(f *dataset.Frame, colIdx int, name string) int {
	fill := ""
	if f.IsNumeric(name) {
		sum, count := 0.0, 0
		for r := range f.Rows {
			v := f.Cell(r, colIdx)
			if dataset.IsMissing(v) {
				continue
			}
			if x, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				sum += x
				count++
			}
		}
		if count == 0 {
			return 0
		}
		fill = strconv.FormatFloat(round4(sum/float64(count)), 'g', -1, 64)
	} else {
		counts := make(map[string]int)
		for r := range f.Rows {
			v := f.Cell(r, colIdx)
			if !dataset.IsMissing(v) {
				counts[v]++
			}
		}
		best := -1
		for v, c := range counts {
			if c > best || (c == best && v < fill) {
				best = c
				fill = v
			}
		}
		if fill == "" {
			return 0
		}
	}

	imputed := 0
	for r := range f.Rows {
		for len(f.Rows[r]) <= colIdx {
			f.Rows[r] = append(f.Rows[r], "")
		}
		if dataset.IsMissing(f.Rows[r][colIdx]) {
			f.Rows[r][colIdx] = fill
			imputed++
		}
	}
	return imputed
}
