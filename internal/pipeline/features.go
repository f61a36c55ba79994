package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
)

// FeatureOptions select which transforms to apply.
type FeatureOptions struct {
	LogTransform []string
	Standardize  []string
	ExtractDate  []string
	DropOriginal bool
}

// ApplyFeatures runs the selected transforms and returns a new frame plus
// the list of transforms applied, in order.
func ApplyFeatures(f *dataset.Frame, opts FeatureOptions) (*dataset.Frame, []string, error) {
	if f == nil || f.NumRows() == 0 {
		return nil, nil, &domain.EmptyDatasetError{Source: "feature engineering input"}
	}

	out := f.Clone()
	var applied []string

	for _, col := range opts.LogTransform {
		if err := logTransform(out, col); err != nil {
			return nil, nil, err
		}
		applied = append(applied, fmt.Sprintf("log(%s)", col))
	}

	for _, col := range opts.Standardize {
		if err := standardize(out, col); err != nil {
			return nil, nil, err
		}
		applied = append(applied, fmt.Sprintf("standardize(%s)", col))
	}

	var dropAfter []string
	for _, col := range opts.ExtractDate {
		if err := extractDateParts(out, col); err != nil {
			return nil, nil, err
		}
		applied = append(applied, fmt.Sprintf("date_parts(%s)", col))
		if opts.DropOriginal {
			dropAfter = append(dropAfter, col)
		}
	}
	if len(dropAfter) > 0 {
		out = out.Drop(dropAfter)
	}

	return out, applied, nil
}

// logTransform replaces a numeric column with log1p of its values.
// Negative values fail rather than silently producing NaN.
func logTransform(f *dataset.Frame, col string) error {
	idx := f.ColumnIndex(col)
	if idx < 0 {
		return fmt.Errorf("column %q not found", col)
	}
	for r := range f.Rows {
		v := f.Cell(r, idx)
		if dataset.IsMissing(v) {
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("column %q contains non-numeric value %q", col, v)
		}
		if x < 0 {
			return fmt.Errorf("column %q contains negative value %g, cannot log-transform", col, x)
		}
		f.Rows[r][idx] = strconv.FormatFloat(math.Log1p(x), 'g', -1, 64)
	}
	return nil
}

func standardize(f *dataset.Frame, col string) error {
	values, ok := f.Float64Column(col)
	if !ok {
		return fmt.Errorf("column %q not found", col)
	}
	cs := summarize(values)
	if cs.count == 0 {
		return fmt.Errorf("column %q has no numeric values", col)
	}
	std := cs.std
	if std == 0 {
		std = 1
	}

	idx := f.ColumnIndex(col)
	for r := range f.Rows {
		if math.IsNaN(values[r]) {
			continue
		}
		z := (values[r] - cs.mean) / std
		f.Rows[r][idx] = strconv.FormatFloat(round4(z), 'g', -1, 64)
	}
	return nil
}

// extractDateParts appends {col}_year, {col}_month and {col}_day columns.
func extractDateParts(f *dataset.Frame, col string) error {
	times, ok := f.ParseDateColumn(col)
	if !ok {
		return fmt.Errorf("column %q not found", col)
	}

	f.Columns = append(f.Columns, col+"_year", col+"_month", col+"_day")
	for r := range f.Rows {
		t := times[r]
		if t.IsZero() {
			f.Rows[r] = append(f.Rows[r], "", "", "")
			continue
		}
		f.Rows[r] = append(f.Rows[r],
			strconv.Itoa(t.Year()),
			strconv.Itoa(int(t.Month())),
			strconv.Itoa(t.Day()),
		)
	}
	return nil
}
