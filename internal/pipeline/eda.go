package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
)

// EDAOptions control the exploratory analysis pass.
type EDAOptions struct {
	TargetCol           string
	Interactive         bool
	ExcludeDateFeatures bool
	CorrelationMethod   string
	SampleSize          int
	MaxNumericCols      int
}

// EDAResult carries the report text plus the tables behind it, record-style
// for JSON serialization.
type EDAResult struct {
	Report  string                      `json:"eda_report"`
	Tables  map[string][]map[string]any `json:"tables"`
	Quality []QualityProfile            `json:"quality"`
}

// RunEDA produces a textual report, summary tables and a quality profile
// for a dataset. Analysis is bounded by SampleSize rows and MaxNumericCols
// numeric columns.
func RunEDA(ctx context.Context, f *dataset.Frame, opts EDAOptions) (*EDAResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.EDAError{Err: err}
	}
	if f == nil || f.NumRows() == 0 || f.NumCols() == 0 {
		return nil, &domain.EDAError{Err: &domain.EmptyDatasetError{Source: "eda input"}}
	}

	if opts.CorrelationMethod == "" {
		opts.CorrelationMethod = "pearson"
	}
	if opts.CorrelationMethod != "pearson" {
		return nil, &domain.EDAError{Err: fmt.Errorf("unsupported correlation method: %s", opts.CorrelationMethod)}
	}
	if opts.MaxNumericCols <= 0 {
		opts.MaxNumericCols = 8
	}

	sampled := f
	if opts.SampleSize > 0 {
		sampled = f.Sample(opts.SampleSize, 42)
	}

	numericCols := sampled.NumericColumns()
	if opts.ExcludeDateFeatures {
		var kept []string
		for _, c := range numericCols {
			if !sampled.IsDateColumn(c) {
				kept = append(kept, c)
			}
		}
		numericCols = kept
	}
	if len(numericCols) > opts.MaxNumericCols {
		numericCols = numericCols[:opts.MaxNumericCols]
	}

	quality := ProfileColumns(sampled)

	summaryTable := make([]map[string]any, 0, len(numericCols))
	stats := make(map[string]columnStats, len(numericCols))
	for _, col := range numericCols {
		values, _ := sampled.Float64Column(col)
		cs := summarize(values)
		stats[col] = cs
		summaryTable = append(summaryTable, map[string]any{
			"column": col,
			"count":  cs.count,
			"mean":   round4(cs.mean),
			"std":    round4(cs.std),
			"min":    round4(cs.min),
			"max":    round4(cs.max),
		})
	}

	missingTable := make([]map[string]any, 0, len(quality))
	for _, p := range quality {
		missingTable = append(missingTable, map[string]any{
			"column":    p.ColumnName,
			"null_rate": round4(p.NullRate),
			"distinct":  p.DistinctCount,
			"quality":   round4(p.QualityScore),
		})
	}

	corrTable, corrPairs := correlationTable(sampled, numericCols)

	report := buildReport(f, sampled, numericCols, stats, quality, corrPairs, opts)

	return &EDAResult{
		Report: report,
		Tables: map[string][]map[string]any{
			"summary_statistics": summaryTable,
			"missing_values":     missingTable,
			"correlations":       corrTable,
		},
		Quality: quality,
	}, nil
}

type columnStats struct {
	count int
	mean  float64
	std   float64
	min   float64
	max   float64
}

func summarize(values []float64) columnStats {
	cs := columnStats{min: math.Inf(1), max: math.Inf(-1)}
	sum := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		cs.count++
		sum += v
		if v < cs.min {
			cs.min = v
		}
		if v > cs.max {
			cs.max = v
		}
	}
	if cs.count == 0 {
		return columnStats{}
	}
	cs.mean = sum / float64(cs.count)

	variance := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := v - cs.mean
		variance += d * d
	}
	if cs.count > 1 {
		cs.std = math.Sqrt(variance / float64(cs.count-1))
	}
	return cs
}

// pearson computes the correlation of two columns over rows where both are
// present.
func pearson(a, b []float64) float64 {
	n := 0
	var sumA, sumB float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		n++
		sumA += a[i]
		sumB += b[i]
	}
	if n < 2 {
		return math.NaN()
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varA*varB)
}

type corrPair struct {
	a, b string
	r    float64
}

func correlationTable(f *dataset.Frame, cols []string) ([]map[string]any, []corrPair) {
	columns := make(map[string][]float64, len(cols))
	for _, c := range cols {
		v, _ := f.Float64Column(c)
		columns[c] = v
	}

	var table []map[string]any
	var pairs []corrPair
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			r := pearson(columns[cols[i]], columns[cols[j]])
			if math.IsNaN(r) {
				continue
			}
			table = append(table, map[string]any{
				"column_a":    cols[i],
				"column_b":    cols[j],
				"correlation": round4(r),
			})
			pairs = append(pairs, corrPair{a: cols[i], b: cols[j], r: r})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].r) > math.Abs(pairs[j].r)
	})
	return table, pairs
}

func buildReport(full, sampled *dataset.Frame, numericCols []string, stats map[string]columnStats, quality []QualityProfile, pairs []corrPair, opts EDAOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Exploratory Data Analysis Report\n")
	fmt.Fprintf(&b, "================================\n\n")
	fmt.Fprintf(&b, "Dataset shape: %d rows x %d columns\n", full.NumRows(), full.NumCols())
	if sampled.NumRows() < full.NumRows() {
		fmt.Fprintf(&b, "Analysis performed on a sample of %d rows.\n", sampled.NumRows())
	}
	fmt.Fprintf(&b, "Numeric columns analyzed: %s\n", strings.Join(numericCols, ", "))
	if opts.ExcludeDateFeatures {
		fmt.Fprintf(&b, "Date-like features were excluded from numeric analysis.\n")
	}
	b.WriteString("\n")

	b.WriteString("Summary statistics:\n")
	for _, col := range numericCols {
		cs := stats[col]
		fmt.Fprintf(&b, "  %s: count=%d mean=%.4f std=%.4f min=%.4f max=%.4f\n",
			col, cs.count, cs.mean, cs.std, cs.min, cs.max)
	}
	b.WriteString("\n")

	b.WriteString("Missing values:\n")
	for _, p := range quality {
		if p.NullRate > 0 {
			fmt.Fprintf(&b, "  %s: %.2f%% missing\n", p.ColumnName, p.NullRate*100)
		}
	}
	fmt.Fprintf(&b, "  Overall data quality score: %.4f\n\n", AggregateQualityScore(quality))

	if len(pairs) > 0 {
		fmt.Fprintf(&b, "Top correlations (%s):\n", opts.CorrelationMethod)
		for i, p := range pairs {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  %s ~ %s: %.4f\n", p.a, p.b, p.r)
		}
	}

	if opts.TargetCol != "" && full.HasColumn(opts.TargetCol) {
		fmt.Fprintf(&b, "\nTarget column: %s\n", opts.TargetCol)
	}

	return b.String()
}

func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
