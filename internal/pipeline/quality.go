package pipeline

import (
	"math"

	"github.com/datapilot/datapilot/internal/dataset"
)

// QualityProfile holds data-quality metrics for one column.
type QualityProfile struct {
	ColumnName      string  `json:"column_name"`
	TotalRows       int     `json:"total_rows"`
	NonNullRows     int     `json:"non_null_rows"`
	NullRate        float64 `json:"null_rate"`
	DistinctCount   int     `json:"distinct_count"`
	UniquenessRatio float64 `json:"uniqueness_ratio"`
	Entropy         float64 `json:"entropy"`
	QualityScore    float64 `json:"quality_score"`
}

// ProfileColumns computes per-column quality metrics for a frame. The
// aggregate of these scores is a candidate replacement for the injected
// orchestrator data-quality constant.
func ProfileColumns(f *dataset.Frame) []QualityProfile {
	profiles := make([]QualityProfile, len(f.Columns))
	for i, name := range f.Columns {
		profiles[i] = profileColumn(f, name, i)
	}
	return profiles
}

func profileColumn(f *dataset.Frame, name string, colIdx int) QualityProfile {
	profile := QualityProfile{
		ColumnName: name,
		TotalRows:  f.NumRows(),
	}

	uniqueValues := make(map[string]int)
	nonNull := 0
	for r := range f.Rows {
		v := f.Cell(r, colIdx)
		if dataset.IsMissing(v) {
			continue
		}
		nonNull++
		uniqueValues[v]++
	}

	profile.NonNullRows = nonNull
	profile.DistinctCount = len(uniqueValues)

	if profile.TotalRows > 0 {
		profile.NullRate = float64(profile.TotalRows-nonNull) / float64(profile.TotalRows)
	}
	if nonNull > 0 {
		profile.UniquenessRatio = float64(profile.DistinctCount) / float64(nonNull)
	}
	profile.Entropy = entropy(uniqueValues, nonNull)
	profile.QualityScore = qualityScore(profile)
	return profile
}

func entropy(valueCounts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	e := 0.0
	for _, count := range valueCounts {
		if count > 0 {
			p := float64(count) / float64(total)
			e -= p * math.Log2(p)
		}
	}
	return e
}

// qualityScore blends completeness with diversity: mostly-null or
// single-valued columns score low.
func qualityScore(p QualityProfile) float64 {
	completeness := 1.0 - p.NullRate

	diversity := 1.0
	if p.DistinctCount <= 1 && p.NonNullRows > 1 {
		diversity = 0.0
	}

	score := 0.8*completeness + 0.2*diversity
	return math.Max(0, math.Min(1, score))
}

// AggregateQualityScore averages the per-column scores.
func AggregateQualityScore(profiles []QualityProfile) float64 {
	if len(profiles) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range profiles {
		sum += p.QualityScore
	}
	return sum / float64(len(profiles))
}
