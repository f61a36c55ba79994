package pipeline

import (
	"fmt"
	"math"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
)

// ForecastOptions select the series and horizon for a forecast.
type ForecastOptions struct {
	ValueCol string
	DateCol  string
	Horizon  int
	Alpha    float64
	Beta     float64
}

// ForecastOutput holds the fitted values and the projected horizon.
type ForecastOutput struct {
	ValueCol string    `json:"value_col"`
	Horizon  int       `json:"horizon"`
	Fitted   []float64 `json:"fitted"`
	Forecast []float64 `json:"forecast"`
}

// Forecast projects a numeric series forward with Holt's linear-trend
// method (double exponential smoothing). Rows with a missing value are
// skipped; the series keeps its frame order, sorted by the date column
// when one is given.
func Forecast(f *dataset.Frame, opts ForecastOptions) (*ForecastOutput, error) {
	if f == nil || f.NumRows() == 0 {
		return nil, &domain.EmptyDatasetError{Source: "forecast input"}
	}
	if opts.Horizon <= 0 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", opts.Horizon)
	}

	series, err := extractSeries(f, opts.ValueCol, opts.DateCol)
	if err != nil {
		return nil, err
	}
	if len(series) < 3 {
		return nil, fmt.Errorf("need at least 3 observations to forecast, got %d", len(series))
	}

	alpha := opts.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.5
	}
	beta := opts.Beta
	if beta <= 0 || beta >= 1 {
		beta = 0.3
	}

	level := series[0]
	trend := series[1] - series[0]

	// One-step-ahead fits start at the second observation; the first two
	// values seed the level and trend.
	fitted := make([]float64, 0, len(series)-1)
	for _, v := range series[1:] {
		forecast := level + trend
		fitted = append(fitted, round4(forecast))

		prevLevel := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}

	horizon := make([]float64, opts.Horizon)
	for h := 1; h <= opts.Horizon; h++ {
		horizon[h-1] = round4(level + float64(h)*trend)
	}

	return &ForecastOutput{
		ValueCol: opts.ValueCol,
		Horizon:  opts.Horizon,
		Fitted:   fitted,
		Forecast: horizon,
	}, nil
}

// extractSeries pulls the non-missing values of the target column, sorted
// chronologically when a parsable date column is named.
func extractSeries(f *dataset.Frame, valueCol, dateCol string) ([]float64, error) {
	values, ok := f.Float64Column(valueCol)
	if !ok {
		return nil, fmt.Errorf("column %q not found", valueCol)
	}

	order := make([]int, 0, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			order = append(order, i)
		}
	}

	if dateCol != "" {
		times, ok := f.ParseDateColumn(dateCol)
		if !ok {
			return nil, fmt.Errorf("column %q not found", dateCol)
		}
		// Stable insertion sort by timestamp; undated rows stay in place.
		for i := 1; i < len(order); i++ {
			for j := i; j > 0; j-- {
				a, b := times[order[j-1]], times[order[j]]
				if a.IsZero() || b.IsZero() || !b.Before(a) {
					break
				}
				order[j-1], order[j] = order[j], order[j-1]
			}
		}
	}

	series := make([]float64, len(order))
	for i, idx := range order {
		series[i] = values[idx]
	}
	return series, nil
}
