package pipeline

import (
	"encoding/json"
	"fmt"
)

// Estimator is a trainable regression model.
type Estimator interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

const (
	kindLinearRegression = "linear_regression"
	kindRandomForest     = "random_forest"
)

// newEstimator maps a model name from the API onto a concrete estimator.
func newEstimator(modelName string, seed int64) (Estimator, string, error) {
	switch modelName {
	case "LinearRegression":
		return &LinearRegression{}, kindLinearRegression, nil
	case "RandomForestRegressor":
		return NewRandomForestRegressor(50, 10, seed), kindRandomForest, nil
	}
	return nil, "", fmt.Errorf("unknown model: %s", modelName)
}

// EncodeEstimator serializes a fitted estimator for artifact storage.
func EncodeEstimator(e Estimator) (string, json.RawMessage, error) {
	var kind string
	switch e.(type) {
	case *LinearRegression:
		kind = kindLinearRegression
	case *RandomForestRegressor:
		kind = kindRandomForest
	default:
		return "", nil, fmt.Errorf("unsupported estimator type %T", e)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal estimator: %w", err)
	}
	return kind, raw, nil
}

// DecodeEstimator reverses EncodeEstimator.
func DecodeEstimator(kind string, raw json.RawMessage) (Estimator, error) {
	var e Estimator
	switch kind {
	case kindLinearRegression:
		e = &LinearRegression{}
	case kindRandomForest:
		e = &RandomForestRegressor{}
	default:
		return nil, fmt.Errorf("unknown estimator kind: %s", kind)
	}

	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimator: %w", err)
	}
	return e, nil
}
