package domain

import "encoding/json"

// Artifact is a serialized trained estimator plus the ordered list of
// column names it was trained on. Any evaluation against new data must
// reindex input columns to TrainingColumns and fail if one is absent.
type Artifact struct {
	ModelName       string          `json:"model_name"`
	TaskType        string          `json:"task_type"`
	TargetColumn    string          `json:"target_column"`
	TrainingColumns []string        `json:"training_columns"`
	EstimatorKind   string          `json:"estimator_kind"`
	Estimator       json.RawMessage `json:"estimator"`
	TrainedAt       int64           `json:"trained_at"`
}
