package domain

import (
	"fmt"
	"strings"
)

// InvalidModelError indicates a model choice outside the allow-list.
type InvalidModelError struct {
	Model   string
	Allowed []string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("invalid model '%s', choose from [%s]", e.Model, strings.Join(e.Allowed, ", "))
}

// ModelUnavailableError indicates the backend does not have the model installed.
type ModelUnavailableError struct {
	Model    string
	Provider string
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("selected model '%s' is not available on provider '%s'", e.Model, e.Provider)
}

// GenerationError indicates the backend call failed after exhausting fallback.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for model '%s': %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// UnexpectedResponseError indicates the backend returned an unrecognized shape.
type UnexpectedResponseError struct {
	Detail string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response format: %s", e.Detail)
}

// DatasetNotFoundError indicates no snapshot exists for a dataset id.
type DatasetNotFoundError struct {
	DatasetID string
	Stage     Stage
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("no snapshot found for dataset_id=%s in stage '%s'", e.DatasetID, e.Stage)
}

// ModelNotFoundError indicates a model artifact file is missing.
type ModelNotFoundError struct {
	ModelFile string
	Dir       string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model file %s not found in '%s'", e.ModelFile, e.Dir)
}

// ColumnMismatchError indicates evaluation data is missing columns the
// model was trained on. Evaluation never imputes missing required columns.
type ColumnMismatchError struct {
	Missing []string
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("missing expected columns from training: [%s]", strings.Join(e.Missing, ", "))
}

// EDAError wraps a failure inside the EDA stage.
type EDAError struct {
	Err error
}

func (e *EDAError) Error() string { return fmt.Sprintf("eda failed: %v", e.Err) }

func (e *EDAError) Unwrap() error { return e.Err }

// TrainingError wraps a failure inside the model training stage.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string { return fmt.Sprintf("model training failed: %v", e.Err) }

func (e *TrainingError) Unwrap() error { return e.Err }

// EmptyDatasetError indicates a dataset loaded with no usable rows.
type EmptyDatasetError struct {
	Source string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("dataset '%s' is empty or failed to load", e.Source)
}
