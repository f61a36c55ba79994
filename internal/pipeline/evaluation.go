package pipeline

import (
	"fmt"
	"math"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/rs/zerolog/log"
)

// EvaluateOptions control one evaluation run over a stored artifact.
type EvaluateOptions struct {
	ModelFile string
	SessionID string
}

// EvaluateOutput carries the aligned predictions plus any metrics that
// could be computed when the evaluation data includes the target column.
type EvaluateOutput struct {
	ModelName      string             `json:"model_name"`
	Predictions    []float64          `json:"predictions"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	DroppedColumns []string           `json:"dropped_columns,omitempty"`
	RowsEvaluated  int                `json:"rows_evaluated"`
	RowsSkipped    int                `json:"rows_skipped"`
}

// Evaluator loads stored artifacts and runs them over fresh data.
type Evaluator struct {
	models *fsstore.ModelRepository
}

func NewEvaluator(models *fsstore.ModelRepository) *Evaluator {
	return &Evaluator{models: models}
}

// Evaluate aligns the frame's columns to the artifact's training columns,
// predicts, and computes metrics when the target column is present. Extra
// columns are dropped with a warning; missing training columns fail with
// ColumnMismatchError.
func (e *Evaluator) Evaluate(f *dataset.Frame, opts EvaluateOptions) (*EvaluateOutput, error) {
	if f == nil || f.NumRows() == 0 {
		return nil, &domain.EmptyDatasetError{Source: "evaluation input"}
	}

	artifact, err := e.models.Load(opts.ModelFile, opts.SessionID)
	if err != nil {
		return nil, err
	}

	estimator, err := DecodeEstimator(artifact.EstimatorKind, artifact.Estimator)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, col := range artifact.TrainingColumns {
		if !f.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ColumnMismatchError{Missing: missing}
	}

	required := map[string]bool{artifact.TargetColumn: true}
	for _, col := range artifact.TrainingColumns {
		required[col] = true
	}
	var dropped []string
	for _, col := range f.Columns {
		if !required[col] {
			dropped = append(dropped, col)
		}
	}
	if len(dropped) > 0 {
		log.Warn().Strs("columns", dropped).Msg("dropping columns not seen during training")
	}

	// Reorder to exactly the training column order before predicting.
	matrix, kept, err := f.Matrix(artifact.TrainingColumns)
	if err != nil {
		return nil, err
	}
	if len(matrix) == 0 {
		return nil, fmt.Errorf("no usable rows after dropping missing values")
	}

	preds := estimator.Predict(matrix)
	output := &EvaluateOutput{
		ModelName:      artifact.ModelName,
		Predictions:    roundAll(preds),
		DroppedColumns: dropped,
		RowsEvaluated:  len(matrix),
		RowsSkipped:    f.NumRows() - len(matrix),
	}

	if f.HasColumn(artifact.TargetColumn) {
		target, _ := f.Float64Column(artifact.TargetColumn)
		var yTrue, yPred []float64
		for i, rowIdx := range kept {
			if math.IsNaN(target[rowIdx]) {
				continue
			}
			yTrue = append(yTrue, target[rowIdx])
			yPred = append(yPred, preds[i])
		}
		if len(yTrue) > 0 {
			output.Metrics = map[string]float64{
				"RMSE": round4(rmse(yTrue, yPred)),
				"R2":   round4(r2Score(yTrue, yPred)),
				"MAE":  round4(mae(yTrue, yPred)),
			}
		}
	}
	return output, nil
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = round4(v)
	}
	return out
}
