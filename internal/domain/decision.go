package domain

// ModelResult is one row of a training run: a model name plus the metric
// values computed for it.
type ModelResult struct {
	ModelName    string             `json:"model_name"`
	Metrics      map[string]float64 `json:"metrics"`
	ArtifactFile string             `json:"artifact_file,omitempty"`
	TrainSeconds float64            `json:"train_seconds,omitempty"`
}

// R2 returns the R2 metric for the result, or 0 if absent.
func (r ModelResult) R2() float64 {
	return r.Metrics["R2"]
}

// Decision is the ephemeral record produced by one invocation of the
// orchestrator decision loop. Successful terminal states always carry
// NextAction; failed runs carry Error and Details instead.
type Decision struct {
	EDAReport    string        `json:"eda_report,omitempty"`
	ModelResults []ModelResult `json:"model_results,omitempty"`
	NextAction   string        `json:"next_action,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	AIInsights   string        `json:"ai_insights,omitempty"`
	Error        string        `json:"error,omitempty"`
	Details      string        `json:"details,omitempty"`
}

// Failed reports whether the decision is a failure record.
func (d Decision) Failed() bool { return d.Error != "" }
