package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TrainingHandler handles model training, evaluation and forecasting
type TrainingHandler struct {
	store     *fsstore.DatasetStore
	reports   *fsstore.ReportStore
	models    *fsstore.ModelRepository
	trainer   *pipeline.Trainer
	evaluator *pipeline.Evaluator
	session   *Session
}

// NewTrainingHandler creates a new training handler
func NewTrainingHandler(store *fsstore.DatasetStore, reports *fsstore.ReportStore, models *fsstore.ModelRepository, session *Session) *TrainingHandler {
	return &TrainingHandler{
		store:     store,
		reports:   reports,
		models:    models,
		trainer:   pipeline.NewTrainer(models),
		evaluator: pipeline.NewEvaluator(models),
		session:   session,
	}
}

type trainRequest struct {
	Stage                 string   `json:"stage"`
	TargetCol             string   `json:"target_col" validate:"required"`
	TaskType              string   `json:"task_type" validate:"omitempty,oneof=regression"`
	Models                []string `json:"models"`
	Metrics               []string `json:"metrics"`
	Features              []string `json:"features"`
	EnableCrossValidation bool     `json:"enable_cross_validation"`
	CVFolds               int      `json:"cv_folds" validate:"omitempty,min=2,max=10"`
	SampleData            bool     `json:"sample_data"`
	SampleSize            int      `json:"sample_size" validate:"omitempty,min=1"`
}

// Train fits the selected models over a stored snapshot and persists the
// metric table for later insight prompts.
func (h *TrainingHandler) Train(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !validateRequest(w, req) {
		return
	}
	if len(req.Models) == 0 {
		req.Models = []string{"LinearRegression", "RandomForestRegressor"}
	}

	stage := domain.StageProcessed
	if req.Stage != "" {
		stage = domain.Stage(req.Stage)
	}

	f, err := h.store.Load(datasetID, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := h.trainer.Train(r.Context(), f, pipeline.TrainOptions{
		TargetCol:             req.TargetCol,
		TaskType:              req.TaskType,
		SelectedModels:        req.Models,
		SelectedMetrics:       req.Metrics,
		SelectedFeatures:      req.Features,
		EnableCrossValidation: req.EnableCrossValidation,
		CVFolds:               req.CVFolds,
		SampleData:            req.SampleData,
		SampleSize:            req.SampleSize,
		SessionID:             h.session.Current(),
		Seed:                  time.Now().UnixNano(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.reports.SaveTrainingResults(datasetID, out.Results); err != nil {
		log.Error().Err(err).Str("dataset_id", datasetID).Msg("failed to persist training results")
	}

	response.OK(w, map[string]any{
		"dataset_id":     datasetID,
		"session_id":     h.session.Current(),
		"results":        out.Results,
		"trained_models": out.TrainedModels,
	})
}

// ListModels lists the artifact files in the current session.
func (h *TrainingHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	files, err := h.models.List(h.session.Current())
	if err != nil {
		response.InternalError(w, "failed to list models: "+err.Error())
		return
	}

	response.OK(w, map[string]any{
		"session_id": h.session.Current(),
		"models":     files,
	})
}

type evaluateRequest struct {
	DatasetID string `json:"dataset_id" validate:"required"`
	Stage     string `json:"stage"`
}

// Evaluate runs a stored artifact over another snapshot, aligning columns
// to the artifact's training list.
func (h *TrainingHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	modelFile := chi.URLParam(r, "modelFile")

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !validateRequest(w, req) {
		return
	}

	stage := domain.StageProcessed
	if req.Stage != "" {
		stage = domain.Stage(req.Stage)
	}

	f, err := h.store.Load(req.DatasetID, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := h.evaluator.Evaluate(f, pipeline.EvaluateOptions{
		ModelFile: modelFile,
		SessionID: h.session.Current(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, out)
}

type forecastRequest struct {
	Stage    string  `json:"stage"`
	ValueCol string  `json:"value_col" validate:"required"`
	DateCol  string  `json:"date_col"`
	Horizon  int     `json:"horizon" validate:"omitempty,min=1,max=1000"`
	Alpha    float64 `json:"alpha" validate:"omitempty,gt=0,lte=1"`
	Beta     float64 `json:"beta" validate:"omitempty,gt=0,lte=1"`
}

// Forecast projects a numeric series forward from a stored snapshot.
func (h *TrainingHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !validateRequest(w, req) {
		return
	}
	if req.Horizon <= 0 {
		req.Horizon = 10
	}

	stage := domain.StageProcessed
	if req.Stage != "" {
		stage = domain.Stage(req.Stage)
	}

	f, err := h.store.Load(datasetID, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := pipeline.Forecast(f, pipeline.ForecastOptions{
		ValueCol: req.ValueCol,
		DateCol:  req.DateCol,
		Horizon:  req.Horizon,
		Alpha:    req.Alpha,
		Beta:     req.Beta,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, out)
}
