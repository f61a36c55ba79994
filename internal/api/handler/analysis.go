package handler

import (
	"encoding/json"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/datapilot/datapilot/internal/repository/catalog"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// AnalysisHandler handles EDA and feature engineering endpoints
type AnalysisHandler struct {
	store   *fsstore.DatasetStore
	reports *fsstore.ReportStore
	catalog *catalog.Catalog
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(store *fsstore.DatasetStore, reports *fsstore.ReportStore, cat *catalog.Catalog) *AnalysisHandler {
	return &AnalysisHandler{store: store, reports: reports, catalog: cat}
}

type edaRequest struct {
	Stage               string `json:"stage"`
	TargetCol           string `json:"target_col"`
	ExcludeDateFeatures *bool  `json:"exclude_date_features"`
	CorrelationMethod   string `json:"correlation_method"`
	SampleSize          int    `json:"sample_size"`
	MaxNumericCols      int    `json:"max_numeric_cols"`
}

// RunEDA runs exploratory analysis over a stored snapshot and persists
// the report text for later insight prompts.
func (h *AnalysisHandler) RunEDA(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	req := edaRequest{SampleSize: 100000}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
	}

	stage := domain.StageProcessed
	if req.Stage != "" {
		stage = domain.Stage(req.Stage)
	}
	excludeDates := true
	if req.ExcludeDateFeatures != nil {
		excludeDates = *req.ExcludeDateFeatures
	}

	f, err := h.store.Load(datasetID, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := pipeline.RunEDA(r.Context(), f, pipeline.EDAOptions{
		TargetCol:           req.TargetCol,
		ExcludeDateFeatures: excludeDates,
		CorrelationMethod:   req.CorrelationMethod,
		SampleSize:          req.SampleSize,
		MaxNumericCols:      req.MaxNumericCols,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.reports.SaveEDAReport(datasetID, result.Report); err != nil {
		log.Error().Err(err).Str("dataset_id", datasetID).Msg("failed to persist EDA report")
	}

	response.OK(w, map[string]any{
		"dataset_id":    datasetID,
		"eda_report":    result.Report,
		"tables":        result.Tables,
		"quality_score": pipeline.AggregateQualityScore(result.Quality),
	})
}

type featuresRequest struct {
	Stage        string   `json:"stage"`
	LogTransform []string `json:"log_transform"`
	Standardize  []string `json:"standardize"`
	ExtractDate  []string `json:"extract_date"`
	DropOriginal bool     `json:"drop_original"`
}

// ApplyFeatures runs the selected transforms and stores the result as the
// dataset's feature-engineered snapshot.
func (h *AnalysisHandler) ApplyFeatures(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	var req featuresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if len(req.LogTransform)+len(req.Standardize)+len(req.ExtractDate) == 0 {
		response.BadRequest(w, "no transforms selected")
		return
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

	out, applied, err := pipeline.ApplyFeatures(f, pipeline.FeatureOptions{
		LogTransform: req.LogTransform,
		Standardize:  req.Standardize,
		ExtractDate:  req.ExtractDate,
		DropOriginal: req.DropOriginal,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snap, err := h.store.SaveAs(out, domain.StageFeatureEngineered, datasetID)
	if err != nil {
		response.InternalError(w, "failed to save feature-engineered dataset: "+err.Error())
		return
	}
	if h.catalog != nil {
		if err := h.catalog.Record(r.Context(), snap, ""); err != nil {
			log.Error().Err(err).Str("dataset_id", datasetID).Msg("failed to record snapshot in catalog")
		}
	}

	response.OK(w, map[string]any{
		"dataset_id":  snap.ID,
		"stage":       snap.Stage,
		"shape":       []int{snap.Rows, snap.Columns},
		"applied":     applied,
		"sample_data": sampleRecords(out, 10),
	})
}
