package handler

import (
	"encoding/json"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/rs/zerolog/log"
)

// InsightsHandler handles AI insight generation endpoints
type InsightsHandler struct {
	generator *insight.Generator
	reports   *fsstore.ReportStore
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(generator *insight.Generator, reports *fsstore.ReportStore) *InsightsHandler {
	return &InsightsHandler{generator: generator, reports: reports}
}

type insightsRequest struct {
	DatasetID       string `json:"dataset_id"`
	EDASummary      string `json:"eda_summary"`
	ModelSummary    string `json:"model_summary"`
	ModelChoice     string `json:"model_choice"`
	Provider        string `json:"provider"`
	ChunkThreshold  int    `json:"chunk_threshold"`
	MaxTokens       int    `json:"max_tokens"`
	ForceRegenerate bool   `json:"force_regenerate"`
	ClearCache      bool   `json:"clear_cache"`
	EnableCoT       bool   `json:"enable_cot"`
}

// Generate produces AI insights from explicit summaries or from the
// stored reports of a dataset.
func (h *InsightsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.ModelChoice == "" {
		req.ModelChoice = "mistral"
	}

	if req.EDASummary == "" && req.DatasetID != "" {
		report, err := h.reports.EDAReport(req.DatasetID)
		if err != nil {
			response.NotFound(w, err.Error())
			return
		}
		req.EDASummary = report
	}
	if req.EDASummary == "" {
		response.BadRequest(w, "eda_summary or dataset_id is required")
		return
	}

	if req.ModelSummary == "" && req.DatasetID != "" {
		summary, err := h.reports.TrainingSummary(req.DatasetID)
		if err != nil {
			// Insights can still be generated from the EDA report alone.
			log.Warn().Err(err).Str("dataset_id", req.DatasetID).Msg("no training summary for insights")
		} else {
			req.ModelSummary = summary
		}
	}

	out, err := h.generator.Generate(r.Context(), insight.Options{
		EDASummary:      req.EDASummary,
		ModelSummary:    req.ModelSummary,
		ModelChoice:     req.ModelChoice,
		Provider:        req.Provider,
		ChunkThreshold:  req.ChunkThreshold,
		MaxTokens:       req.MaxTokens,
		ForceRegenerate: req.ForceRegenerate,
		ClearCache:      req.ClearCache,
		EnableCoT:       req.EnableCoT,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, out)
}
