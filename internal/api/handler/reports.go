package handler

import (
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/go-chi/chi/v5"
)

// ReportsHandler serves stored analysis reports
type ReportsHandler struct {
	reports *fsstore.ReportStore
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(reports *fsstore.ReportStore) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// EDAReport returns the stored EDA report for a dataset.
func (h *ReportsHandler) EDAReport(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	report, err := h.reports.EDAReport(datasetID)
	if err != nil {
		response.NotFound(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"dataset_id": datasetID,
		"eda_report": report,
	})
}

// TrainingReport returns the stored training results summary for a
// dataset.
func (h *ReportsHandler) TrainingReport(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	summary, err := h.reports.TrainingSummary(datasetID)
	if err != nil {
		response.NotFound(w, err.Error())
		return
	}

	response.OK(w, map[string]any{
		"dataset_id":       datasetID,
		"training_summary": summary,
	})
}
