package handler

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/pipeline"
	"github.com/datapilot/datapilot/internal/repository/catalog"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DatasetHandler handles dataset snapshot endpoints
type DatasetHandler struct {
	store       *fsstore.DatasetStore
	catalog     *catalog.Catalog
	maxUploadMB int64
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(store *fsstore.DatasetStore, cat *catalog.Catalog, maxUploadMB int64) *DatasetHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &DatasetHandler{store: store, catalog: cat, maxUploadMB: maxUploadMB}
}

// record writes catalog metadata. The catalog is best-effort lineage; a
// failed write never fails the request.
func (h *DatasetHandler) record(r *http.Request, snap *domain.Snapshot, parentID string) {
	if h.catalog == nil {
		return
	}
	if err := h.catalog.Record(r.Context(), snap, parentID); err != nil {
		log.Error().Err(err).Str("dataset_id", snap.ID).Msg("failed to record snapshot in catalog")
	}
}

// Upload stores an uploaded CSV as a new raw snapshot.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(h.maxUploadMB << 20)

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
		response.BadRequest(w, "invalid file type. Allowed: .csv")
		return
	}

	f, err := dataset.Read(file, header.Filename)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	snap, err := h.store.Save(f, domain.StageRaw)
	if err != nil {
		response.InternalError(w, "failed to save dataset: "+err.Error())
		return
	}
	h.record(r, snap, "")

	response.Created(w, map[string]any{
		"dataset_id":    snap.ID,
		"stage":         snap.Stage,
		"shape":         []int{snap.Rows, snap.Columns},
		"original_name": header.Filename,
		"sample_data":   sampleRecords(f, 10),
	})
}

type preprocessRequest struct {
	Stage          string `json:"stage"`
	DropDuplicates bool   `json:"drop_duplicates"`
	FillMissing    bool   `json:"fill_missing"`
}

// Preprocess cleans a stored snapshot and writes the result as the
// dataset's processed snapshot.
func (h *DatasetHandler) Preprocess(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	req := preprocessRequest{DropDuplicates: true, FillMissing: true}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
	}

	stage := domain.StageRaw
	if req.Stage != "" {
		stage = domain.Stage(req.Stage)
	}

	f, err := h.store.Load(datasetID, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, summary, err := pipeline.Preprocess(f, pipeline.PreprocessOptions{
		DropDuplicates: req.DropDuplicates,
		FillMissing:    req.FillMissing,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snap, err := h.store.SaveAs(out, domain.StageProcessed, datasetID)
	if err != nil {
		response.InternalError(w, "failed to save processed dataset: "+err.Error())
		return
	}
	h.record(r, snap, "")

	response.OK(w, map[string]any{
		"dataset_id":  snap.ID,
		"stage":       snap.Stage,
		"shape":       []int{snap.Rows, snap.Columns},
		"summary":     summary,
		"sample_data": sampleRecords(out, 10),
	})
}

// Columns lists a snapshot's columns with their inferred kinds.
func (h *DatasetHandler) Columns(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")
	stage := stageParam(r, domain.StageProcessed)

	f, err := h.store.Load(datasetID, stage)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	columns := make([]map[string]any, 0, f.NumCols())
	for _, c := range f.Columns {
		kind := "categorical"
		if f.IsDateColumn(c) {
			kind = "date"
		} else if f.IsNumeric(c) {
			kind = "numeric"
		}
		columns = append(columns, map[string]any{"name": c, "kind": kind})
	}

	response.OK(w, map[string]any{
		"dataset_id": datasetID,
		"columns":    columns,
	})
}

// List returns the most recently recorded snapshots.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		response.OK(w, map[string]any{"snapshots": []domain.Snapshot{}})
		return
	}

	snaps, err := h.catalog.List(r.Context(), 50)
	if err != nil {
		response.InternalError(w, "failed to list snapshots: "+err.Error())
		return
	}
	response.OK(w, map[string]any{"snapshots": snaps})
}

// Lineage returns the recorded stage history of a dataset.
func (h *DatasetHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")
	if h.catalog == nil {
		response.OK(w, map[string]any{"dataset_id": datasetID, "lineage": []domain.Snapshot{}})
		return
	}

	chain, err := h.catalog.Lineage(r.Context(), datasetID)
	if err != nil {
		response.InternalError(w, "failed to load lineage: "+err.Error())
		return
	}
	response.OK(w, map[string]any{
		"dataset_id": datasetID,
		"lineage":    chain,
	})
}

// sampleRecords converts the first n rows to JSON-friendly records.
func sampleRecords(f *dataset.Frame, n int) []map[string]string {
	if n > f.NumRows() {
		n = f.NumRows()
	}
	records := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]string, f.NumCols())
		for j, c := range f.Columns {
			rec[c] = f.Cell(i, j)
		}
		records = append(records, rec)
	}
	return records
}

// stageParam reads the stage query parameter with a default.
func stageParam(r *http.Request, fallback domain.Stage) domain.Stage {
	if s := r.URL.Query().Get("stage"); s != "" {
		return domain.Stage(s)
	}
	return fallback
}
