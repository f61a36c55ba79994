package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datapilot/datapilot/internal/api/handler"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func dataOf(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "expected data to be a map")
	return data
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "ok", dataOf(t, resp)["status"])
}

func multipartCSV(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newDatasetRouter(t *testing.T) (*chi.Mux, *handler.DatasetHandler) {
	t.Helper()
	store, err := fsstore.NewDatasetStore(t.TempDir())
	require.NoError(t, err)

	h := handler.NewDatasetHandler(store, nil, 10)
	r := chi.NewRouter()
	r.Post("/datasets/upload", h.Upload)
	r.Get("/datasets/{datasetID}/columns", h.Columns)
	r.Post("/datasets/{datasetID}/preprocess", h.Preprocess)
	return r, h
}

func TestUploadAndPreprocessFlow(t *testing.T) {
	router, _ := newDatasetRouter(t)

	body, contentType := multipartCSV(t, "file", "sales.csv",
		"region,amount\nnorth,10\nnorth,10\nsouth,\n")
	req := httptest.NewRequest(http.MethodPost, "/datasets/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataOf(t, decodeResponse(t, rec))
	datasetID, ok := data["dataset_id"].(string)
	require.True(t, ok)
	assert.Equal(t, "raw", data["stage"])
	assert.Equal(t, "sales.csv", data["original_name"])

	// Preprocess with defaults dedupes and imputes, keeping the same id.
	req = httptest.NewRequest(http.MethodPost, "/datasets/"+datasetID+"/preprocess", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data = dataOf(t, decodeResponse(t, rec))
	assert.Equal(t, datasetID, data["dataset_id"])
	assert.Equal(t, "processed", data["stage"])

	// Columns resolve against the processed snapshot.
	req = httptest.NewRequest(http.MethodGet, "/datasets/"+datasetID+"/columns", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data = dataOf(t, decodeResponse(t, rec))
	cols, ok := data["columns"].([]any)
	require.True(t, ok)
	assert.Len(t, cols, 2)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	router, _ := newDatasetRouter(t)

	body, contentType := multipartCSV(t, "file", "data.xlsx", "not,a,csv")
	req := httptest.NewRequest(http.MethodPost, "/datasets/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadWithoutFile(t *testing.T) {
	router, _ := newDatasetRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/datasets/upload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestColumnsUnknownDataset(t *testing.T) {
	router, _ := newDatasetRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/datasets/no-such-id/columns", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestartAnalysisSwapsSession(t *testing.T) {
	models, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)
	session := handler.NewSession("initial-session")
	h := handler.NewSessionHandler(models, session)

	req := httptest.NewRequest(http.MethodPost, "/restart-analysis", nil)
	rec := httptest.NewRecorder()
	h.RestartAnalysis(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataOf(t, decodeResponse(t, rec))
	assert.Equal(t, "success", data["status"])
	assert.NotEqual(t, "initial-session", data["session_id"])
	assert.Equal(t, data["session_id"], session.Current())
}

func TestFlushInsightCache(t *testing.T) {
	cache, err := fsstore.NewInsightCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), "k1", "v1"))
	require.NoError(t, cache.Set(context.Background(), "k2", "v2"))

	req := httptest.NewRequest(http.MethodPost, "/cache/flush", nil)
	rec := httptest.NewRecorder()
	handler.FlushInsightCache(cache)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataOf(t, decodeResponse(t, rec))
	assert.Equal(t, float64(2), data["keys_deleted"])
}
