package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/retrieval"
)

// RAGHandler handles retrieval-augmented query endpoints
type RAGHandler struct {
	service   *retrieval.Service
	generator *insight.Generator
}

// NewRAGHandler creates a new RAG handler
func NewRAGHandler(service *retrieval.Service, generator *insight.Generator) *RAGHandler {
	return &RAGHandler{service: service, generator: generator}
}

type ragQueryRequest struct {
	Query     string `json:"query" validate:"required"`
	TopK      int    `json:"top_k" validate:"omitempty,min=1,max=20"`
	EnableCoT bool   `json:"enable_cot"`
}

// Query retrieves the top-k chunks for a query and summarizes them with
// the lightweight model.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if !validateRequest(w, req) {
		return
	}
	if req.TopK <= 0 {
		req.TopK = 3
	}

	snippets, combined, err := h.service.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		response.InternalError(w, "retrieval failed: "+err.Error())
		return
	}

	out, err := h.generator.Generate(r.Context(), insight.Options{
		EDASummary:      combined,
		ModelSummary:    fmt.Sprintf("User query: %s", req.Query),
		ModelChoice:     "mistral",
		ChunkThreshold:  2000,
		ForceRegenerate: true,
		EnableCoT:       req.EnableCoT,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"query":              req.Query,
		"top_k":              req.TopK,
		"retrieved_snippets": snippets,
		"answer":             out.Insights,
	})
}

// BuildIndex chunks and embeds every document and persists the index.
func (h *RAGHandler) BuildIndex(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.service.BuildIndex(r.Context())
	if err != nil {
		response.InternalError(w, "failed to build index: "+err.Error())
		return
	}

	response.OK(w, map[string]any{
		"status": "success",
		"chunks": chunks,
	})
}

// Status reports whether an index is loaded and how many chunks it holds.
func (h *RAGHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"loaded": h.service.Loaded(),
		"chunks": h.service.ChunkCount(),
	})
}
