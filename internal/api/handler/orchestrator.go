package handler

import (
	"encoding/json"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/orchestrator"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
)

// OrchestratorHandler handles the decision loop endpoint
type OrchestratorHandler struct {
	store   *fsstore.DatasetStore
	agent   *orchestrator.Agent
	session *Session
}

// NewOrchestratorHandler creates a new orchestrator handler
func NewOrchestratorHandler(store *fsstore.DatasetStore, agent *orchestrator.Agent, session *Session) *OrchestratorHandler {
	return &OrchestratorHandler{store: store, agent: agent, session: session}
}

type decideRequest struct {
	DatasetID string `json:"dataset_id" validate:"required"`
	Stage     string `json:"stage"`
	TargetCol string `json:"target_col"`
}

// Decide runs one orchestrator decision loop. Stage failures come back as
// the decision record itself, not as an HTTP error.
func (h *OrchestratorHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
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

	decision := h.agent.DecideNextSteps(r.Context(), f, orchestrator.Options{
		TargetCol: req.TargetCol,
		SessionID: h.session.Current(),
	})
	response.OK(w, decision)
}
