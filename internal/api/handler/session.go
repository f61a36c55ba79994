package handler

import (
	"net/http"
	"sync"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/rs/zerolog/log"
)

// Session tracks the current model session id. Restarting the analysis
// swaps it for a fresh one.
type Session struct {
	mu sync.RWMutex
	id string
}

// NewSession creates a session holder with an initial id.
func NewSession(id string) *Session {
	return &Session{id: id}
}

// Current returns the active session id.
func (s *Session) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) set(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// SessionHandler handles the analysis session lifecycle
type SessionHandler struct {
	models  *fsstore.ModelRepository
	session *Session
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(models *fsstore.ModelRepository, session *Session) *SessionHandler {
	return &SessionHandler{models: models, session: session}
}

// RestartAnalysis irreversibly deletes all saved model artifacts and
// mints a new session id.
func (h *SessionHandler) RestartAnalysis(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.models.Reset()
	if err != nil {
		response.InternalError(w, "failed to restart analysis: "+err.Error())
		return
	}
	h.session.set(sessionID)

	log.Info().Str("session_id", sessionID).Msg("restarted analysis")
	response.OK(w, map[string]any{
		"status":     "success",
		"session_id": sessionID,
	})
}
