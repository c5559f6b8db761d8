package wsserver

import (
	"encoding/json"
	"net/http"
	"strings"
)

type agentDetail struct {
	AgentID    string `json:"agentId"`
	Scrollback string `json:"scrollback"`
	Status     string `json:"status"`
	ExitCode   *int   `json:"exitCode"`
}

// handleAgentsList serves GET /api/agents: the current dedup'd projection.
func (s *Server) handleAgentsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Projection())
}

// handleAgentByID serves GET /api/agents/{id}: scrollback and status for a
// single agent, or 404 if it no longer exists.
func (s *Server) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	agentID := strings.TrimPrefix(r.URL.Path, "/api/agents/")
	if agentID == "" || strings.Contains(agentID, "/") {
		writeJSONError(w, http.StatusNotFound, "agent not found")
		return
	}

	scrollback, ok := s.pool.Scrollback(agentID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "agent not found")
		return
	}

	status, exitCode, _, _ := s.pool.AgentStatus(agentID)
	writeJSON(w, http.StatusOK, agentDetail{
		AgentID:    agentID,
		Scrollback: scrollback,
		Status:     status,
		ExitCode:   exitCode,
	})
}

// handleAPINotFound serves the /api/* catch-all for unmatched API routes.
func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
