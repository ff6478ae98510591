package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agentfusion/agentfusion/agent"
	"github.com/agentfusion/agentfusion/session"
)

type agentSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Model       string   `json:"model"`
	Handoffs    []string `json:"handoffs,omitempty"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var out []agentSummary
	for _, name := range s.runtime.AgentNames() {
		ac, err := s.runtime.AgentConfig(name)
		if err != nil {
			continue
		}
		summary := agentSummary{Name: name, Description: ac.Description, Model: ac.Model}
		for _, h := range ac.Handoffs {
			summary.Handoffs = append(summary.Handoffs, h.Target)
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": out})
}

type createSessionRequest struct {
	Agent string `json:"agent"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.runtime.AgentConfig(req.Agent); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sess, err := s.runtime.Sessions().Create(r.Context(), req.Agent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.runtime.Sessions().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.runtime.Sessions().Get(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.runtime.Sessions().Delete(r.Context(), chi.URLParam(r, "session")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	if _, err := s.runtime.Sessions().Get(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}
	messages, err := s.runtime.Sessions().Messages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	if _, err := s.runtime.Sessions().Get(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}
	if err := s.runtime.Sessions().ClearMessages(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// handlePostMessage runs one turn against the session's agent. With an SSE
// accept header the events stream out as they happen; otherwise the whole
// event list is returned once the turn finishes.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	sess, err := s.runtime.Sessions().Get(r.Context(), id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	engine, err := s.runtime.EngineForSession(sess.AgentName, sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := engine.Start(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() {
		if err := engine.End(r.Context()); err != nil {
			s.logger.Warn("failed to end engine", "agent", sess.AgentName, "error", err)
		}
	}()

	if wantsSSE(r) {
		s.streamTurn(w, r, engine, req.Content)
		return
	}

	var events []*agent.Event
	for ev, err := range engine.Push(r.Context(), req.Content) {
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		events = append(events, ev)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func wantsSSE(r *http.Request) bool {
	if r.URL.Query().Get("stream") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
