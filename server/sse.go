package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentfusion/agentfusion/agent"
)

// streamTurn writes the turn's events to the client as they are yielded.
// Each SSE event is named after the event kind; fatal turn errors arrive as
// an "error" event before the stream closes.
func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, engine *agent.Engine, content string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev, err := range engine.Push(r.Context(), content) {
		if err != nil {
			payload, _ := json.Marshal(map[string]string{"error": err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
			flusher.Flush()
			return
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Warn("failed to encode event", "kind", ev.Kind, "error", err)
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
		flusher.Flush()
	}
}
