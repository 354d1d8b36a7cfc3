package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleEmbedStats(w http.ResponseWriter, r *http.Request) {
	if s.embedder == nil || s.embedder.Stats() == nil {
		jsonError(w, "embedding stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"provider":    s.embedder.Name(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.embedder.Stats().Snapshot(),
	})
}
