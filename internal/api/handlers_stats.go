package api

import "net/http"

// circuitReporter is implemented by generators wrapped in a circuit breaker.
type circuitReporter interface {
	CircuitState() string
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Text == nil || s.deps.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	body := map[string]any{
		"provider": s.cfg.GenerationProvider,
		"model":    s.deps.Text.Model(),
		"stats":    s.deps.Stats.Snapshot(),
	}
	if cr, ok := s.deps.Text.(circuitReporter); ok {
		body["circuit"] = cr.CircuitState()
	}
	writeJSON(w, http.StatusOK, body)
}
