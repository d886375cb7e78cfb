package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/scholarly/internal/scholar"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	papers, err := s.deps.Search.Search(r.Context(), query)
	if err != nil {
		s.log.Error("academic search failed",
			"request_id", middleware.GetReqID(r.Context()),
			"query", query,
			"error", SanitizeError(err))
		var se *scholar.StatusError
		if errors.As(err, &se) {
			jsonError(w, "academic search service returned an error", http.StatusBadGateway)
			return
		}
		jsonError(w, "academic search service unavailable", http.StatusBadGateway)
		return
	}
	if papers == nil {
		papers = []scholar.Paper{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
}
