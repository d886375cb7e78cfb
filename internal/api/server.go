package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/scholarly/internal/config"
	"github.com/dgallion1/scholarly/internal/llm"
	"github.com/dgallion1/scholarly/internal/scholar"
	"github.com/dgallion1/scholarly/internal/summarize"
)

// Searcher finds papers for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]scholar.Paper, error)
}

// Deps are the collaborators the handlers forward to.
type Deps struct {
	// Text generates for humanize, codex and literature review.
	Text llm.Generator
	// Gemini backs /generate_text/; nil disables the route.
	Gemini llm.Generator
	// Stats is the rolling latency window of Text; nil disables /api/stats/llm.
	Stats *llm.LLMStats

	Summarizer   *summarize.Pipeline
	Orchestrator *summarize.Orchestrator
	Search       Searcher
}

// Server is the HTTP API server for scholarly.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/generate_text/", s.handleGenerateText)
	r.Post("/humanize-text/", s.handleHumanize)
	r.Post("/codex/", s.handleCodex)
	r.Post("/auto-lit-review/", s.handleLitReview)
	r.Post("/summarize-pdf/", s.handleSummarize)
	r.Get("/semantic-search/", s.handleSearch)

	r.Post("/api/summarize/jobs", s.handleSubmitJob)
	r.Get("/api/summarize/jobs/{jobID}", s.handleJobStatus)
	r.Get("/api/stats/llm", s.handleLLMStats)

	s.router = r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Backend with APIs is active."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
