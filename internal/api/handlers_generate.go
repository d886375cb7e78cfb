package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/scholarly/internal/llm"
	"github.com/dgallion1/scholarly/internal/prompt"
)

const maxJSONBody = 1 << 20

type queryRequest struct {
	Query string `json:"query"`
}

type codexRequest struct {
	Mode  string `json:"mode"`
	Query string `json:"query"`
}

// decodeJSON reads a small JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		if errors.Is(err, io.EOF) {
			jsonError(w, "request body is required", http.StatusBadRequest)
			return false
		}
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return "", false
	}
	return req.Query, true
}

// generate forwards req to gen and writes {"response": text}. Upstream
// details are logged, never returned.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, gen llm.Generator, req llm.Request, op string) {
	log := s.log.With("request_id", middleware.GetReqID(r.Context()), "op", op)

	resp, err := gen.Generate(r.Context(), req)
	if err != nil {
		log.Error("generation failed", "model", gen.Model(), "error", SanitizeError(err))
		jsonError(w, "generation service request failed", http.StatusBadGateway)
		return
	}
	text := resp.FirstText()
	if text == "" {
		log.Warn("generation returned no text", "model", gen.Model(), "candidates", len(resp.Generations))
		jsonError(w, "generation service returned no text", http.StatusBadGateway)
		return
	}
	jsonResponse(w, text)
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	if s.deps.Gemini == nil {
		jsonError(w, "text generation is not configured", http.StatusServiceUnavailable)
		return
	}
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.generate(w, r, s.deps.Gemini, llm.Request{Prompt: query}, "generate_text")
}

func (s *Server) handleHumanize(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.generate(w, r, s.deps.Text, llm.Request{
		Prompt:        prompt.Humanize(query),
		MaxTokens:     250,
		Temperature:   llm.Float(0.6),
		TopK:          llm.Int(0),
		TopP:          llm.Float(0.9),
		StopSequences: []string{"--"},
	}, "humanize")
}

func (s *Server) handleCodex(w http.ResponseWriter, r *http.Request) {
	var req codexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	p, err := prompt.Codex(prompt.CodexMode(req.Mode), req.Query)
	if err != nil {
		jsonError(w, "mode must be one of debug, complete, explain", http.StatusBadRequest)
		return
	}
	s.generate(w, r, s.deps.Text, llm.Request{Prompt: p, MaxTokens: 400}, "codex")
}

func (s *Server) handleLitReview(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.generate(w, r, s.deps.Text, llm.Request{
		Prompt:    prompt.LiteratureReview(query),
		MaxTokens: 700,
	}, "lit_review")
}
