package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/scholarly/internal/parser"
	"github.com/dgallion1/scholarly/internal/summarize"
)

type upload struct {
	filename string
	query    string
	data     []byte
}

const (
	formMemory   = 32 << 20
	formOverhead = 1 << 20
)

// uploadError is a rejected upload with the status it maps to.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) write(w http.ResponseWriter) { jsonError(w, e.msg, e.status) }

// readUpload parses the multipart form shared by the sync and async
// summarize routes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, *uploadError) {
	limit := s.cfg.MaxUploadBytes
	tooLarge := &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max size (%d bytes)", limit)}

	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, tooLarge
		}
		return nil, &uploadError{http.StatusBadRequest, "invalid multipart form"}
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		return nil, &uploadError{http.StatusBadRequest, "file is required"}
	}
	defer part.Close()

	name := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(name) {
		return nil, &uploadError{http.StatusBadRequest, fmt.Sprintf("unsupported file type %q, expected one of %s",
			filepath.Ext(name), strings.Join(parser.Extensions(), " "))}
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(part, limit+1))
	switch {
	case err != nil:
		return nil, &uploadError{http.StatusInternalServerError, "failed to read file"}
	case n > limit:
		return nil, tooLarge
	}
	return &upload{filename: name, query: r.FormValue("query"), data: buf.Bytes()}, nil
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	up, uerr := s.readUpload(w, r)
	if uerr != nil {
		uerr.write(w)
		return
	}
	log := s.log.With("request_id", middleware.GetReqID(r.Context()), "filename", up.filename)

	doc, err := parser.ParseFile(bytes.NewReader(up.data), up.filename, parser.Options{
		FallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		log.Error("parse failed", "error", SanitizeError(err))
		jsonError(w, summarize.PublicMessage(err), http.StatusBadRequest)
		return
	}

	result, err := s.deps.Summarizer.Summarize(r.Context(), doc, up.query)
	if err != nil {
		log.Error("summarization failed", "error", SanitizeError(err))
		jsonError(w, summarize.PublicMessage(err), summarizeStatus(err))
		return
	}
	jsonResponse(w, result)
}

// summarizeStatus maps pipeline errors onto HTTP status codes.
func summarizeStatus(err error) int {
	switch {
	case errors.Is(err, summarize.ErrNoText):
		return http.StatusBadRequest
	case errors.Is(err, summarize.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, summarize.ErrNothingSummarized):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		jsonError(w, "summarize jobs are not enabled", http.StatusServiceUnavailable)
		return
	}
	up, uerr := s.readUpload(w, r)
	if uerr != nil {
		uerr.write(w)
		return
	}

	job := summarize.NewJob(up.filename, up.query, up.data)
	if err := s.deps.Orchestrator.Submit(job); err != nil {
		s.log.Warn("job rejected", "request_id", middleware.GetReqID(r.Context()), "job_id", job.ID, "error", err)
		msg := "summarize queue is shutting down"
		if errors.Is(err, summarize.ErrQueueFull) {
			msg = "summarize queue is full, try again later"
		}
		jsonError(w, msg, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   summarize.StatusQueued,
		"poll_url": fmt.Sprintf("/api/summarize/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Orchestrator == nil {
		jsonError(w, "summarize jobs are not enabled", http.StatusServiceUnavailable)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	job := s.deps.Orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}
