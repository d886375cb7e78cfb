package summarize

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/dgallion1/scholarly/internal/parser"
)

// Worker processes a single summarization job.
type Worker struct {
	pipeline *Pipeline
	parse    parser.Options
	log      *slog.Logger
}

func NewWorker(pipeline *Pipeline, parse parser.Options, log *slog.Logger) *Worker {
	return &Worker{pipeline: pipeline, parse: parse, log: log}
}

// Process parses the upload and runs the pipeline, recording the outcome on job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := parser.ParseFile(bytes.NewReader(job.FileData()), job.Filename, w.parse)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parsing", PublicMessage(err))
		return
	}
	job.SetTitle(doc.Title)

	// Phase 2: Summarize
	job.SetStatus(StatusSummarizing, "summarizing")
	result, err := w.pipeline.Run(ctx, doc, job.Query, &Hooks{
		OnSections: job.SetTotalSections,
		OnSection: func(_ string, summarized bool) {
			job.SectionDone(summarized)
		},
	})
	if err != nil {
		log.Error("summarization failed", "error", err)
		job.Fail("summarizing", PublicMessage(err))
		return
	}

	job.Complete(result)
	log.Info("job complete", "content_hash", job.ContentHash, "bytes", len(result))
}

// PublicMessage maps a pipeline or parse error to text safe to show a client.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoText):
		return ErrNoText.Error()
	case errors.Is(err, ErrUpstream):
		return "generation service unavailable"
	case errors.Is(err, ErrNothingSummarized):
		return ErrNothingSummarized.Error()
	case errors.Is(err, parser.ErrUnsupported):
		return err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "summarization canceled"
	default:
		return "could not read the uploaded document"
	}
}
