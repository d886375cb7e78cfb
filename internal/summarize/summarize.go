// Package summarize runs the section summarization pipeline: segment a
// document, bound each section, prompt the generator once per section and
// stitch the surviving summaries back together in document order.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/scholarly/internal/chunker"
	"github.com/dgallion1/scholarly/internal/document"
	"github.com/dgallion1/scholarly/internal/llm"
	"github.com/dgallion1/scholarly/internal/prompt"
	"github.com/dgallion1/scholarly/internal/segment"
)

var (
	// ErrNoText means the document has no readable text. No generation call is made.
	ErrNoText = errors.New("could not extract readable text from the document")

	// ErrNothingSummarized means no section produced a usable summary.
	ErrNothingSummarized = errors.New("no content could be summarized")

	// ErrUpstream means every section's generation call failed outright. It is
	// always returned wrapped together with ErrNothingSummarized.
	ErrUpstream = errors.New("generation service failed for every section")
)

const separator = "\n\n"

var tracer = otel.Tracer("github.com/dgallion1/scholarly/internal/summarize")

// Config tunes the pipeline.
type Config struct {
	WordLimit   int     // Per-section word ceiling; <= 0 uses chunker.DefaultMaxWords
	Concurrency int     // Sections in flight at once; <= 1 is sequential
	MaxTokens   int     // Generation length per section
	Temperature float64 // Sampling temperature per section
}

// DefaultConfig returns the settings used by the summarize endpoint.
func DefaultConfig() Config {
	return Config{
		WordLimit:   chunker.DefaultMaxWords,
		Concurrency: 1,
		MaxTokens:   300,
		Temperature: 0.6,
	}
}

// Hooks receive progress callbacks. Calls are serialized.
type Hooks struct {
	// OnSections is called once with the number of sections to summarize.
	OnSections func(total int)
	// OnSection is called as each section finishes, in completion order.
	OnSection func(title string, summarized bool)
}

// Pipeline summarizes documents section by section. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	gen llm.Generator
	cfg Config
	log *slog.Logger
}

// New creates a pipeline that sends prompts to gen.
func New(gen llm.Generator, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.WordLimit <= 0 {
		cfg.WordLimit = chunker.DefaultMaxWords
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{gen: gen, cfg: cfg, log: log}
}

// Summarize returns the per-section summaries of doc joined by blank lines.
func (p *Pipeline) Summarize(ctx context.Context, doc *document.Document, query string) (string, error) {
	return p.Run(ctx, doc, query, nil)
}

type outcome int

// A result slot that no goroutine filled stays outcomePending.
const (
	outcomePending outcome = iota
	outcomeSummarized
	outcomeEmpty
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeSummarized:
		return "summarized"
	case outcomeEmpty:
		return "empty"
	case outcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

type sectionResult struct {
	summary string
	outcome outcome
	err     error
}

// Run is Summarize with progress hooks.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document, query string, hooks *Hooks) (string, error) {
	ctx, span := tracer.Start(ctx, "summarize.pipeline")
	defer span.End()
	start := time.Now()

	if doc == nil || !doc.HasText() {
		span.SetStatus(codes.Error, ErrNoText.Error())
		pipelineRunsTotal.WithLabelValues("no_text").Inc()
		return "", ErrNoText
	}

	var work []document.Section
	for _, s := range segment.ExtractDocument(doc) {
		if s.Empty() {
			continue
		}
		work = append(work, s)
	}
	span.SetAttributes(
		attribute.String("document.title", doc.Title),
		attribute.Int("document.pages", len(doc.Pages)),
		attribute.Int("sections.count", len(work)),
		attribute.Int("pipeline.concurrency", p.cfg.Concurrency),
	)
	sectionsExtracted.Observe(float64(len(work)))
	p.log.Info("extracted sections", "title", doc.Title, "pages", len(doc.Pages), "sections", len(work))

	var hookMu sync.Mutex
	if hooks != nil && hooks.OnSections != nil {
		hooks.OnSections(len(work))
	}

	results := make([]sectionResult, len(work))
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, sec := range work {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.summarizeSection(ctx, sec, query)
			if hooks != nil && hooks.OnSection != nil {
				hookMu.Lock()
				hooks.OnSection(sec.Title, results[i].outcome == outcomeSummarized)
				hookMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled")
		pipelineRunsTotal.WithLabelValues("canceled").Inc()
		return "", err
	}

	summaries := make([]string, 0, len(results))
	failed, pending := 0, 0
	var lastErr error
	for _, r := range results {
		switch r.outcome {
		case outcomeSummarized:
			summaries = append(summaries, r.summary)
		case outcomeFailed:
			failed++
			lastErr = r.err
		case outcomePending:
			pending++
		}
	}
	if pending > 0 {
		p.log.Warn("sections never ran", "pending", pending)
	}
	pipelineDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("sections.summarized", len(summaries)))

	if len(summaries) == 0 {
		err := ErrNothingSummarized
		if len(work) > 0 && failed == len(work) {
			err = fmt.Errorf("%w: %w: %w", ErrUpstream, ErrNothingSummarized, lastErr)
			pipelineRunsTotal.WithLabelValues("upstream_failed").Inc()
		} else {
			pipelineRunsTotal.WithLabelValues("nothing_summarized").Inc()
		}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	pipelineRunsTotal.WithLabelValues("ok").Inc()
	p.log.Info("summarization complete",
		"sections", len(work),
		"summarized", len(summaries),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds())
	return strings.Join(summaries, separator), nil
}

func (p *Pipeline) summarizeSection(ctx context.Context, sec document.Section, query string) sectionResult {
	ctx, span := tracer.Start(ctx, "summarize.section", trace.WithAttributes(
		attribute.String("section.title", sec.Title),
	))
	defer span.End()

	bounded := chunker.Bound(sec.Body, p.cfg.WordLimit)
	span.SetAttributes(
		attribute.Int("section.words", bounded.Words),
		attribute.Bool("section.truncated", bounded.Truncated),
	)
	if bounded.Truncated {
		sectionsTruncated.Inc()
	}
	log := p.log.With("section", sec.Title)
	log.Debug("summarizing section",
		"words", bounded.Words,
		"truncated", bounded.Truncated,
		"est_tokens", chunker.EstimateTokens(bounded.Text))

	resp, err := p.gen.Generate(ctx, llm.Request{
		Prompt:      prompt.SectionSummary(sec.Title, query, bounded.Text),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: llm.Float(p.cfg.Temperature),
	})

	var res sectionResult
	switch {
	case err != nil:
		res = sectionResult{outcome: outcomeFailed, err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		log.Warn("section skipped", "reason", "generation failed", "error", err)
	case resp.FirstText() == "":
		res = sectionResult{outcome: outcomeEmpty}
		log.Warn("section skipped", "reason", "empty generation")
	default:
		res = sectionResult{outcome: outcomeSummarized, summary: resp.FirstText()}
	}
	span.SetAttributes(attribute.String("section.outcome", res.outcome.String()))
	sectionsTotal.WithLabelValues(res.outcome.String()).Inc()
	return res
}
