package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/dgallion1/scholarly/internal/llm")

// Instrumented records latency, outcome and a trace span for every call to
// the wrapped Generator.
type Instrumented struct {
	next     Generator
	provider string
	stats    *LLMStats
	log      *slog.Logger
}

// NewInstrumented wraps next. A nil stats disables the rolling window.
func NewInstrumented(next Generator, provider string, stats *LLMStats, log *slog.Logger) *Instrumented {
	if log == nil {
		log = slog.Default()
	}
	return &Instrumented{next: next, provider: provider, stats: stats, log: log}
}

func (g *Instrumented) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "llm.generate")
	defer span.End()
	words := len(strings.Fields(req.Prompt))
	span.SetAttributes(
		attribute.String("llm.provider", g.provider),
		attribute.String("llm.model", g.next.Model()),
		attribute.Int("llm.prompt_words", words),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)

	start := time.Now()
	resp, err := g.next.Generate(ctx, req)
	elapsed := time.Since(start)

	generationDuration.WithLabelValues(g.provider).Observe(elapsed.Seconds())
	if g.stats != nil {
		g.stats.Observe(elapsed, err)
	}
	generationPromptWords.WithLabelValues(g.provider).Observe(float64(words))

	if err != nil {
		generationRequestsTotal.WithLabelValues(g.provider, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.log.Warn("generation failed", "provider", g.provider, "model", g.next.Model(), "duration_ms", elapsed.Milliseconds(), "error", err)
		return nil, err
	}

	generationRequestsTotal.WithLabelValues(g.provider, "ok").Inc()
	g.log.Debug("generation complete", "provider", g.provider, "model", g.next.Model(), "duration_ms", elapsed.Milliseconds(), "candidates", len(resp.Generations))
	return resp, nil
}

func (g *Instrumented) Model() string {
	return g.next.Model()
}

// Stats returns the rolling latency window, or nil.
func (g *Instrumented) Stats() *LLMStats {
	return g.stats
}
