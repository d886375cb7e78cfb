package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/scholarly/internal/api"
	"github.com/dgallion1/scholarly/internal/config"
	"github.com/dgallion1/scholarly/internal/llm"
	"github.com/dgallion1/scholarly/internal/scholar"
	"github.com/dgallion1/scholarly/internal/summarize"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, loadErr := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	err := loadErr
	if err == nil {
		err = cfg.Validate()
	}
	if err == nil {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err = run(ctx, cfg, log)
		stop()
	}
	if err != nil {
		log.Error("scholarly exited", "error", err)
		os.Exit(1)
	}
}

// run wires the service and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	bare, err := llm.New(llm.Options{
		Provider: cfg.GenerationProvider,
		APIKey:   cfg.ProviderAPIKey(),
		Model:    cfg.ProviderModel(),
		BaseURL:  cfg.ProviderBaseURL(),
	})
	if err != nil {
		return fmt.Errorf("generation client: %w", err)
	}
	stats := llm.NewLLMStats(cfg.LLMStatsWindow)
	text := llm.Chain(bare, cfg.GenerationProvider, stats, log)

	var gemini llm.Generator
	if cfg.GeminiEnabled() {
		g := llm.NewGeminiClient(cfg.GoogleAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		gemini = llm.Chain(g, llm.ProviderGemini, nil, log)
	} else {
		log.Warn("GOOGLE_API_KEY not set, /generate_text/ disabled")
	}

	pipeline := summarize.New(text, summarize.Config{
		WordLimit:   cfg.SectionWordLimit,
		Concurrency: cfg.SummarizeConcurrency,
		MaxTokens:   cfg.SummaryMaxTokens,
		Temperature: cfg.SummaryTemperature,
	}, log)
	orch := summarize.NewOrchestrator(cfg, pipeline, log)
	orch.Start(ctx)

	handler := api.NewServer(api.Deps{
		Text:         text,
		Gemini:       gemini,
		Stats:        stats,
		Summarizer:   pipeline,
		Orchestrator: orch,
		Search:       scholar.NewClient(cfg.OpenAlexURL, cfg.SearchTimeout, log),
	}, log, cfg)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting scholarly",
			"port", cfg.Port,
			"provider", cfg.GenerationProvider,
			"model", text.Model(),
			"summarize_concurrency", cfg.SummarizeConcurrency)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		orch.Stop()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})
	return g.Wait()
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if s = strings.ToLower(strings.TrimSpace(s)); s == "warning" {
		s = "warn"
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
