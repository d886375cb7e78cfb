package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/scholarly/internal/breaker"
)

// Provider names accepted by New.
const (
	ProviderCohere    = "cohere"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Options selects and configures a provider client.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// DefaultModel returns the model used when Options.Model is empty.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderCohere:
		return "command-light"
	case ProviderAnthropic:
		return "claude-haiku-4-5"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGemini:
		return "gemini-1.5-flash"
	}
	return ""
}

// New returns a bare client for opts.Provider.
func New(opts Options) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s: api key is required", provider)
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel(provider)
	}
	switch provider {
	case ProviderCohere:
		return NewCohereClient(opts.APIKey, model, opts.BaseURL), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts.APIKey, model, opts.BaseURL), nil
	case ProviderOpenAI:
		return NewOpenAIClient(opts.APIKey, model, opts.BaseURL), nil
	case ProviderGemini:
		return NewGeminiClient(opts.APIKey, model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", opts.Provider)
	}
}

// Chain wraps a bare client with instrumentation and then a circuit breaker.
// Breaker rejections are not recorded in stats.
func Chain(gen Generator, provider string, stats *LLMStats, log *slog.Logger) Generator {
	return NewBreaker(NewInstrumented(gen, provider, stats, log), breaker.DefaultConfig(provider), log)
}
