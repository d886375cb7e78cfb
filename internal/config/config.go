package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is loaded from an optional YAML file named by SCHOLARLY_CONFIG and
// then from the environment. Environment variables win.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Text generation for summaries, humanize, codex and literature review.
	GenerationProvider string `yaml:"generation_provider"`

	CohereAPIKey  string `yaml:"cohere_api_key"`
	CohereModel   string `yaml:"cohere_model"`
	CohereBaseURL string `yaml:"cohere_base_url"`

	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicModel   string `yaml:"anthropic_model"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// Generative-language API behind /generate_text/.
	GoogleAPIKey   string `yaml:"google_api_key"`
	GeminiModel    string `yaml:"gemini_model"`
	GeminiBaseURL  string `yaml:"gemini_base_url"`
	GeminiRequired bool   `yaml:"gemini_required"`

	// Academic search
	OpenAlexURL   string        `yaml:"openalex_url"`
	SearchTimeout time.Duration `yaml:"search_timeout"`

	// Summarization
	SectionWordLimit     int     `yaml:"section_word_limit"`
	SummarizeConcurrency int     `yaml:"summarize_concurrency"`
	SummaryMaxTokens     int     `yaml:"summary_max_tokens"`
	SummaryTemperature   float64 `yaml:"summary_temperature"`

	// HTTP
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	MaxUploadBytes     int64    `yaml:"max_upload_bytes"`

	// Async jobs
	WorkerCount  int           `yaml:"worker_count"`
	MaxQueueSize int           `yaml:"max_queue_size"`
	JobTTL       time.Duration `yaml:"job_ttl"`

	// Latency stats window for /api/stats/llm
	LLMStatsWindow time.Duration `yaml:"llm_stats_window"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:     "8000",
		LogLevel: "info",

		GenerationProvider: "cohere",
		CohereModel:        "command-light",
		AnthropicModel:     "claude-haiku-4-5",
		OpenAIModel:        "gpt-4o-mini",
		GeminiModel:        "gemini-1.5-flash",

		OpenAlexURL:   "https://api.openalex.org",
		SearchTimeout: 10 * time.Second,

		SectionWordLimit:     800,
		SummarizeConcurrency: 1,
		SummaryMaxTokens:     300,
		SummaryTemperature:   0.6,

		CORSAllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MaxUploadBytes:     52428800, // 50MB

		WorkerCount:  2,
		MaxQueueSize: 100,
		JobTTL:       1 * time.Hour,

		LLMStatsWindow: 1 * time.Hour,

		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, the SCHOLARLY_CONFIG file if
// set, and the environment.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("SCHOLARLY_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	cfg.GenerationProvider = envOr("GENERATION_PROVIDER", cfg.GenerationProvider)
	cfg.CohereAPIKey = envOr("COHERE_API_KEY", cfg.CohereAPIKey)
	cfg.CohereModel = envOr("COHERE_MODEL", cfg.CohereModel)
	cfg.CohereBaseURL = envOr("COHERE_BASE_URL", cfg.CohereBaseURL)
	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = envOr("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	cfg.GoogleAPIKey = envOr("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.GeminiModel = envOr("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = envOr("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GeminiRequired = envBool("GEMINI_REQUIRED", cfg.GeminiRequired)

	cfg.OpenAlexURL = envOr("OPENALEX_URL", cfg.OpenAlexURL)
	cfg.SearchTimeout = envDuration("SEARCH_TIMEOUT", cfg.SearchTimeout)

	cfg.SectionWordLimit = envInt("SECTION_WORD_LIMIT", cfg.SectionWordLimit)
	cfg.SummarizeConcurrency = envInt("SUMMARIZE_CONCURRENCY", cfg.SummarizeConcurrency)
	cfg.SummaryMaxTokens = envInt("SUMMARY_MAX_TOKENS", cfg.SummaryMaxTokens)
	cfg.SummaryTemperature = envFloat("SUMMARY_TEMPERATURE", cfg.SummaryTemperature)

	cfg.CORSAllowedOrigins = envList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.LLMStatsWindow = envDuration("LLM_STATS_WINDOW", cfg.LLMStatsWindow)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.normalize()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	d := Defaults()
	c.GenerationProvider = strings.ToLower(strings.TrimSpace(c.GenerationProvider))
	if c.SectionWordLimit <= 0 {
		c.SectionWordLimit = d.SectionWordLimit
	}
	if c.SummarizeConcurrency <= 0 {
		c.SummarizeConcurrency = d.SummarizeConcurrency
	}
	if c.SummaryMaxTokens <= 0 {
		c.SummaryMaxTokens = d.SummaryMaxTokens
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = d.SearchTimeout
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.LLMStatsWindow <= 0 {
		c.LLMStatsWindow = d.LLMStatsWindow
	}
}

// ProviderAPIKey returns the API key of the selected generation provider.
func (c Config) ProviderAPIKey() string {
	switch c.GenerationProvider {
	case "cohere":
		return c.CohereAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GoogleAPIKey
	}
	return ""
}

// ProviderModel returns the model of the selected generation provider.
func (c Config) ProviderModel() string {
	switch c.GenerationProvider {
	case "cohere":
		return c.CohereModel
	case "anthropic":
		return c.AnthropicModel
	case "openai":
		return c.OpenAIModel
	case "gemini":
		return c.GeminiModel
	}
	return ""
}

// ProviderBaseURL returns the base URL override of the selected provider.
func (c Config) ProviderBaseURL() string {
	switch c.GenerationProvider {
	case "cohere":
		return c.CohereBaseURL
	case "anthropic":
		return c.AnthropicBaseURL
	case "openai":
		return c.OpenAIBaseURL
	case "gemini":
		return c.GeminiBaseURL
	}
	return ""
}

// GeminiEnabled reports whether /generate_text/ should be served.
func (c Config) GeminiEnabled() bool {
	return c.GoogleAPIKey != "" || c.GeminiRequired
}

var providerKeyEnv = map[string]string{
	"cohere":    "COHERE_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GOOGLE_API_KEY",
}

func (c Config) Validate() error {
	var errs []error
	keyEnv, ok := providerKeyEnv[c.GenerationProvider]
	if !ok {
		errs = append(errs, fmt.Errorf("GENERATION_PROVIDER %q is not one of cohere, anthropic, openai, gemini", c.GenerationProvider))
	} else if c.ProviderAPIKey() == "" {
		errs = append(errs, fmt.Errorf("%s is required", keyEnv))
	}
	if c.GeminiRequired && c.GoogleAPIKey == "" {
		errs = append(errs, fmt.Errorf("GOOGLE_API_KEY is required when GEMINI_REQUIRED is set"))
	}
	if c.SummaryTemperature < 0 || c.SummaryTemperature > 2 {
		errs = append(errs, fmt.Errorf("SUMMARY_TEMPERATURE must be between 0 and 2, got %v", c.SummaryTemperature))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
