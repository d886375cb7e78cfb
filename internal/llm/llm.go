// Package llm wraps the text-generation services the API forwards prompts to.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is a single prompt plus generation parameters.
// Nil sampling fields are left to the provider's defaults.
type Request struct {
	Prompt        string
	MaxTokens     int
	Temperature   *float64
	TopK          *int
	TopP          *float64
	StopSequences []string
}

// Generation is one candidate output.
type Generation struct {
	Text string
}

// Response holds zero or more candidate generations.
type Response struct {
	Generations []Generation
}

// FirstText returns the first candidate's text trimmed of surrounding whitespace,
// or "" when there are no candidates.
func (r *Response) FirstText() string {
	if r == nil || len(r.Generations) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Generations[0].Text)
}

// Generator submits a prompt to a text-generation service.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Float returns a pointer to v, for optional Request fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional Request fields.
func Int(v int) *int { return &v }

// StatusError is a non-success response from an upstream service.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

// Transient reports whether the status suggests the upstream itself is unhealthy
// rather than the request being malformed.
func (e *StatusError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
