package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgallion1/scholarly/internal/breaker"
)

// Breaker fails fast while the wrapped Generator's upstream is unhealthy.
// It never retries; a rejected call returns breaker.ErrOpen.
type Breaker struct {
	next Generator
	b    *breaker.Breaker
}

// NewBreaker wraps next. Only transport errors and transient statuses count
// as failures; a 400 for a bad prompt does not trip it.
func NewBreaker(next Generator, cfg breaker.Config, log *slog.Logger) *Breaker {
	return &Breaker{next: next, b: breaker.New(cfg, isUpstreamFailure, log)}
}

func isUpstreamFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return err != nil
}

func (g *Breaker) Generate(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := g.b.Do(ctx, func() error {
		var err error
		resp, err = g.next.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Breaker) Model() string {
	return g.next.Model()
}

// CircuitState reports the breaker state: "closed", "half-open" or "open".
func (g *Breaker) CircuitState() string {
	return g.b.State().String()
}
