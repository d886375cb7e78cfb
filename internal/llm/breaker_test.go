package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/scholarly/internal/breaker"
)

func tightBreakerConfig() breaker.Config {
	return breaker.Config{
		Name:             "test-llm",
		MaxRequests:      1,
		Timeout:          time.Hour,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestBreakerOpensOnTransientFailures(t *testing.T) {
	stub := &stubGenerator{err: &StatusError{Provider: "stub", StatusCode: 503}}
	g := NewBreaker(stub, tightBreakerConfig(), nil)
	assert.Equal(t, "closed", g.CircuitState())

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), Request{Prompt: "p"})
		require.Error(t, err)
	}
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.EqualValues(t, 2, stub.calls.Load())
	assert.Equal(t, "open", g.CircuitState())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	stub := &stubGenerator{err: &StatusError{Provider: "stub", StatusCode: 400}}
	g := NewBreaker(stub, tightBreakerConfig(), nil)

	for i := 0; i < 5; i++ {
		_, err := g.Generate(context.Background(), Request{Prompt: "p"})
		var se *StatusError
		require.True(t, errors.As(err, &se))
	}
	assert.EqualValues(t, 5, stub.calls.Load())
}

func TestBreakerPassesResponse(t *testing.T) {
	g := NewBreaker(&stubGenerator{text: "ok"}, tightBreakerConfig(), nil)
	resp, err := g.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.FirstText())
	assert.Equal(t, "stub-model", g.Model())
}
