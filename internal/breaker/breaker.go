// Package breaker guards upstream calls with github.com/sony/gobreaker so a
// dead service fails fast instead of tying up request goroutines.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the tuning for one breaker.
type Config struct {
	// Name appears in logs and metrics.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker, e.g. 0.6.
	FailureThreshold float64

	// MinRequests must be reached before the ratio is considered.
	MinRequests uint32
}

// DefaultConfig returns settings suited to text-generation APIs.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// SearchConfig returns settings for the academic search index.
func SearchConfig() Config {
	return Config{
		Name:             "openalex",
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      5,
	}
}

// ErrOpen is returned without calling the upstream while the breaker is open
// or the half-open trial budget is spent.
var ErrOpen = errors.New("circuit breaker open")

// Breaker wraps a gobreaker.CircuitBreaker.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New creates a breaker. Failures are classified by isFailure; a nil
// isFailure counts every non-nil error. Errors returned after the caller's
// own context ended are never counted, see Do.
func New(cfg Config, isFailure func(error) bool, log *slog.Logger) *Breaker {
	if log == nil {
		log = slog.Default()
	}
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				"circuit", name,
				"from", from.String(),
				"to", to.String())
			stateGauge.WithLabelValues(name).Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			var gone *callerGone
			if err == nil || errors.As(err, &gone) {
				return true
			}
			return !isFailure(err)
		},
	}
	stateGauge.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), name: cfg.Name}
}

// callerGone marks an error that arrived after the caller's context ended.
type callerGone struct{ err error }

func (e *callerGone) Error() string { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

// Do runs fn through the breaker. A failure is not counted when ctx is
// already done by the time fn returns; a client-side timeout with a live ctx
// still counts against the upstream.
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		err := fn()
		if err != nil && ctx.Err() != nil {
			return nil, &callerGone{err: err}
		}
		return nil, err
	})
	var gone *callerGone
	if errors.As(err, &gone) {
		return gone.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		rejectedTotal.WithLabelValues(b.name).Inc()
		return ErrOpen
	}
	return err
}

// State returns the current gobreaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen reports whether calls are currently rejected.
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}
