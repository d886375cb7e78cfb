package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarly_generation_requests_total",
			Help: "Total number of text-generation calls",
		},
		[]string{"provider", "outcome"},
	)

	// Generation calls are slow; buckets run from 100ms to 2m.
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholarly_generation_duration_seconds",
			Help:    "Text-generation call duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	generationPromptWords = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholarly_generation_prompt_words",
			Help:    "Words per prompt submitted for generation",
			Buckets: prometheus.ExponentialBuckets(50, 2, 8),
		},
		[]string{"provider"},
	)
)
