package summarize

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarly_summarize_runs_total",
			Help: "Summarization pipeline runs by result",
		},
		[]string{"result"},
	)

	pipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholarly_summarize_duration_seconds",
			Help:    "End-to-end summarization duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	sectionsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scholarly_sections_extracted",
			Help:    "Non-empty sections per document",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		},
	)

	sectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarly_sections_total",
			Help: "Sections processed by outcome (summarized, empty, failed)",
		},
		[]string{"outcome"},
	)

	sectionsTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholarly_sections_truncated_total",
			Help: "Sections cut to the word ceiling before prompting",
		},
	)

	jobsQueued = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scholarly_summarize_jobs_queued",
			Help: "Summarization jobs waiting for a worker",
		},
	)
)
