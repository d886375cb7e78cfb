package breaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 0 closed, 1 half-open, 2 open.
	stateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scholarly_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"circuit"},
	)

	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarly_circuit_breaker_rejected_total",
			Help: "Calls rejected without reaching the upstream",
		},
		[]string{"circuit"},
	)
)
