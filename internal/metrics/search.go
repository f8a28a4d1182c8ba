package metrics

import "github.com/prometheus/client_golang/prometheus"

// Orchestration Prometheus metrics.
var (
	BranchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchagent",
			Name:      "branch_outcomes_total",
			Help:      "Outcomes of the retrieval and personalization branches",
		},
		[]string{"branch", "outcome"}, // outcome: success / empty / failure / timeout / skipped
	)

	SafetyDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchagent",
			Name:      "safety_decisions_total",
			Help:      "Safety gate decisions",
		},
		[]string{"decision"}, // approved / filtered / refused / fail_closed
	)

	OrchestrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "searchagent",
			Name:      "orchestration_duration_seconds",
			Help:      "End-to-end search orchestration duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus orchestration metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(BranchOutcomesTotal)
	prometheus.MustRegister(SafetyDecisionsTotal)
	prometheus.MustRegister(OrchestrationDuration)
	searchMetricsRegistered = true
}
