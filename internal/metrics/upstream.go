package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream collaborator Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchagent",
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream collaborator calls",
		},
		[]string{"upstream", "status"}, // "ok" / "unavailable" / "rejected" / "timeout" / "circuit_open"
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchagent",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream collaborator call duration in seconds",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 5},
		},
		[]string{"upstream"},
	)

	UpstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchagent",
			Name:      "upstream_retries_total",
			Help:      "Total number of upstream call retries",
		},
		[]string{"upstream"},
	)

	AnswerCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchagent",
			Name:      "answer_cache_total",
			Help:      "Retrieval answer cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)
)

var upstreamMetricsRegistered bool

// RegisterUpstreamMetrics registers Prometheus upstream metrics. Must be called once from main.
func RegisterUpstreamMetrics() {
	if upstreamMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(UpstreamRetriesTotal)
	prometheus.MustRegister(AnswerCacheTotal)
	upstreamMetricsRegistered = true
}
