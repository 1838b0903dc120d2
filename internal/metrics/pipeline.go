package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedlock"

// Classification pipeline Prometheus metrics.
var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Filter decisions by strategy, method and outcome",
		},
		[]string{"strategy", "method", "decision"},
	)

	ClassifierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_requests_total",
			Help:      "Total number of AI classifier requests",
		},
		[]string{"provider", "model", "status"},
	)

	ClassifierRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_request_duration_seconds",
			Help:      "AI classifier request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"provider", "model"},
	)

	ClassifierErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_errors_total",
			Help:      "Total AI classifier errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	ClassifierFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_fallback_total",
			Help:      "AI classifications replaced by the neutral score",
		},
	)

	ScoreCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_cache_total",
			Help:      "Classification cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	QuotaChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_checks_total",
			Help:      "AI quota checks by tier and outcome",
		},
		[]string{"tier", "result"}, // "allowed" / "rejected" / "store_error"
	)

	ReportEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_events_total",
			Help:      "Analytics events by outcome",
		},
		[]string{"result"}, // "written" / "dropped" / "failed"
	)

	MaintenanceRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_runs_total",
			Help:      "Maintenance job runs",
		},
		[]string{"job", "status"},
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers the classification pipeline metrics. Called once from main.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			DecisionsTotal,
			ClassifierRequestsTotal,
			ClassifierRequestDuration,
			ClassifierErrorsTotal,
			ClassifierFallbackTotal,
			ScoreCacheTotal,
			QuotaChecksTotal,
			ReportEventsTotal,
			MaintenanceRunsTotal,
		)
	})
}
