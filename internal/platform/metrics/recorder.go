// Package metrics exposes ledger engine outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder counts and times ledger operations
type PrometheusRecorder struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	conflictRetry *prometheus.CounterVec
}

// NewPrometheusRecorder registers the ledger collectors on reg
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by outcome; outcome is success or an error kind",
			},
			[]string{"operation", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wallet_ledger",
				Name:      "operation_duration_seconds",
				Help:      "Time spent in a ledger operation including conflict retries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		conflictRetry: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wallet_ledger",
				Name:      "conflict_retries_total",
				Help:      "Operations retried after lock or version contention",
			},
			[]string{"operation"},
		),
	}
}

func (r *PrometheusRecorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *PrometheusRecorder) IncConflictRetry(operation string) {
	r.conflictRetry.WithLabelValues(operation).Inc()
}

// NoopRecorder discards everything
type NoopRecorder struct{}

func NewNoopRecorder() NoopRecorder { return NoopRecorder{} }

func (NoopRecorder) ObserveOperation(string, string, time.Duration) {}

func (NoopRecorder) IncConflictRetry(string) {}
