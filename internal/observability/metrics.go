// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Reconciliation metrics
	ReconcileRunsTotal    *prometheus.CounterVec
	ReconcileDuration     prometheus.Histogram
	BotsReconciled        *prometheus.CounterVec
	PartialAggregates     prometheus.Counter
	OutcomesProcessed     *prometheus.CounterVec
	SourceLoadErrors      *prometheus.CounterVec
	AggregateWriteRetries prometheus.Counter
	SnapshotsWritten      prometheus.Counter

	// Risk config metrics
	RiskConfigsValidated prometheus.Counter
	RiskKeysRepaired     prometheus.Counter

	// Health metrics
	LastSuccessfulReconcile prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bot_reconciler"
	}

	return &Metrics{
		// Reconciliation metrics
		ReconcileRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of reconcile requests by status",
		}, []string{"status"}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Reconcile request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		BotsReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "bots_total",
			Help:      "Total number of bots reconciled by outcome",
		}, []string{"outcome"}),
		PartialAggregates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "partial_aggregates_total",
			Help:      "Total number of aggregates degraded by a failed record source",
		}),
		OutcomesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "outcomes_processed_total",
			Help:      "Total number of normalized outcomes processed by source",
		}, []string{"source"}),
		SourceLoadErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "source_load_errors_total",
			Help:      "Total number of record source load failures by source",
		}, []string{"source"}),
		AggregateWriteRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "aggregate_write_retries_total",
			Help:      "Total number of aggregate writes retried with the core column subset",
		}),
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "snapshots_written_total",
			Help:      "Total number of aggregate snapshots appended",
		}),

		// Risk config metrics
		RiskConfigsValidated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "riskcfg",
			Name:      "configs_validated_total",
			Help:      "Total number of risk configurations validated",
		}),
		RiskKeysRepaired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "riskcfg",
			Name:      "keys_repaired_total",
			Help:      "Total number of risk configuration keys repaired or ignored",
		}),

		// Health metrics
		LastSuccessfulReconcile: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_reconcile_timestamp",
			Help:      "Unix timestamp of last fully successful reconcile",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")
