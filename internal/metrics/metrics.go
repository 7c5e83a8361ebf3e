// Package metrics exposes Prometheus instrumentation for the allocator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the allocator's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	PreviewsCreated      prometheus.Counter
	PreviewsFinalized    prometheus.Counter
	PreviewsExpired      prometheus.Counter
	AssignmentsPersisted prometheus.Counter
	TasksUnassigned      prometheus.Counter
	AnomaliesDetected    *prometheus.CounterVec
	ScoringFallbacks     prometheus.Counter
	AssignDuration       prometheus.Histogram
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PreviewsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocator_previews_created_total",
			Help: "Number of assignment previews created.",
		}),
		PreviewsFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocator_previews_finalized_total",
			Help: "Number of previews finalized and persisted.",
		}),
		PreviewsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocator_previews_expired_total",
			Help: "Number of previews discarded by TTL expiry.",
		}),
		AssignmentsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocator_assignments_persisted_total",
			Help: "Number of assignments written to storage.",
		}),
		TasksUnassigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocator_tasks_unassigned_total",
			Help: "Number of tasks that could not be assigned in a batch.",
		}),
		AnomaliesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allocator_anomalies_detected_total",
			Help: "Number of anomalies found per scan, by type.",
		}, []string{"type"}),
		ScoringFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "allocator_scoring_fallbacks_total",
			Help: "Number of scoring calls that fell back to the heuristic.",
		}),
		AssignDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "allocator_assign_duration_seconds",
			Help:    "Wall time of assignment batch runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
