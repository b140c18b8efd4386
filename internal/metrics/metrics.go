// Package metrics exports workflow engine and cache metrics to Prometheus.
package metrics

import (
	"context"
	"time"
	"yardops/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the engine's MetricsRecorder and tracks cache sizes.
type Recorder struct {
	operations   *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheRecords *prometheus.GaugeVec
	snapshots    *prometheus.CounterVec
	publishFails prometheus.Counter
}

// New registers the yard metrics on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yardops_operations_total",
			Help: "Total number of workflow operations by outcome.",
		}, []string{"operation", "outcome"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yardops_operation_errors_total",
			Help: "Total number of errors encountered during specific operations.",
		}, []string{"operation"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yardops_operation_duration_seconds",
			Help:    "Workflow operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheRecords: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "yardops_cache_records",
			Help: "Current number of records in the state cache per collection.",
		}, []string{"collection"}),
		snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "yardops_cache_snapshots_total",
			Help: "Total number of snapshots applied to the state cache.",
		}, []string{"collection"}),
		publishFails: f.NewCounter(prometheus.CounterOpts{
			Name: "yardops_event_publish_failures_total",
			Help: "Total number of workflow events that could not be published.",
		}),
	}
}

// Observe records one engine operation.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	outcome := "success"
	if !success {
		outcome = "error"
		r.errors.WithLabelValues(operation).Inc()
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// CacheApplied records a snapshot applied to the cache with n records.
func (r *Recorder) CacheApplied(kind domain.EntityKind, n int) {
	r.cacheRecords.WithLabelValues(string(kind)).Set(float64(n))
	r.snapshots.WithLabelValues(string(kind)).Inc()
}

// PublishFailed counts an event that could not be delivered.
func (r *Recorder) PublishFailed() {
	r.publishFails.Inc()
}
