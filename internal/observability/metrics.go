// Package observability exposes Prometheus metrics for pipeline runs.
package observability

import (
	"time"

	"github.com/huangsam/riskmap/schema"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "riskmap"

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	PipelineRuns     prometheus.Counter
	PipelineDuration prometheus.Histogram

	// Join coverage of the most recent run.
	JoinedRows         prometheus.Gauge
	UnmatchedDistricts prometheus.Gauge
	MissingGeometries  prometheus.Gauge

	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,stale,error}
	RunsRecorded prometheus.Counter
}

// NewMetrics creates all pipeline metrics and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total pipeline computations, excluding cache hits.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a full merge, normalize, composite and join cycle.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		JoinedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "joined_rows",
			Help:      "Geometry rows in the last joined result.",
		}),
		UnmatchedDistricts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmatched_districts",
			Help:      "Districts with metrics but no geometry in the last joined result.",
		}),
		MissingGeometries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_metric_geometries",
			Help:      "Geometry districts with no metrics in the last joined result.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome.",
		}, []string{"result"}),
		RunsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_recorded_total",
			Help:      "Runs written to the run history store.",
		}),
	}

	m.Registry.MustRegister(
		m.PipelineRuns,
		m.PipelineDuration,
		m.JoinedRows,
		m.UnmatchedDistricts,
		m.MissingGeometries,
		m.CacheLookups,
		m.RunsRecorded,
	)
	return m
}

// ObservePipeline records one computed result.
func (m *Metrics) ObservePipeline(elapsed time.Duration, result *schema.JoinedResult) {
	if m == nil {
		return
	}
	m.PipelineRuns.Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
	m.ObserveResult(result)
}

// ObserveResult sets the join coverage gauges from result.
func (m *Metrics) ObserveResult(result *schema.JoinedResult) {
	if m == nil || result == nil {
		return
	}
	m.JoinedRows.Set(float64(len(result.Rows)))
	m.UnmatchedDistricts.Set(float64(len(result.Unmatched)))
	m.MissingGeometries.Set(float64(len(result.Missing)))
}

// ObserveCache counts a cache lookup outcome.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveRunRecorded counts a run persisted to history.
func (m *Metrics) ObserveRunRecorded() {
	if m == nil {
		return
	}
	m.RunsRecorded.Inc()
}

// WriteTextfile writes the registry in the Prometheus text exposition format,
// as read by the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
