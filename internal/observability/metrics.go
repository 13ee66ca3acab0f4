package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog load results.
const (
	LoadOK    = "ok"
	LoadError = "error"
)

// Metrics holds Prometheus metrics for extraction runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Runs
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Coverage    prometheus.Histogram
	Warnings    *prometheus.CounterVec

	// Catalog cache
	CatalogLoadsTotal   *prometheus.CounterVec
	CatalogLoadDuration prometheus.Histogram
}

// NewMetrics creates metrics registered on a fresh registry.
//
// All metrics are prefixed with "proposal_".
//
// Metrics:
//   - proposal_runs_total{status} - Count of model runs by report status
//   - proposal_run_duration_seconds - Histogram of per-model run times
//   - proposal_coverage_ratio - Histogram of parameter coverage
//   - proposal_locator_warnings_total{code} - Count of locator warnings
//   - proposal_catalog_loads_total{result} - Count of catalog load attempts
//   - proposal_catalog_load_duration_seconds - Histogram of catalog load times
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proposal_runs_total",
				Help: "Total number of model runs by status",
			},
			[]string{"status"}, // "ok" or "error"
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proposal_run_duration_seconds",
				Help:    "Duration of a single model run in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
			},
		),

		Coverage: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proposal_coverage_ratio",
				Help:    "Fraction of template parameters resolved per model",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),

		Warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proposal_locator_warnings_total",
				Help: "Total number of locator warnings by code",
			},
			[]string{"code"},
		),

		CatalogLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proposal_catalog_loads_total",
				Help: "Total number of catalog load attempts by result",
			},
			[]string{"result"},
		),

		CatalogLoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proposal_catalog_load_duration_seconds",
				Help:    "Duration of catalog loads in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
		),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun records one finished model run.
// coverage is ignored for runs that produced no report.
func (m *Metrics) RecordRun(status string, coverage float64, hasReport bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	if hasReport {
		m.Coverage.Observe(coverage)
	}
}

// RecordWarning records one locator warning.
func (m *Metrics) RecordWarning(code string) {
	if m == nil {
		return
	}
	m.Warnings.WithLabelValues(code).Inc()
}

// RecordCatalogLoad records one catalog load attempt.
// Its signature matches catalog.LoadHook.
func (m *Metrics) RecordCatalogLoad(_ string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := LoadOK
	if err != nil {
		result = LoadError
	}
	m.CatalogLoadsTotal.WithLabelValues(result).Inc()
	m.CatalogLoadDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the current metric values in the text exposition format,
// for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
