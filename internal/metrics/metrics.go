// Package metrics provides Prometheus metrics for imports and the add-slab workflow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row outcomes.
const (
	RowAccepted = "accepted"
	RowRejected = "rejected"
)

// Group outcomes.
const (
	GroupCreated = "created"
	GroupUpdated = "updated"
	GroupFailed  = "failed"
)

// Metrics contains the inventory service's collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	importRowsTotal      *prometheus.CounterVec
	importGroupsTotal    *prometheus.CounterVec
	importDuration       *prometheus.HistogramVec
	importsActive        prometheus.Gauge
	duplicateResolutions *prometheus.CounterVec
	lowStockLevelsGauge  prometheus.Gauge
	previewTokens        prometheus.Gauge

	collectors []prometheus.Collector
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}
	m.initMetrics()

	if err := reg.Register(m); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.importRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabstock_import_rows_total",
			Help: "Import rows by outcome",
		},
		[]string{"outcome"}, // accepted, rejected
	)

	m.importGroupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabstock_import_groups_total",
			Help: "Import slab groups by outcome",
		},
		[]string{"outcome"}, // created, updated, failed
	)

	m.importDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slabstock_import_duration_seconds",
			Help:    "Time taken to preview or commit an import",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"mode"}, // preview, commit
	)

	m.importsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slabstock_imports_active",
		Help: "Imports currently holding a limiter slot",
	})

	m.duplicateResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabstock_duplicate_resolutions_total",
			Help: "Add-slab outcomes by action",
		},
		[]string{"action"}, // created, added, subtracted, needs_confirmation, rejected
	)

	m.lowStockLevelsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slabstock_low_stock_levels",
		Help: "Family/formulation pairs below the low-stock threshold at the last check",
	})

	m.previewTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slabstock_preview_tokens",
		Help: "Import previews waiting to be committed",
	})

	m.collectors = []prometheus.Collector{
		m.importRowsTotal,
		m.importGroupsTotal,
		m.importDuration,
		m.importsActive,
		m.duplicateResolutions,
		m.lowStockLevelsGauge,
		m.previewTokens,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// RecordRows counts import rows with the given outcome.
func (m *Metrics) RecordRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRowsTotal.WithLabelValues(outcome).Add(float64(n))
}

// RecordGroups counts import groups with the given outcome.
func (m *Metrics) RecordGroups(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importGroupsTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveImport records how long an import pass took.
func (m *Metrics) ObserveImport(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.importDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ImportStarted and ImportFinished track limiter occupancy.
func (m *Metrics) ImportStarted() {
	if m == nil {
		return
	}
	m.importsActive.Inc()
}

func (m *Metrics) ImportFinished() {
	if m == nil {
		return
	}
	m.importsActive.Dec()
}

// RecordResolution counts one add-slab outcome.
func (m *Metrics) RecordResolution(action string) {
	if m == nil {
		return
	}
	m.duplicateResolutions.WithLabelValues(action).Inc()
}

// SetLowStockLevels records the size of the last low-stock report.
func (m *Metrics) SetLowStockLevels(n int) {
	if m == nil {
		return
	}
	m.lowStockLevelsGauge.Set(float64(n))
}

// SetPreviewTokens records how many previews are cached.
func (m *Metrics) SetPreviewTokens(n int) {
	if m == nil {
		return
	}
	m.previewTokens.Set(float64(n))
}
