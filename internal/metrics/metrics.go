// Package metrics collects Prometheus metrics for a linkcheck run and
// writes them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quietwire/linkcheck/internal/model"
)

const namespace = "linkcheck"

// Metrics holds the Prometheus collectors of one run. Each Metrics owns
// its registry so that runs and tests never share counters.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	FindingsTotal   *prometheus.CounterVec
	Documents       prometheus.Gauge
	RunDuration     prometheus.Gauge
	LastRun         prometheus.Gauge
}

// New creates a Metrics with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests sent while checking external links.",
		}, []string{"method", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests sent while checking external links.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"method"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "External link cache lookups by result.",
		}, []string{"result"}),
		FindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings of the last run by status and link type.",
		}, []string{"status", "link_type"}),
		Documents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Documents processed by the last run.",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one HTTP request. A code of zero means no response
// was received, in which case reason names the transport failure.
func (m *Metrics) ObserveRequest(method string, code int, reason string, elapsed time.Duration) {
	label := reason
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.RequestsTotal.WithLabelValues(method, label).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveResult records the findings and timing of a finished run.
func (m *Metrics) ObserveResult(result *model.Result) {
	for _, f := range result.Findings {
		m.FindingsTotal.WithLabelValues(f.Status.String(), f.LinkType.String()).Inc()
	}
	m.Documents.Set(float64(result.Summary.Documents))
	m.RunDuration.Set(result.Duration.Seconds())
	m.LastRun.Set(float64(result.StartedAt.Unix()))
}

// WriteToTextfile writes every metric to path atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
