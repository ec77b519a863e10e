// Package metrics exposes Prometheus collectors for the connector layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the application collectors behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	probeDuration *prometheus.HistogramVec
	probeResults  *prometheus.CounterVec
	registrySize  prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediadeck",
			Name:      "probe_duration_seconds",
			Help:      "Wall-clock duration of health probes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		probeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediadeck",
			Name:      "probe_results_total",
			Help:      "Health probe outcomes by service kind and classified status.",
		}, []string{"kind", "status"}),
		registrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediadeck",
			Name:      "registry_connectors",
			Help:      "Number of live connectors in the registry.",
		}),
	}

	m.registry.MustRegister(
		m.probeDuration,
		m.probeResults,
		m.registrySize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveProbe records one completed health probe.
func (m *Metrics) ObserveProbe(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.probeDuration.WithLabelValues(kind).Observe(seconds)
	m.probeResults.WithLabelValues(kind, status).Inc()
}

// SetRegistrySize records the current live connector count.
func (m *Metrics) SetRegistrySize(n int) {
	if m == nil {
		return
	}
	m.registrySize.Set(float64(n))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
