package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	renders     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	renderTime  prometheus.Histogram
	uploadBytes prometheus.Histogram
	sessions    prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dairyreport",
			Name:      "renders_total",
			Help:      "Reports rendered, by kind of sheet.",
		}, []string{"sheet_kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dairyreport",
			Name:      "failures_total",
			Help:      "Failed uploads and renders, by error kind.",
		}, []string{"kind"}),
		renderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dairyreport",
			Name:      "render_seconds",
			Help:      "Time to run the report pipeline and draw its sections.",
			Buckets:   prometheus.DefBuckets,
		}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dairyreport",
			Name:      "upload_bytes",
			Help:      "Size of uploaded workbooks.",
			Buckets:   prometheus.ExponentialBuckets(4<<10, 4, 8),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dairyreport",
			Name:      "sessions",
			Help:      "Live upload sessions.",
		}),
	}
	m.registry.MustRegister(m.renders, m.failures, m.renderTime, m.uploadBytes, m.sessions)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
