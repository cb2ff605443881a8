// Package metrics holds the service's Prometheus collectors on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "satquery"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec   // method, route, code
	httpDuration       *prometheus.HistogramVec // method, route
	queries            *prometheus.CounterVec   // species, mode, outcome
	evaluationDuration *prometheus.HistogramVec // mode
	mqttMessages       *prometheus.CounterVec   // direction, outcome
	speciesLoaded      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"method", "route", "code"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "saturation",
			Name:      "queries_total",
			Help:      "Saturation queries by species, independent variable and outcome",
		}, []string{"species", "mode", "outcome"}),

		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "saturation",
			Name:      "evaluation_duration_seconds",
			Help:      "Time to evaluate phase records and the chart dataset",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"mode"}),

		mqttMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "messages_total",
			Help:      "MQTT messages by direction (in, out) and outcome",
		}, []string{"direction", "outcome"}),

		speciesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "species",
			Help:      "Number of species loaded into the registry",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.queries,
		m.evaluationDuration,
		m.mqttMessages,
		m.speciesLoaded,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          m.registry,
	})
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveQuery records one saturation query. mode is "pressure" or
// "temperature"; outcome is "ok" or an error class.
func (m *Metrics) ObserveQuery(species, mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(species, mode, outcome).Inc()
	if outcome == "ok" {
		m.evaluationDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
}

func (m *Metrics) MQTTMessage(direction, outcome string) {
	if m == nil {
		return
	}
	m.mqttMessages.WithLabelValues(direction, outcome).Inc()
}

func (m *Metrics) SetSpeciesLoaded(n int) {
	if m == nil {
		return
	}
	m.speciesLoaded.Set(float64(n))
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
