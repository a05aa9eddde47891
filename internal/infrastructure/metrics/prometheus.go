package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/asset-registry/internal/application/port"
)

const namespace = "asset_registry"

// Collector owns the service's Prometheus series on its own registry
type Collector struct {
	registry *prometheus.Registry

	transitionsTotal    *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector registers all series on a fresh registry, together with the
// Go runtime and process collectors
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Workflow transitions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveTransition counts one transition attempt
func (c *Collector) ObserveTransition(action, outcome string) {
	c.transitionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordHTTPRequest records an HTTP request by route template and status class
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, durationSeconds float64) {
	c.httpRequestsTotal.WithLabelValues(method, route, statusClass(statusCode)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// Handler returns the metrics endpoint for this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Verify interface compliance
var _ port.TransitionMetrics = (*Collector)(nil)
