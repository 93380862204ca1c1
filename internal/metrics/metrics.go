package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "acp"

type Metrics struct {
	Operations *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
	Upstream   *prometheus.CounterVec
	Requests   *prometheus.CounterVec
	Replays    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the checkout metrics on reg. A nil reg gets a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "operations_total",
			Help:      "Checkout operations by outcome.",
		}, []string{"operation", "outcome"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "operation_duration_ms",
			Help:      "Checkout operation latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"}),
		Upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to the commerce platform and payment processor.",
		}, []string{"system", "outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		Replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "idempotency",
			Name:      "replays_total",
			Help:      "Responses served from the idempotency cache.",
		}, []string{"operation"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Operations, m.LatencyMS, m.Upstream, m.Requests, m.Replays)
	return m
}

// ObserveOperation records one orchestrator call.
func (m *Metrics) ObserveOperation(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.LatencyMS.WithLabelValues(operation).Observe(float64(time.Since(started).Milliseconds()))
}

func (m *Metrics) ObserveUpstream(system, outcome string) {
	if m == nil {
		return
	}
	m.Upstream.WithLabelValues(system, outcome).Inc()
}

func (m *Metrics) ObserveReplay(operation string) {
	if m == nil {
		return
	}
	m.Replays.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveRequest(handler, status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
