package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 📊 Metrics holds the counters exported by sortrc
type Metrics struct {
	registry *prometheus.Registry

	routeTotal     *prometheus.CounterVec
	operationTotal *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
}

// 🏭 New creates metrics registered on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	routeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sortrc",
			Name:      "route_total",
			Help:      "Auto-route decisions by category and outcome.",
		},
		[]string{"category", "outcome"},
	)
	operationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sortrc",
			Name:      "file_operation_total",
			Help:      "File operations by operation and status.",
		},
		[]string{"op", "status"},
	)
	sweepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sortrc",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of auto-route sweeps in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	registry.MustRegister(routeTotal, operationTotal, sweepDuration)

	return &Metrics{
		registry:       registry,
		routeTotal:     routeTotal,
		operationTotal: operationTotal,
		sweepDuration:  sweepDuration,
	}
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRoute counts one auto-route decision. Safe on a nil receiver.
func (m *Metrics) ObserveRoute(category, outcome string) {
	if m == nil {
		return
	}
	m.routeTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveOperation counts one file operation. Safe on a nil receiver.
func (m *Metrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationTotal.WithLabelValues(op, status).Inc()
}

// ObserveSweep records the duration of one sweep. Safe on a nil receiver.
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}
