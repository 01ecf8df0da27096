// Package metrics exposes ledger and HTTP metrics on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Metrics implements ports.LedgerMetrics.
type Metrics struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	totalSupply prometheus.Gauge

	httpRequests *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "number of transfer and mint calls by outcome",
		}, []string{"operation", "outcome"}),
		totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_supply",
			Help:      "current total supply in base units",
		}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		m.registry.Register(m.operations),
		m.registry.Register(m.totalSupply),
		m.registry.Register(m.httpRequests),
	)
	return m, errs.Err
}

// ObserveOperation counts one transfer or mint.
func (m *Metrics) ObserveOperation(operation string, accepted bool) {
	outcome := "declined"
	if accepted {
		outcome = "accepted"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// SetTotalSupply records the supply. Values above 2^53 lose precision.
func (m *Metrics) SetTotalSupply(supply uint64) {
	m.totalSupply.Set(float64(supply))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
