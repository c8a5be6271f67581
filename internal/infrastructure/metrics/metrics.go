// Package metrics exposes Prometheus instruments for derivations, HTTP
// traffic and the connection pool.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tradeflow/internal/domain/derivation"
	"tradeflow/internal/domain/documents"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const namespace = "tradeflow"

// Derivation counts derivation outcomes. It implements derivation.Observer.
type Derivation struct {
	derived     *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	autoCreated *prometheus.CounterVec
	failed      *prometheus.CounterVec
}

var _ derivation.Observer = (*Derivation)(nil)

// NewDerivation registers derivation counters on registerer.
func NewDerivation(registerer prometheus.Registerer) *Derivation {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Derivation{
		derived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "documents_total",
			Help:      "Derived documents persisted, by kind.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "lines_skipped_total",
			Help:      "Upstream lines left out of derived documents, by kind and reason.",
		}, []string{"kind", "reason"}),
		autoCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "items_auto_created_total",
			Help:      "Catalog items created while resolving lines, by kind.",
		}, []string{"kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "failures_total",
			Help:      "Derivations aborted, by kind and error code.",
		}, []string{"kind", "code"}),
	}

	registerer.MustRegister(m.derived, m.skipped, m.autoCreated, m.failed)
	return m
}

func (m *Derivation) Derived(kind documents.Kind) {
	m.derived.WithLabelValues(string(kind)).Inc()
}

func (m *Derivation) LineSkipped(kind documents.Kind, reason string) {
	m.skipped.WithLabelValues(string(kind), reason).Inc()
}

func (m *Derivation) ItemsAutoCreated(kind documents.Kind, n int) {
	if n <= 0 {
		return
	}
	m.autoCreated.WithLabelValues(string(kind)).Add(float64(n))
}

func (m *Derivation) Failed(kind documents.Kind, code string) {
	m.failed.WithLabelValues(string(kind), code).Inc()
}

// HTTP records request counts and latencies.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP registers HTTP instruments on registerer.
func NewHTTP(registerer prometheus.Registerer) *HTTP {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	registerer.MustRegister(m.requests, m.duration)
	return m
}

// Observe records one finished request.
func (m *HTTP) Observe(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RegisterPoolStats exposes connection pool gauges sampled at scrape time.
func RegisterPoolStats(registerer prometheus.Registerer, stats func() postgres.PoolStats) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	gauge := func(name, help string, value func(postgres.PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(stats()) })
	}

	registerer.MustRegister(
		gauge("total_conns", "Open connections.", func(s postgres.PoolStats) float64 { return float64(s.TotalConns) }),
		gauge("acquired_conns", "Connections in use.", func(s postgres.PoolStats) float64 { return float64(s.AcquiredConns) }),
		gauge("idle_conns", "Idle connections.", func(s postgres.PoolStats) float64 { return float64(s.IdleConns) }),
		gauge("max_conns", "Configured connection limit.", func(s postgres.PoolStats) float64 { return float64(s.MaxConns) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      "acquire_wait_seconds_total",
			Help:      "Cumulative time spent waiting for a connection.",
		}, func() float64 { return stats().AcquireDuration.Seconds() }),
	)
}
