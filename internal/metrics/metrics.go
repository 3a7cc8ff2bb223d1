// Package metrics exposes solve and request telemetry as Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zkorum/agora/internal/adaptive"
	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/scaling"
)

const namespace = "agora_math"

// Compile-time interface check.
var _ adaptive.Recorder = (*Metrics)(nil)

// Metrics holds every collector of the service. Create one per registry.
type Metrics struct {
	solves         *prometheus.CounterVec
	engineCalls    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	solveDuration  prometheus.Histogram
	finalImbalance prometheus.Histogram

	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
	cache    *prometheus.CounterVec

	reg prometheus.Registerer
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_total",
				Help:      "Count of finished solves by outcome.",
			},
			[]string{"outcome"},
		),
		engineCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_calls_total",
				Help:      "Count of clustering engine invocations by constraint kind.",
			},
			[]string{"constraint"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scaling_decisions_total",
				Help:      "Count of scaling policy decisions by action and matching rule.",
			},
			[]string{"action", "rule"},
		),
		solveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_duration_seconds",
				Help:      "Wall time of a solve including every engine call.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 240},
			},
		),
		finalImbalance: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "final_imbalance",
				Help:      "Imbalance of the result returned by a successful solve.",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1, 1.5, 2},
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Count of /math requests by HTTP status code.",
			},
			[]string{"code"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "solves_in_flight",
				Help:      "Number of solves currently holding a worker slot.",
			},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "result_cache_lookups_total",
				Help:      "Count of result cache lookups by result.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.solves,
		m.engineCalls,
		m.decisions,
		m.solveDuration,
		m.finalImbalance,
		m.requests,
		m.inFlight,
		m.cache,
	)
	return m
}

// EngineCall records one engine invocation.
func (m *Metrics) EngineCall(c engine.Constraint) {
	m.engineCalls.WithLabelValues(c.Kind()).Inc()
}

// Decision records a scaling policy decision.
func (m *Metrics) Decision(d scaling.Decision) {
	m.decisions.WithLabelValues(d.Action.String(), strconv.Itoa(d.Rule)).Inc()
}

// Solved records a finished solve. The imbalance is only observed for
// solves that returned clustered data.
func (m *Metrics) Solved(o adaptive.Outcome, imbalance float64, elapsed time.Duration) {
	m.solves.WithLabelValues(string(o)).Inc()
	m.solveDuration.Observe(elapsed.Seconds())
	if o != adaptive.OutcomeError && o != adaptive.OutcomeEmpty {
		m.finalImbalance.Observe(imbalance)
	}
}

// Request records a finished /math request.
func (m *Metrics) Request(code int) {
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

// TrackInFlight marks a solve as running and returns the function that
// marks it done.
func (m *Metrics) TrackInFlight() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// CacheLookup records a result cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// WatchCache exports the result cache size, read from size at scrape time.
// Call it at most once per Metrics.
func (m *Metrics) WatchCache(size func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_cache_entries",
			Help:      "Number of solve results held by the result cache.",
		},
		func() float64 { return float64(size()) },
	))
}
