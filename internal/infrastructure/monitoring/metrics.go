package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionRemovals *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
	SweepEvicted    prometheus.Counter

	// Turn metrics
	Turns              *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	CollaboratorErrors *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	ActiveSessions int64
	TurnsAnswered  int64
	TurnsFailed    int64
}

// NewMetrics creates a collector registered against a fresh registry, so
// several instances can coexist in tests.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry registers all metrics against reg, plus the Go
// runtime and process collectors.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echochat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echochat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echochat_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echochat_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "echochat_sessions_active",
				Help: "Number of live sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "echochat_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionRemovals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echochat_sessions_removed_total",
				Help: "Total number of sessions removed, by reason",
			},
			[]string{"reason"},
		),
		SweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "echochat_reaper_sweep_duration_seconds",
				Help:    "Duration of one reaper sweep",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		SweepEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "echochat_reaper_evicted_total",
				Help: "Total number of sessions evicted by the reaper",
			},
		),

		// Turn metrics
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echochat_turns_total",
				Help: "Total number of chat turns, by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "echochat_turn_duration_seconds",
				Help:    "Chat turn duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),
		CollaboratorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echochat_collaborator_errors_total",
				Help: "Total number of retriever and model failures",
			},
			[]string{"collaborator"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "echochat_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echochat_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "echochat_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SessionCreated counts a new session
func (m *Metrics) SessionCreated() {
	m.SessionsCreated.Inc()
}

// SessionsRemoved counts removed sessions by reason
func (m *Metrics) SessionsRemoved(reason string, n int) {
	m.SessionRemovals.WithLabelValues(reason).Add(float64(n))
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// ObserveSweep records one reaper cycle
func (m *Metrics) ObserveSweep(evicted int, duration time.Duration) {
	m.SweepDuration.Observe(duration.Seconds())
	m.SweepEvicted.Add(float64(evicted))
}

// ObserveTurn records a finished chat turn
func (m *Metrics) ObserveTurn(outcome string, duration time.Duration) {
	m.Turns.WithLabelValues(outcome).Inc()
	m.TurnDuration.WithLabelValues(outcome).Observe(duration.Seconds())

	m.mu.Lock()
	switch outcome {
	case "answered":
		m.snapshot.TurnsAnswered++
	case "failed":
		m.snapshot.TurnsFailed++
	}
	m.mu.Unlock()
}

// CollaboratorFailed counts a retriever or model failure
func (m *Metrics) CollaboratorFailed(collaborator string) {
	m.CollaboratorErrors.WithLabelValues(collaborator).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction string) {
	m.WSMessages.WithLabelValues(direction).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns a copy of the tracked values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
