package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
)

// Metrics holds all Prometheus metrics. Every collector lives on a private
// registry so that several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Navigation metrics
	Commits         *prometheus.CounterVec
	Discards        *prometheus.CounterVec
	Inconsistencies *prometheus.CounterVec
	EntriesPruned   prometheus.Counter

	// Tab metrics
	TabsActive prometheus.Gauge
	TabsTotal  prometheus.Counter

	// Renderer metrics
	Fetches       *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Session metrics
	SessionsSaved    prometheus.Counter
	SessionsRestored prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests     int64            `json:"total_requests"`
	TotalErrors       int64            `json:"total_errors"`
	ActiveTabs        int64            `json:"active_tabs"`
	ActiveConnections int64            `json:"active_connections"`
	Commits           map[string]int64 `json:"commits"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	UptimeSeconds     float64          `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a new metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),
		snapshot:  Snapshot{Commits: make(map[string]int64)},

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framenav_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framenav_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framenav_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		Commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_navigation_commits_total",
				Help: "Renderer commits by classification",
			},
			[]string{"type"},
		),
		Discards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_navigation_pending_discards_total",
				Help: "Pending entries dropped without committing",
			},
			[]string{"reason"},
		),
		Inconsistencies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_navigation_inconsistencies_total",
				Help: "Renderer reports that contradicted browser state",
			},
			[]string{"kind"},
		),
		EntriesPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "framenav_navigation_entries_pruned_total",
				Help: "Entries removed from back/forward lists",
			},
		),

		TabsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framenav_tabs_active",
				Help: "Number of open tabs",
			},
		),
		TabsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "framenav_tabs_total",
				Help: "Total number of tabs created",
			},
		),

		Fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_renderer_fetches_total",
				Help: "Documents fetched by the loopback renderer",
			},
			[]string{"scheme", "outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framenav_renderer_fetch_duration_seconds",
				Help:    "Document fetch duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"scheme"},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framenav_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		SessionsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "framenav_sessions_saved_total",
				Help: "Total number of session snapshots saved",
			},
		),
		SessionsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "framenav_sessions_restored_total",
				Help: "Total number of session snapshots restored",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "framenav_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framenav_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "framenav_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordFetch records one loopback renderer document fetch
func (m *Metrics) RecordFetch(scheme, outcome string, duration time.Duration) {
	m.Fetches.WithLabelValues(scheme, outcome).Inc()
	m.FetchDuration.WithLabelValues(scheme).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetTabsActive sets the number of open tabs
func (m *Metrics) SetTabsActive(count int) {
	m.TabsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveTabs = int64(count)
	m.mu.Unlock()
}

// IncTabsTotal increments the total tabs counter
func (m *Metrics) IncTabsTotal() {
	m.TabsTotal.Inc()
}

// IncSessionsSaved increments the sessions saved counter
func (m *Metrics) IncSessionsSaved() {
	m.SessionsSaved.Inc()
}

// IncSessionsRestored increments the sessions restored counter
func (m *Metrics) IncSessionsRestored() {
	m.SessionsRestored.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns a copy of the current values for the JSON API
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.snapshot
	out.Commits = make(map[string]int64, len(m.snapshot.Commits))
	for k, v := range m.snapshot.Commits {
		out.Commits[k] = v
	}
	if out.TotalRequests > 0 {
		out.AvgLatencyMs = out.totalDuration / float64(out.TotalRequests) * 1000
	}
	out.UptimeSeconds = time.Since(m.startTime).Seconds()
	return out
}

// Navigation adapts the collector to navigation.Metrics
func (m *Metrics) Navigation() navigation.Metrics {
	return navigationMetrics{m}
}

type navigationMetrics struct {
	m *Metrics
}

func (n navigationMetrics) RecordCommit(t navigation.NavigationType) {
	n.m.Commits.WithLabelValues(t.String()).Inc()
	n.m.mu.Lock()
	n.m.snapshot.Commits[t.String()]++
	n.m.mu.Unlock()
}

func (n navigationMetrics) RecordPruned(count int) {
	n.m.EntriesPruned.Add(float64(count))
}

func (n navigationMetrics) RecordDiscard(reason string) {
	n.m.Discards.WithLabelValues(reason).Inc()
}

func (n navigationMetrics) RecordInconsistency(kind string) {
	n.m.Inconsistencies.WithLabelValues(kind).Inc()
}
