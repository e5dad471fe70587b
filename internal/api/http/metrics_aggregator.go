package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/resilience"
)

// MetricsAggregator reports collector values alongside live component state
type MetricsAggregator struct {
	metrics  *monitoring.Metrics
	tabs     *tab.Manager
	breakers []*resilience.Breaker
}

// NewMetricsAggregator creates an aggregator. Breakers are reported by name.
func NewMetricsAggregator(metrics *monitoring.Metrics, tabs *tab.Manager, breakers ...*resilience.Breaker) *MetricsAggregator {
	return &MetricsAggregator{
		metrics:  metrics,
		tabs:     tabs,
		breakers: breakers,
	}
}

// MetricsSnapshot represents a snapshot of all system metrics
type MetricsSnapshot struct {
	Timestamp time.Time                `json:"timestamp"`
	Backend   monitoring.Snapshot      `json:"backend"`
	Tabs      TabsSummary              `json:"tabs"`
	Breakers  map[string]BreakerStatus `json:"breakers,omitempty"`
	Summary   MetricsSummary           `json:"summary"`
}

// TabsSummary describes the open tabs
type TabsSummary struct {
	Open        int `json:"open"`
	Loading     int `json:"loading"`
	Entries     int `json:"entries"`
	Subscribers int `json:"subscribers"`
}

// BreakerStatus is the state of one circuit breaker
type BreakerStatus struct {
	State               resilience.State `json:"state"`
	Requests            uint32           `json:"requests"`
	ConsecutiveFailures uint32           `json:"consecutive_failures"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics returns all metrics as JSON
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, ma.Collect())
}

// Collect builds a snapshot
func (ma *MetricsAggregator) Collect() MetricsSnapshot {
	backend := ma.metrics.Snapshot()
	out := MetricsSnapshot{
		Timestamp: time.Now(),
		Backend:   backend,
		Summary:   summarize(backend),
	}

	if ma.tabs != nil {
		for _, info := range ma.tabs.List() {
			out.Tabs.Open++
			out.Tabs.Entries += info.Entries
			if info.Loading {
				out.Tabs.Loading++
			}
		}
		out.Tabs.Subscribers = ma.tabs.Hub().Subscribers()
	}

	if len(ma.breakers) > 0 {
		out.Breakers = make(map[string]BreakerStatus, len(ma.breakers))
		for _, b := range ma.breakers {
			counts := b.Counts()
			out.Breakers[b.Name()] = BreakerStatus{
				State:               b.State(),
				Requests:            counts.Requests,
				ConsecutiveFailures: counts.ConsecutiveFailures,
			}
		}
	}
	return out
}

func summarize(s monitoring.Snapshot) MetricsSummary {
	var errorRate float64
	if s.TotalRequests > 0 {
		errorRate = float64(s.TotalErrors) / float64(s.TotalRequests)
	}
	return MetricsSummary{
		TotalRequests:     s.TotalRequests,
		AverageLatencyMs:  s.AvgLatencyMs,
		ErrorRate:         errorRate,
		ActiveConnections: s.ActiveConnections,
		UptimeSeconds:     s.UptimeSeconds,
	}
}
