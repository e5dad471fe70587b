package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records one observation per API request. Requests are
// labeled by route pattern so tab and session IDs stay out of the label
// set.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqSize := max(c.Request.ContentLength, 0)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			reqSize,
			int64(max(c.Writer.Size(), 0)),
		)
	}
}

// Timer times one call into a backend component such as the tab manager
// or the session store
type Timer struct {
	metrics   *Metrics
	component string
	operation string
	start     time.Time
}

// NewTimer starts timing operation on component
func NewTimer(metrics *Metrics, component, operation string) *Timer {
	return &Timer{metrics: metrics, component: component, operation: operation, start: time.Now()}
}

// Stop records the call with its outcome. A nil Timer records nothing.
func (t *Timer) Stop(status string) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.RecordServiceCall(t.component, t.operation, status, time.Since(t.start))
}
