package http

import (
	"errors"

	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper. A nil collector records
// nothing.
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackTabOperation tracks tab-related operations
func (hm *HandlerMetrics) TrackTabOperation(operation string) func(error) {
	return hm.track("tab_manager", operation)
}

// TrackFrameOperation tracks script-driven frame operations
func (hm *HandlerMetrics) TrackFrameOperation(operation string) func(error) {
	return hm.track("renderer", operation)
}

// TrackSessionOperation tracks session operations
func (hm *HandlerMetrics) TrackSessionOperation(operation string) func(error) {
	return hm.track("session_manager", operation)
}

func (hm *HandlerMetrics) track(service, operation string) func(error) {
	if hm == nil || hm.metrics == nil {
		return func(error) {}
	}
	timer := monitoring.NewTimer(hm.metrics, service, operation)
	return func(err error) {
		if err == nil {
			timer.Stop("success")
			return
		}
		hm.metrics.RecordServiceError(service, operation, errorType(err))
		timer.Stop("error")
	}
}

// errorType is a low-cardinality label for err
func errorType(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		return se.kind
	}
	return classify(err).kind
}
