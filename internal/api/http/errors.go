package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/framenav/internal/domain/frametree"
	"github.com/GriffinCanCode/framenav/internal/domain/session"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/framenav/internal/renderer/loopback"
)

// statusError carries the HTTP status an error maps to
type statusError struct {
	code int
	kind string
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &statusError{code: http.StatusBadRequest, kind: "bad_request", err: err}
}

var errorStatus = []struct {
	target error
	code   int
	kind   string
}{
	{tab.ErrTabNotFound, http.StatusNotFound, "not_found"},
	{tab.ErrFrameNotFound, http.StatusNotFound, "not_found"},
	{frametree.ErrNodeNotFound, http.StatusNotFound, "not_found"},
	{session.ErrSessionNotFound, http.StatusNotFound, "not_found"},
	{tab.ErrTabClosed, http.StatusGone, "closed"},
	{tab.ErrTooManyTabs, http.StatusConflict, "limit"},
	{tab.ErrProcessMismatch, http.StatusForbidden, "process"},
	{tab.ErrBadProcess, http.StatusForbidden, "process"},
	{loopback.ErrCrossOrigin, http.StatusForbidden, "cross_origin"},
	{loopback.ErrNoDocument, http.StatusConflict, "no_document"},
	{loopback.ErrInvalidURL, http.StatusBadRequest, "bad_request"},
	{frametree.ErrRootRemoval, http.StatusBadRequest, "bad_request"},
	{session.ErrInvalidID, http.StatusBadRequest, "bad_request"},
	{session.ErrInvalidSession, http.StatusBadRequest, "bad_request"},
	{session.ErrInvalidPattern, http.StatusBadRequest, "bad_request"},
	{resilience.ErrCircuitOpen, http.StatusServiceUnavailable, "unavailable"},
	{resilience.ErrTooManyRequests, http.StatusServiceUnavailable, "unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

func classify(err error) *statusError {
	var se *statusError
	if errors.As(err, &se) {
		return se
	}
	for _, s := range errorStatus {
		if errors.Is(err, s.target) {
			return &statusError{code: s.code, kind: s.kind, err: err}
		}
	}
	return &statusError{code: http.StatusInternalServerError, kind: "internal", err: err}
}

// respondError writes err with the status it maps to
func respondError(c *gin.Context, err error) {
	se := classify(err)
	c.JSON(se.code, gin.H{
		"error": err.Error(),
		"kind":  se.kind,
	})
}
