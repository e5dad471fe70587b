package tracing

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// Propagation headers
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// TraceID identifies one request flow across spans
type TraceID string

// SpanID identifies one span
type SpanID string

// Span is one timed operation within a trace
type Span struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string
	Start    time.Time
	Duration time.Duration
	Tags     map[string]string
	Err      error
	Status   int
}

// SetTag attaches a string attribute
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError marks the span failed. A status not yet set becomes 500.
func (s *Span) SetError(err error) {
	s.Err = err
	if s.Status == 0 {
		s.Status = http.StatusInternalServerError
	}
}

// SetStatus records an HTTP status
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// Finish fixes the span's duration
func (s *Span) Finish() {
	s.Duration = time.Since(s.Start)
}

// Tracer hands finished spans to a collector goroutine that logs them
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New starts a tracer for service
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger.With(zap.String("service", service)),
		spans:   make(chan *Span, 1024),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan opens a span, continuing the trace carried by ctx
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}
	span := &Span{
		TraceID:  traceID,
		SpanID:   SpanID(id.NewSpanID()),
		ParentID: SpanIDFrom(ctx),
		Name:     name,
		Start:    time.Now(),
		Tags:     make(map[string]string),
	}
	return span, withTrace(ctx, span.TraceID, span.SpanID)
}

// End finishes span, records err when set, and submits it
func (t *Tracer) End(span *Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
	t.Submit(span)
}

// Submit queues a finished span. Spans are dropped when the buffer is
// full or the tracer is closed.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("operation", span.Name),
		)
	}
}

// Close drains queued spans and stops the collector
func (t *Tracer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.spans)
	t.mu.Unlock()
	<-t.done
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		t.log(span)
	}
}

func (t *Tracer) log(span *Span) {
	fields := make([]zap.Field, 0, 6+len(span.Tags))
	fields = append(fields,
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
	)
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}

	keys := make([]string, 0, len(span.Tags))
	for k := range span.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.String(k, span.Tags[k]))
	}

	switch {
	case span.Err == nil:
		t.logger.Debug("span completed", fields...)
	case errors.Is(span.Err, context.Canceled):
		t.logger.Debug("span canceled", fields...)
	default:
		t.logger.Warn("span completed with error", append(fields, zap.Error(span.Err))...)
	}
}

type contextKey int

const (
	traceIDKey contextKey = iota
	spanIDKey
)

func withTrace(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

// TraceIDFrom returns the trace carried by ctx, or ""
func TraceIDFrom(ctx context.Context) TraceID {
	v, _ := ctx.Value(traceIDKey).(TraceID)
	return v
}

// SpanIDFrom returns the innermost span carried by ctx, or ""
func SpanIDFrom(ctx context.Context) SpanID {
	v, _ := ctx.Value(spanIDKey).(SpanID)
	return v
}

// Inject copies the trace carried by ctx into outgoing headers
func Inject(ctx context.Context, h http.Header) {
	if traceID := TraceIDFrom(ctx); traceID != "" {
		h.Set(HeaderTraceID, string(traceID))
	}
	if spanID := SpanIDFrom(ctx); spanID != "" {
		h.Set(HeaderSpanID, string(spanID))
	}
}

// Extract continues a trace started by the caller of an incoming request
func Extract(ctx context.Context, h http.Header) context.Context {
	return withTrace(ctx, TraceID(h.Get(HeaderTraceID)), SpanID(h.Get(HeaderSpanID)))
}
