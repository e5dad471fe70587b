package loopback

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/tracing"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrDocumentTooLarge  = errors.New("document exceeds size limit")
	ErrMalformedDataURL  = errors.New("malformed data url")
)

// Document is a fetched resource ready to commit
type Document struct {
	// URL is the final URL after redirects.
	URL         string
	Status      int
	ContentType string
	Body        []byte
	Redirected  bool
}

// IsHTML reports whether the document can contain frames
func (d *Document) IsHTML() bool {
	return strings.HasPrefix(d.ContentType, "text/html") ||
		strings.HasPrefix(d.ContentType, "application/xhtml+xml")
}

// FetchRequest describes one document load
type FetchRequest struct {
	URL          string
	Referrer     string
	PostData     []byte
	ExtraHeaders string
	Reload       navigation.ReloadType
}

// Fetcher wraps resty with rate limiting, retries and a circuit breaker
type Fetcher struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	maxSize int64
	metrics *monitoring.Metrics
	mu      sync.RWMutex
}

// NewFetcher creates a fetcher from renderer settings
func NewFetcher(cfg config.RendererConfig) *Fetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	// Hand the last response back instead of an error; a 503 is still a
	// document.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	breaker := resilience.New("loopback-fetch", resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.FetchesPerSec > 0 {
		burst := cfg.FetchBurst
		if burst <= 0 {
			burst = int(cfg.FetchesPerSec)
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.FetchesPerSec), burst)
	}

	return &Fetcher{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		maxSize: cfg.MaxDocumentSize,
	}
}

// WithMetrics records fetch outcomes
func (f *Fetcher) WithMetrics(m *monitoring.Metrics) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = m
	return f
}

// Breaker exposes the circuit breaker guarding remote fetches
func (f *Fetcher) Breaker() *resilience.Breaker {
	return f.breaker
}

// Fetch loads the document for req
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*Document, error) {
	start := time.Now()
	scheme := "other"
	if i := strings.IndexByte(req.URL, ':'); i > 0 {
		scheme = strings.ToLower(req.URL[:i])
	}

	var (
		doc *Document
		err error
	)
	switch scheme {
	case "about":
		doc, err = aboutDocument(req.URL)
	case "data":
		doc, err = decodeDataURL(req.URL)
	case "http", "https":
		doc, err = f.fetchRemote(ctx, req)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	f.record(scheme, err, time.Since(start))
	return doc, err
}

func (f *Fetcher) record(scheme string, err error, d time.Duration) {
	f.mu.RLock()
	m := f.metrics
	f.mu.RUnlock()
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	m.RecordFetch(scheme, outcome, d)
}

func (f *Fetcher) fetchRemote(ctx context.Context, req FetchRequest) (*Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	r := f.resty.R().SetContext(ctx)
	tracing.Inject(ctx, r.Header)
	if req.Referrer != "" {
		r.SetHeader("Referer", req.Referrer)
	}
	for name, value := range parseExtraHeaders(req.ExtraHeaders) {
		r.SetHeader(name, value)
	}
	if req.Reload == navigation.ReloadIgnoringCache {
		r.SetHeader("Cache-Control", "no-cache")
		r.SetHeader("Pragma", "no-cache")
	}

	method := http.MethodGet
	if req.PostData != nil {
		method = http.MethodPost
		r.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		r.SetBody(req.PostData)
	}

	resp, err := resilience.Do(f.breaker, func() (*resty.Response, error) {
		return r.Execute(method, req.URL)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	body := resp.Body()
	if f.maxSize > 0 && int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: %d bytes from %s", ErrDocumentTooLarge, len(body), req.URL)
	}

	final := req.URL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}

	return &Document{
		URL:         final,
		Status:      resp.StatusCode(),
		ContentType: contentType(resp.Header().Get("Content-Type"), body),
		Body:        body,
		Redirected:  final != req.URL,
	}, nil
}

// contentType trusts a declared type and sniffs otherwise
func contentType(declared string, body []byte) string {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	return mimetype.Detect(body).String()
}

func aboutDocument(raw string) (*Document, error) {
	if raw != navigation.AboutBlankURL {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, raw)
	}
	return &Document{URL: raw, ContentType: "text/html", Body: []byte{}}, nil
}

// decodeDataURL decodes data:[<mediatype>][;base64],<data>
func decodeDataURL(raw string) (*Document, error) {
	rest := strings.TrimPrefix(raw, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: no payload", ErrMalformedDataURL)
	}
	meta, payload := rest[:comma], rest[comma+1:]

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		meta = meta[:len(meta)-len(";base64")]
	}

	var body []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
		}
		body = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
		}
		body = []byte(unescaped)
	}

	ctype := strings.ToLower(strings.TrimSpace(meta))
	if ctype == "" {
		ctype = mimetype.Detect(body).String()
	}
	return &Document{URL: raw, ContentType: ctype, Body: body}, nil
}

// parseExtraHeaders splits "Name: value" lines
func parseExtraHeaders(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

func bodyReader(d *Document) *bytes.Reader {
	return bytes.NewReader(d.Body)
}
