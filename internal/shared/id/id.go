// Package id provides centralized ID generation for the tab host.
//
// IDs are prefixed ULIDs:
//   - Lexicographic sortability: creation order is string order
//   - Prefixed types: tab_*, sess_*, req_*, span_* read well in logs
//   - Type safety: separate string types prevent ID misuse
//
// Navigation entry IDs and frame tree node IDs are NOT generated here.
// Those are small monotonic integers owned by the controller and the frame
// tree respectively, and must never be reused within their owner's lifetime.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TabID identifies a browser tab hosted by this process
type TabID string

// SessionID identifies a persisted session snapshot
type SessionID string

// RequestID identifies an API request; it also serves as a trace ID
type RequestID string

// SpanID identifies a tracing span
type SpanID string

const (
	TabPrefix     = "tab"
	SessionPrefix = "sess"
	RequestPrefix = "req"
	SpanPrefix    = "span"
)

func (id TabID) String() string     { return string(id) }
func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id SpanID) String() string    { return string(id) }

// Generator produces ULIDs that sort in creation order, also within one
// millisecond
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator draws monotonic entropy from crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy uses the given entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate returns the next ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy)
}

// GenerateString returns the next ULID in its 26-character form
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix returns "<prefix>_<ulid>"
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + "_" + g.GenerateString()
}

var shared = NewGenerator()

// New returns a bare ULID from the shared generator
func New() string { return shared.GenerateString() }

// NewTabID generates a tab ID
func NewTabID() TabID { return TabID(shared.GenerateWithPrefix(TabPrefix)) }

// NewSessionID generates a session ID
func NewSessionID() SessionID { return SessionID(shared.GenerateWithPrefix(SessionPrefix)) }

// NewRequestID generates a request ID
func NewRequestID() RequestID { return RequestID(shared.GenerateWithPrefix(RequestPrefix)) }

// NewSpanID generates a span ID
func NewSpanID() SpanID { return SpanID(shared.GenerateWithPrefix(SpanPrefix)) }

// IsValid reports whether s is a bare ULID
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// IsValidPrefixed reports whether s has the form "<prefix>_<ulid>"
func IsValidPrefixed(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	return ok && IsValid(rest)
}

// Timestamp extracts the creation time from a prefixed or bare ULID
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
