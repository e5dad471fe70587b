package session

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")
	ErrInvalidID       = errors.New("invalid session id")
	ErrInvalidPattern  = errors.New("invalid session pattern")
)

// Session is a set of tabs saved together
type Session struct {
	ID        id.SessionID  `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Tabs      []TabSnapshot `json:"tabs" yaml:"tabs"`
}

// TabSnapshot is one tab's back/forward list at save time
type TabSnapshot struct {
	ID      id.TabID    `json:"id" yaml:"id"`
	URL     string      `json:"url" yaml:"url"`
	Title   string      `json:"title,omitempty" yaml:"title,omitempty"`
	History tab.History `json:"history" yaml:"history"`
}

// Metadata summarizes a stored session without its histories
type Metadata struct {
	ID        id.SessionID `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	TabCount  int          `json:"tab_count"`
	Entries   int          `json:"entries"`
	Size      int64        `json:"size"`
}

// ToMetadata summarizes s; size is the stored byte count
func (s *Session) ToMetadata(size int64) Metadata {
	entries := 0
	for _, t := range s.Tabs {
		entries += len(t.History.Entries)
	}
	return Metadata{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		TabCount:  len(s.Tabs),
		Entries:   entries,
		Size:      size,
	}
}

// Validate checks what restore relies on
func (s *Session) Validate() error {
	if !id.IsValidPrefixed(s.ID.String(), id.SessionPrefix) {
		return ErrInvalidID
	}
	for i, t := range s.Tabs {
		n := len(t.History.Entries)
		if n == 0 {
			return errorf("tab %d has no entries", i)
		}
		if t.History.Selected < 0 || t.History.Selected >= n {
			return errorf("tab %d selects entry %d of %d", i, t.History.Selected, n)
		}
	}
	return nil
}
