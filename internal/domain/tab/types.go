package tab

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/framenav/internal/domain/frametree"
	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

var (
	ErrTabNotFound     = errors.New("tab not found")
	ErrTabClosed       = errors.New("tab closed")
	ErrTooManyTabs     = errors.New("tab limit reached")
	ErrFrameNotFound   = errors.New("frame not found")
	ErrProcessMismatch = errors.New("commit from a process that does not own the frame")
	ErrBadProcess      = errors.New("process was flagged for a bad commit")
)

// Renderer loads documents into frames. Navigate is called on the tab's
// event loop and must return without waiting on the tab; results come back
// through Tab.CommitNavigation and Tab.FailNavigation. ctx is canceled when
// the request is stopped or superseded.
type Renderer interface {
	NewProcess() string
	Navigate(ctx context.Context, t *Tab, req Request)
}

// Request is one navigation dispatched to the renderer
type Request struct {
	ID         int64
	FrameID    int64
	ProcessID  string
	NavEntryID int64

	URL          string
	Referrer     navigation.Referrer
	Transition   navigation.Transition
	Reload       navigation.ReloadType
	PostData     []byte
	ExtraHeaders string

	// Existing marks loads of an entry already in the list: history
	// navigations, reloads and restores. The commit must not create a
	// new entry.
	Existing      bool
	ShouldReplace bool

	// PageState and the sequence numbers are the frame's recorded state
	// for existing entries.
	PageState        navigation.PageState
	ItemSequence     int64
	DocumentSequence int64

	// Frames is the entry's frame state, used to restore subframes of the
	// loaded document. Nil for new loads.
	Frames *navigation.FrameEntryTree
}

// Commit is a renderer's report that a document took effect in a frame
type Commit struct {
	FrameID   int64
	ProcessID string
	// RequestID is the Request.ID being answered, 0 for renderer-initiated
	// commits such as pushState.
	RequestID int64
	Params    navigation.CommitParams
	Title     string
}

// Failure reports that a dispatched request did not produce a document
type Failure struct {
	FrameID    int64
	RequestID  int64
	NavEntryID int64
	Err        error
}

// Begin is a renderer-initiated navigation request, e.g. a link click
type Begin struct {
	FrameID   int64
	ProcessID string
	Params    navigation.LoadURLParams
}

// CommitResult summarizes how a commit was classified
type CommitResult struct {
	Accepted   bool                      `json:"accepted"`
	Type       navigation.NavigationType `json:"type"`
	Splice     navigation.SpliceKind     `json:"splice"`
	EntryID    int64                     `json:"entry_id,omitempty"`
	EntryIndex int                       `json:"entry_index"`
	IsInPage   bool                      `json:"is_in_page,omitempty"`
	Replaced   bool                      `json:"replaced,omitempty"`
}

// HistoryOp selects a history traversal
type HistoryOp int

const (
	HistoryBack HistoryOp = iota
	HistoryForward
	HistoryIndex
	HistoryOffset
)

// EventKind names a tab event
type EventKind string

const (
	EventCommitted     EventKind = "committed"
	EventPruned        EventKind = "pruned"
	EventEntryChanged  EventKind = "entry_changed"
	EventLoadStarted   EventKind = "load_started"
	EventLoadFailed    EventKind = "load_failed"
	EventFrameAttached EventKind = "frame_attached"
	EventFrameDetached EventKind = "frame_detached"
	EventClosed        EventKind = "closed"
)

// Event is what subscribers of a tab receive
type Event struct {
	Tab     id.TabID                  `json:"tab"`
	Kind    EventKind                 `json:"kind"`
	Time    time.Time                 `json:"time"`
	FrameID int64                     `json:"frame_id,omitempty"`
	URL     string                    `json:"url,omitempty"`
	Title   string                    `json:"title,omitempty"`
	EntryID int64                     `json:"entry_id,omitempty"`
	Index   int                       `json:"index"`
	Count   int                       `json:"count,omitempty"`
	Type    navigation.NavigationType `json:"type,omitempty"`
	Splice  navigation.SpliceKind     `json:"splice,omitempty"`
	InPage  bool                      `json:"in_page,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// EntryInfo is a read-only copy of one list entry
type EntryInfo struct {
	UniqueID   int64                         `json:"unique_id"`
	URL        string                        `json:"url"`
	VirtualURL string                        `json:"virtual_url,omitempty"`
	Title      string                        `json:"title,omitempty"`
	Transition navigation.Transition         `json:"transition"`
	PageType   navigation.PageType           `json:"page_type"`
	HTTPStatus int                           `json:"http_status,omitempty"`
	Timestamp  time.Time                     `json:"timestamp"`
	Frames     []navigation.FrameEntryRecord `json:"frames,omitempty"`
}

func entryInfo(e *navigation.Entry) EntryInfo {
	return EntryInfo{
		UniqueID:   e.UniqueID(),
		URL:        e.URL(),
		VirtualURL: e.VirtualURL(),
		Title:      e.Title(),
		Transition: e.Transition(),
		PageType:   e.PageType(),
		HTTPStatus: e.HTTPStatusCode(),
		Timestamp:  e.Timestamp(),
		Frames:     e.Frames().Records(),
	}
}

// State is a consistent copy of a tab taken on its event loop
type State struct {
	ID                      id.TabID         `json:"id"`
	URL                     string           `json:"url"`
	Title                   string           `json:"title"`
	Loading                 bool             `json:"loading"`
	CanGoBack               bool             `json:"can_go_back"`
	CanGoForward            bool             `json:"can_go_forward"`
	CurrentIndex            int              `json:"current_index"`
	LastCommittedIndex      int              `json:"last_committed_index"`
	NeedsRepostConfirmation bool             `json:"needs_repost_confirmation,omitempty"`
	Pending                 *EntryInfo       `json:"pending,omitempty"`
	Entries                 []EntryInfo      `json:"entries"`
	Frames                  []frametree.Node `json:"frames"`
}

// History is the persistable part of a tab
type History struct {
	Selected int                     `json:"selected" yaml:"selected"`
	Entries  []navigation.EntryState `json:"entries" yaml:"entries"`
}

// Info is a cheap summary kept current by the event loop
type Info struct {
	ID        id.TabID  `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Entries   int       `json:"entries"`
	Loading   bool      `json:"loading"`
	CreatedAt time.Time `json:"created_at"`
}
