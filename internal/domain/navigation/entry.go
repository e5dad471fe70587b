package navigation

import (
	"time"
)

// Entry is one back/forward list slot for a whole page. Entries handed out
// by the Controller are read-only to callers; only the Controller mutates
// them.
type Entry struct {
	uniqueID int64
	frames   *FrameEntryTree

	virtualURL         string
	originalRequestURL string
	title              string
	favicon            FaviconStatus
	ssl                SSLStatus
	pageType           PageType
	transition         Transition
	hasPostData        bool
	postID             int64
	timestamp          time.Time
	httpStatusCode     int
	overridingUA       bool
	restoreType        RestoreType

	// Not persisted; cleared once the entry commits.
	postData            []byte
	extraHeaders        string
	frameTreeNodeID     int64
	targetURL           string
	shouldReplace       bool
	shouldClearHistory  bool
	isRendererInitiated bool
	redirectChain       []string
	baseURLForDataURL   string
}

func newEntry(uniqueID int64, url string, referrer Referrer, transition Transition) *Entry {
	return &Entry{
		uniqueID: uniqueID,
		frames: NewFrameEntryTree(FrameEntry{
			URL:      url,
			Referrer: referrer,
			Origin:   OriginOf(url),
		}),
		transition: transition,
	}
}

// UniqueID identifies the entry for the lifetime of its controller
func (e *Entry) UniqueID() int64 { return e.uniqueID }

// URL is the main frame's committed (or requested) URL
func (e *Entry) URL() string { return e.frames.Root().URL }

// Referrer is the main frame's referrer
func (e *Entry) Referrer() Referrer { return e.frames.Root().Referrer }

// PageState is the main frame's opaque state blob
func (e *Entry) PageState() PageState { return e.frames.Root().PageState }

// VirtualURL is the URL shown to the user, defaulting to URL
func (e *Entry) VirtualURL() string {
	if e.virtualURL != "" {
		return e.virtualURL
	}
	return e.URL()
}

// TitleForDisplay falls back to the virtual URL when no title is known
func (e *Entry) TitleForDisplay() string {
	if e.title != "" {
		return e.title
	}
	return e.VirtualURL()
}

func (e *Entry) OriginalRequestURL() string { return e.originalRequestURL }
func (e *Entry) Title() string              { return e.title }
func (e *Entry) Favicon() FaviconStatus     { return e.favicon }
func (e *Entry) SSL() SSLStatus             { return e.ssl }
func (e *Entry) PageType() PageType         { return e.pageType }
func (e *Entry) Transition() Transition     { return e.transition }
func (e *Entry) HasPostData() bool          { return e.hasPostData }
func (e *Entry) PostID() int64              { return e.postID }
func (e *Entry) Timestamp() time.Time       { return e.timestamp }
func (e *Entry) HTTPStatusCode() int        { return e.httpStatusCode }
func (e *Entry) IsOverridingUserAgent() bool {
	return e.overridingUA
}
func (e *Entry) RestoreType() RestoreType { return e.restoreType }

// PostData is the browser-initiated POST body, present only while pending
func (e *Entry) PostData() []byte { return e.postData }

// ExtraHeaders are request headers for a pending load
func (e *Entry) ExtraHeaders() string { return e.extraHeaders }

// FrameTreeNodeID is the frame a pending load targets, 0 for the main frame
func (e *Entry) FrameTreeNodeID() int64 { return e.frameTreeNodeID }

// URLForFrame returns the URL a frame should load for this entry: the
// explicit target of a subframe load, the frame's recorded state, or the
// main frame URL
func (e *Entry) URLForFrame(frameTreeNodeID int64) string {
	if frameTreeNodeID != 0 && frameTreeNodeID == e.frameTreeNodeID && e.targetURL != "" {
		return e.targetURL
	}
	if i, ok := e.frames.Find(frameTreeNodeID); ok {
		return e.frames.At(i).URL
	}
	return e.URL()
}

// ShouldReplace reports whether the pending load replaces the current entry
func (e *Entry) ShouldReplace() bool { return e.shouldReplace }

// ShouldClearHistoryList reports whether committing clears all other entries
func (e *Entry) ShouldClearHistoryList() bool { return e.shouldClearHistory }

// IsRendererInitiated reports whether the renderer asked for this load
func (e *Entry) IsRendererInitiated() bool { return e.isRendererInitiated }

// RedirectChain lists the URLs a pending load was redirected through
func (e *Entry) RedirectChain() []string { return e.redirectChain }

// BaseURLForDataURL is the base URL of a data: load
func (e *Entry) BaseURLForDataURL() string { return e.baseURLForDataURL }

// Frames returns a copy of the frame entry tree
func (e *Entry) Frames() *FrameEntryTree { return e.frames.Clone() }

// FrameEntryFor returns the committed state recorded for one frame
func (e *Entry) FrameEntryFor(frameTreeNodeID int64) (FrameEntry, bool) {
	i, ok := e.frames.Find(frameTreeNodeID)
	if !ok {
		return FrameEntry{}, false
	}
	return e.frames.At(i), true
}

// Clone deep-copies the entry, including its unique ID
func (e *Entry) Clone() *Entry {
	out := *e
	out.frames = e.frames.Clone()
	out.favicon.Image = append([]byte(nil), e.favicon.Image...)
	out.postData = append([]byte(nil), e.postData...)
	out.redirectChain = append([]string(nil), e.redirectChain...)
	return &out
}

func (e *Entry) setURL(url string) {
	root := e.frames.Root()
	root.URL = url
	root.Origin = OriginOf(url)
	e.frames.Set(0, root)
}

func (e *Entry) setReferrer(r Referrer) {
	root := e.frames.Root()
	root.Referrer = r
	e.frames.Set(0, root)
}

// resetForCommit clears the state that only matters while pending
func (e *Entry) resetForCommit() {
	e.postData = nil
	e.extraHeaders = ""
	e.frameTreeNodeID = 0
	e.targetURL = ""
	e.shouldReplace = false
	e.shouldClearHistory = false
	e.isRendererInitiated = false
	e.redirectChain = nil
	e.restoreType = RestoreNone
}

// EntryState is the persistable form of an Entry
type EntryState struct {
	UniqueID           int64              `json:"unique_id" yaml:"unique_id"`
	VirtualURL         string             `json:"virtual_url,omitempty" yaml:"virtual_url,omitempty"`
	OriginalRequestURL string             `json:"original_request_url,omitempty" yaml:"original_request_url,omitempty"`
	Title              string             `json:"title,omitempty" yaml:"title,omitempty"`
	Favicon            FaviconStatus      `json:"favicon" yaml:"favicon"`
	SSL                SSLStatus          `json:"ssl" yaml:"ssl"`
	PageType           PageType           `json:"page_type" yaml:"page_type"`
	Transition         Transition         `json:"transition" yaml:"transition"`
	HasPostData        bool               `json:"has_post_data,omitempty" yaml:"has_post_data,omitempty"`
	PostID             int64              `json:"post_id,omitempty" yaml:"post_id,omitempty"`
	Timestamp          time.Time          `json:"timestamp" yaml:"timestamp"`
	HTTPStatusCode     int                `json:"http_status_code,omitempty" yaml:"http_status_code,omitempty"`
	OverridingUA       bool               `json:"overriding_user_agent,omitempty" yaml:"overriding_user_agent,omitempty"`
	Frames             []FrameEntryRecord `json:"frames" yaml:"frames"`
}

// State exports the persistable fields of the entry
func (e *Entry) State() EntryState {
	return EntryState{
		UniqueID:           e.uniqueID,
		VirtualURL:         e.virtualURL,
		OriginalRequestURL: e.originalRequestURL,
		Title:              e.title,
		Favicon:            FaviconStatus{URL: e.favicon.URL, Valid: e.favicon.Valid, Image: append([]byte(nil), e.favicon.Image...)},
		SSL:                e.ssl,
		PageType:           e.pageType,
		Transition:         e.transition,
		HasPostData:        e.hasPostData,
		PostID:             e.postID,
		Timestamp:          e.timestamp,
		HTTPStatusCode:     e.httpStatusCode,
		OverridingUA:       e.overridingUA,
		Frames:             e.frames.Records(),
	}
}

// entryFromState rebuilds an entry under a fresh unique ID
func entryFromState(uniqueID int64, s EntryState) (*Entry, error) {
	frames, err := FrameEntryTreeFromRecords(s.Frames)
	if err != nil {
		return nil, err
	}
	return &Entry{
		uniqueID:           uniqueID,
		frames:             frames,
		virtualURL:         s.VirtualURL,
		originalRequestURL: s.OriginalRequestURL,
		title:              s.Title,
		favicon:            FaviconStatus{URL: s.Favicon.URL, Valid: s.Favicon.Valid, Image: append([]byte(nil), s.Favicon.Image...)},
		ssl:                s.SSL,
		pageType:           s.PageType,
		transition:         s.Transition,
		hasPostData:        s.HasPostData,
		postID:             s.PostID,
		timestamp:          s.Timestamp,
		httpStatusCode:     s.HTTPStatusCode,
		overridingUA:       s.OverridingUA,
	}, nil
}
