package navigation

// LoadURLParams describes a browser-side navigation request
type LoadURLParams struct {
	URL        string
	LoadType   LoadType
	Transition Transition
	Referrer   Referrer

	// FrameTreeNodeID targets a specific frame; 0 means the main frame.
	FrameTreeNodeID int64
	// FrameName targets a frame by name when FrameTreeNodeID is unset.
	FrameName string

	ExtraHeaders          string
	IsRendererInitiated   bool
	OverrideUserAgent     UserAgentOverride
	PostData              []byte
	BaseURLForDataURL     string
	VirtualURLForDataURL  string
	RedirectChain         []string
	ShouldReplaceCurrent  bool
	ShouldClearHistory    bool
	CanLoadLocalResources bool
}

// CommitParams is what a renderer reports when a navigation takes effect
// in one of its frames
type CommitParams struct {
	URL        string
	Referrer   Referrer
	Transition Transition
	PageState  PageState

	// NavEntryID echoes the unique ID of the entry the browser asked for,
	// or 0 for renderer-initiated navigations.
	NavEntryID int64

	// DidCreateNewEntry is set when the renderer created a new session
	// history item (new document, pushState, fragment navigation).
	DidCreateNewEntry bool
	// IntendedAsNewEntry is set when the request was for a new entry even if
	// the pending entry has since been cleared.
	IntendedAsNewEntry bool
	// WasWithinSamePage marks same-document commits.
	WasWithinSamePage bool

	ShouldReplaceCurrentEntry bool
	URLIsUnreachable          bool
	HistoryListWasCleared     bool

	IsPost                 bool
	PostID                 int64
	OriginalRequestURL     string
	Redirects              []string
	HTTPStatusCode         int
	IsOverridingUserAgent  bool
	ItemSequenceNumber     int64
	DocumentSequenceNumber int64
	FrameName              string
}

// SpliceKind records what a commit did to the entry list
type SpliceKind int

const (
	SpliceNone SpliceKind = iota
	SpliceAppend
	SpliceReplace
	SpliceMove
	SpliceUpdate
)

func (s SpliceKind) String() string {
	switch s {
	case SpliceAppend:
		return "append"
	case SpliceReplace:
		return "replace"
	case SpliceMove:
		return "move"
	case SpliceUpdate:
		return "update"
	default:
		return "none"
	}
}

// MarshalText renders the splice kind by name
func (s SpliceKind) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LoadCommittedDetails describes one classified commit
type LoadCommittedDetails struct {
	Entry              *Entry
	Type               NavigationType
	Splice             SpliceKind
	FrameTreeNodeID    int64
	IsMainFrame        bool
	IsInPage           bool
	DidReplaceEntry    bool
	PreviousURL        string
	PreviousEntryIndex int
	EntryIndex         int
	HTTPStatusCode     int
}

// IsNavigationToDifferentPage reports whether a new document replaced the
// main frame's
func (d LoadCommittedDetails) IsNavigationToDifferentPage() bool {
	return d.IsMainFrame && !d.IsInPage
}

// PrunedDetails reports entries removed from the list
type PrunedDetails struct {
	FromFront bool
	Count     int
}

// EntryChangedDetails reports an in-place update such as a new title
type EntryChangedDetails struct {
	Entry *Entry
	Index int
}
