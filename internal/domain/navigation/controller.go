package navigation

import (
	"time"

	"go.uber.org/zap"
)

// DefaultMaxEntryCount bounds the back/forward list
const DefaultMaxEntryCount = 50

// Config carries every dependency and policy switch of a Controller
type Config struct {
	// MaxEntryCount caps the list; the oldest entry is pruned beyond it.
	MaxEntryCount int
	// SubframeHistoryNavigation lets history navigations target the one
	// subframe whose state differs instead of always reloading the main frame.
	SubframeHistoryNavigation bool
	// SubframeEntryTracking records subframe commits in each entry's
	// FrameEntryTree. Disabled, only the main frame's state is kept.
	SubframeEntryTracking bool

	Clock   func() time.Time
	IDs     IDSource
	Logger  *zap.Logger
	Metrics Metrics
}

// DefaultConfig returns the production policy
func DefaultConfig() Config {
	return Config{
		MaxEntryCount:         DefaultMaxEntryCount,
		SubframeEntryTracking: true,
		Clock:                 time.Now,
	}
}

type observerSlot struct {
	id       int
	observer Observer
}

// Controller owns one tab's back/forward list and classifies every commit
// in that tab. It is not safe for concurrent use: the owning tab drives it
// from a single goroutine.
type Controller struct {
	cfg       Config
	navigator Navigator
	frames    FrameLookup
	log       *zap.Logger
	metrics   Metrics

	observers  []observerSlot
	observerID int

	entries            []*Entry
	lastCommittedIndex int

	// pending is either a new entry (pendingIndex == -1) or a reference
	// into entries for history navigations and reloads.
	pending      *Entry
	pendingIndex int

	transient *Entry

	failedPendingID            int64
	failedPendingShouldReplace bool

	pendingReload       ReloadType
	needsReload         bool
	isInitialNavigation bool
	inNavigate          bool

	smoother timeSmoother
}

// New creates an empty controller
func New(cfg Config, navigator Navigator, frames FrameLookup) *Controller {
	if cfg.MaxEntryCount <= 0 {
		cfg.MaxEntryCount = DefaultMaxEntryCount
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDs == nil {
		cfg.IDs = &SequenceIDs{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	return &Controller{
		cfg:                 cfg,
		navigator:           navigator,
		frames:              frames,
		log:                 cfg.Logger,
		metrics:             cfg.Metrics,
		lastCommittedIndex:  -1,
		pendingIndex:        -1,
		isInitialNavigation: true,
	}
}

// AddObserver registers o and returns a function that unregisters it
func (c *Controller) AddObserver(o Observer) func() {
	c.observerID++
	id := c.observerID
	c.observers = append(c.observers, observerSlot{id: id, observer: o})
	return func() {
		for i, s := range c.observers {
			if s.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) notifyCommitted(d LoadCommittedDetails) {
	for _, s := range c.observers {
		s.observer.NavigationEntryCommitted(d)
	}
}

func (c *Controller) notifyPruned(d PrunedDetails) {
	c.metrics.RecordPruned(d.Count)
	for _, s := range c.observers {
		s.observer.NavigationListPruned(d)
	}
}

func (c *Controller) notifyChanged(d EntryChangedDetails) {
	for _, s := range c.observers {
		s.observer.NavigationEntryChanged(d)
	}
}

// ============================================================================
// Queries
// ============================================================================

// MaxEntryCount returns the configured list capacity
func (c *Controller) MaxEntryCount() int { return c.cfg.MaxEntryCount }

// EntryCount returns the number of committed entries. Transient entries are
// never counted.
func (c *Controller) EntryCount() int { return len(c.entries) }

// EntryAtIndex returns the entry at i or nil when out of range
func (c *Controller) EntryAtIndex(i int) *Entry {
	if i < 0 || i >= len(c.entries) {
		return nil
	}
	return c.entries[i]
}

// EntryAtOffset returns the entry offset from the current one
func (c *Controller) EntryAtOffset(offset int) *Entry {
	return c.EntryAtIndex(c.CurrentEntryIndex() + offset)
}

// LastCommittedEntry returns the entry the tab currently shows, or nil
func (c *Controller) LastCommittedEntry() *Entry {
	return c.EntryAtIndex(c.lastCommittedIndex)
}

// LastCommittedEntryIndex returns -1 before the first commit
func (c *Controller) LastCommittedEntryIndex() int { return c.lastCommittedIndex }

// PendingEntry returns the entry being navigated to, or nil
func (c *Controller) PendingEntry() *Entry { return c.pending }

// PendingEntryIndex returns the list index of a history pending entry, or
// -1 for new entries and when nothing is pending
func (c *Controller) PendingEntryIndex() int { return c.pendingIndex }

// TransientEntry returns the overlay entry, or nil
func (c *Controller) TransientEntry() *Entry { return c.transient }

// IsInitialNavigation reports whether nothing has committed yet
func (c *Controller) IsInitialNavigation() bool { return c.isInitialNavigation }

// NeedsReload reports whether restored entries are waiting for LoadIfNecessary
func (c *Controller) NeedsReload() bool { return c.needsReload }

// CurrentEntryIndex is the pending index for history navigations, else the
// last committed index
func (c *Controller) CurrentEntryIndex() int {
	if c.pendingIndex != -1 {
		return c.pendingIndex
	}
	return c.lastCommittedIndex
}

// ActiveEntry returns the transient, pending or last committed entry, in
// that order
func (c *Controller) ActiveEntry() *Entry {
	if c.transient != nil {
		return c.transient
	}
	if c.pending != nil {
		return c.pending
	}
	return c.LastCommittedEntry()
}

// VisibleEntry returns the entry whose URL belongs in the address bar.
// A pending URL is only shown when no page can spoof it: browser-initiated
// new loads, loads in an untouched blank tab, and browser-initiated history
// navigations in a tab that has not committed yet.
func (c *Controller) VisibleEntry() *Entry {
	if c.transient != nil {
		return c.transient
	}
	if c.pending != nil && c.safeToShowPending() {
		return c.pending
	}
	return c.LastCommittedEntry()
}

func (c *Controller) safeToShowPending() bool {
	p := c.pending
	if c.pendingIndex == -1 && !p.isRendererInitiated {
		return true
	}
	if c.pendingIndex != -1 && c.isInitialNavigation && !p.isRendererInitiated {
		return true
	}
	if c.pendingIndex == -1 && c.isInitialNavigation && c.lastCommittedIndex == -1 &&
		!c.navigator.HasAccessedInitialDocument() {
		return true
	}
	return false
}

// IndexOfEntry returns the list index of e, or -1
func (c *Controller) IndexOfEntry(e *Entry) int {
	for i, x := range c.entries {
		if x == e {
			return i
		}
	}
	return -1
}

// EntryIndexWithUniqueID returns the list index of the entry with id, or -1
func (c *Controller) EntryIndexWithUniqueID(id int64) int {
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].uniqueID == id {
			return i
		}
	}
	return -1
}

// Entries returns the list in order. The slice is a copy; the entries are not.
func (c *Controller) Entries() []*Entry {
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ============================================================================
// Loading
// ============================================================================

// LoadURL starts a main-frame navigation
func (c *Controller) LoadURL(url string, referrer Referrer, transition Transition, extraHeaders string) bool {
	return c.LoadURLWithParams(LoadURLParams{
		URL:          url,
		Referrer:     referrer,
		Transition:   transition,
		ExtraHeaders: extraHeaders,
	})
}

// LoadURLWithParams creates a pending entry for p and hands it to the
// navigator. Invalid requests are dropped and reported as false; no pending
// entry is created for them.
func (c *Controller) LoadURLWithParams(p LoadURLParams) bool {
	url, ok := FixupURL(p.URL)
	if !ok {
		c.log.Debug("load rejected: malformed url", zap.String("url", p.URL))
		return false
	}

	switch p.LoadType {
	case LoadBrowserInitiatedPost:
		if !isHTTPLike(url) {
			c.log.Debug("load rejected: post to non-http url", zap.String("url", url))
			return false
		}
	case LoadData:
		if !HasScheme(url, schemeData) {
			c.log.Debug("load rejected: data load without data url", zap.String("url", url))
			return false
		}
	}

	if p.ShouldReplaceCurrent && len(c.entries) == 0 {
		c.log.Debug("load rejected: nothing to replace", zap.String("url", url))
		return false
	}

	frameID := p.FrameTreeNodeID
	if frameID == 0 && p.FrameName != "" {
		if id, found := c.frames.FindByName(p.FrameName); found {
			frameID = id
		}
	}
	if frameID != 0 && !c.frames.Contains(frameID) {
		c.log.Debug("load rejected: unknown target frame", zap.Int64("frame", frameID))
		return false
	}
	if frameID == c.frames.RootID() {
		frameID = 0
	}

	entry := c.createEntry(url, p, frameID)
	switch p.OverrideUserAgent {
	case UserAgentInherit:
		if last := c.LastCommittedEntry(); last != nil {
			entry.overridingUA = last.overridingUA
		}
	case UserAgentOverridden:
		entry.overridingUA = true
	}

	c.setPendingEntry(entry)
	return c.navigateToPendingEntry(ReloadNone)
}

func (c *Controller) createEntry(url string, p LoadURLParams, frameID int64) *Entry {
	var entry *Entry
	if last := c.LastCommittedEntry(); frameID != 0 && last != nil {
		// A subframe load keeps the page and changes one frame.
		entry = last.Clone()
		entry.uniqueID = c.cfg.IDs.NextID()
		entry.resetForCommit()
		entry.frameTreeNodeID = frameID
		entry.targetURL = url
		entry.transition = p.Transition
		if c.cfg.SubframeEntryTracking {
			if parent, ok := c.frames.Parent(frameID); ok {
				entry.frames.AddOrUpdate(parent, FrameEntry{
					FrameTreeNodeID: frameID,
					URL:             url,
					Referrer:        p.Referrer,
					Origin:          OriginOf(url),
				}, c.frames.Contains)
			}
		}
	} else {
		navURL := url
		virtual := ""
		if inner, isViewSource := unwrapViewSource(url); isViewSource {
			navURL, virtual = inner, url
		}
		entry = newEntry(c.cfg.IDs.NextID(), navURL, p.Referrer, p.Transition)
		root := entry.frames.Root()
		root.FrameTreeNodeID = c.frames.RootID()
		entry.frames.Set(0, root)
		entry.virtualURL = virtual
		entry.originalRequestURL = navURL
		if frameID != 0 {
			entry.frameTreeNodeID = frameID
			entry.targetURL = url
		}
	}

	if p.LoadType == LoadData {
		entry.baseURLForDataURL = p.BaseURLForDataURL
		if p.VirtualURLForDataURL != "" {
			entry.virtualURL = p.VirtualURLForDataURL
		}
	}
	if p.LoadType == LoadBrowserInitiatedPost {
		entry.hasPostData = true
		entry.postData = append([]byte(nil), p.PostData...)
	}
	entry.extraHeaders = p.ExtraHeaders
	entry.isRendererInitiated = p.IsRendererInitiated
	entry.shouldReplace = p.ShouldReplaceCurrent
	entry.shouldClearHistory = p.ShouldClearHistory
	entry.redirectChain = append([]string(nil), p.RedirectChain...)
	return entry
}

func (c *Controller) setPendingEntry(entry *Entry) {
	c.DiscardNonCommittedEntries()
	c.pending = entry
	c.pendingIndex = -1
}

func (c *Controller) navigateToPendingEntry(reload ReloadType) bool {
	c.needsReload = false

	// A history navigation to the page already showing only needs any
	// in-flight load stopped.
	if c.pendingIndex != -1 && c.pendingIndex == c.lastCommittedIndex &&
		c.pending.restoreType == RestoreNone && c.pending.transition.Has(TransitionForwardBack) {
		c.navigator.Stop()
		c.discardPending(false)
		c.metrics.RecordDiscard("history_to_current")
		return true
	}

	if c.inNavigate {
		c.log.Warn("re-entrant navigation dropped", zap.String("url", c.pending.URL()))
		return false
	}

	entry := c.pending
	frameID := c.targetFrame(entry, c.pendingIndex != -1 && reload == ReloadNone)

	c.inNavigate = true
	ok := c.navigator.NavigateToPendingEntry(frameID, entry, reload)
	c.inNavigate = false

	if !ok {
		c.log.Debug("navigator refused pending entry", zap.String("url", entry.URL()))
		c.DiscardNonCommittedEntries()
		c.metrics.RecordDiscard("navigator_refused")
		return false
	}

	// javascript: URLs run in the current document and never commit.
	if c.pending == entry && IsJavaScriptURL(entry.URLForFrame(frameID)) {
		c.discardPending(false)
		c.metrics.RecordDiscard("javascript_url")
	}
	return true
}

// targetFrame picks the frame a pending entry navigates. Explicit frame
// targets are always honored; history navigations only reach subframes
// when SubframeHistoryNavigation is enabled.
func (c *Controller) targetFrame(entry *Entry, historyNav bool) int64 {
	root := c.frames.RootID()
	if !historyNav {
		if id := entry.frameTreeNodeID; id != 0 && c.frames.Contains(id) {
			return id
		}
		return root
	}
	if !c.cfg.SubframeHistoryNavigation {
		return root
	}
	if id := entry.frameTreeNodeID; id != 0 && c.frames.Contains(id) {
		return id
	}
	if last := c.LastCommittedEntry(); last != nil && c.cfg.SubframeEntryTracking {
		if id, ok := subframeDifference(last.frames, entry.frames); ok && c.frames.Contains(id) {
			return id
		}
	}
	return root
}

// subframeDifference finds the topmost subframe whose recorded state
// differs between two trees whose main frames match
func subframeDifference(from, to *FrameEntryTree) (int64, bool) {
	if !sameFrameState(from.Root(), to.Root()) {
		return 0, false
	}
	var found int64
	to.Walk(func(i int, e FrameEntry) bool {
		if i == 0 {
			return true
		}
		j, ok := from.Find(e.FrameTreeNodeID)
		if !ok || !sameFrameState(from.At(j), e) {
			found = e.FrameTreeNodeID
			return false
		}
		return true
	})
	return found, found != 0
}

func sameFrameState(a, b FrameEntry) bool {
	return a.URL == b.URL && a.ItemSequence == b.ItemSequence && a.DocumentSequence == b.DocumentSequence
}

// ============================================================================
// Discarding
// ============================================================================

// DiscardNonCommittedEntries drops the pending and transient entries
func (c *Controller) DiscardNonCommittedEntries() {
	c.DiscardPendingEntry(false)
	c.DiscardTransientEntry()
}

// DiscardPendingEntry drops the pending entry. A failure remembers the
// entry's ID so the error page committed for it is matched to it.
func (c *Controller) DiscardPendingEntry(wasFailure bool) {
	if c.inNavigate {
		c.log.Warn("pending entry discard during navigation ignored")
		return
	}
	c.discardPending(wasFailure)
}

func (c *Controller) discardPending(wasFailure bool) {
	if wasFailure && c.pending != nil {
		c.failedPendingID = c.pending.uniqueID
		c.failedPendingShouldReplace = c.pending.shouldReplace
	} else {
		c.failedPendingID = 0
		c.failedPendingShouldReplace = false
	}
	c.pending = nil
	c.pendingIndex = -1
}

// DiscardTransientEntry drops the overlay entry
func (c *Controller) DiscardTransientEntry() {
	c.transient = nil
}

// SetTransientEntry shows an interstitial over the current page without
// adding it to the list
func (c *Controller) SetTransientEntry(url string) bool {
	fixed, ok := FixupURL(url)
	if !ok {
		return false
	}
	e := newEntry(c.cfg.IDs.NextID(), fixed, Referrer{}, TransitionLink)
	e.pageType = PageInterstitial
	e.timestamp = c.cfg.Clock()
	c.transient = e
	return true
}

// fixPendingIndex re-resolves a history pending entry after the list changed,
// dropping it when its entry is gone
func (c *Controller) fixPendingIndex() {
	if c.pending == nil || c.pendingIndex == -1 {
		return
	}
	idx := c.IndexOfEntry(c.pending)
	if idx == -1 {
		c.discardPending(false)
		c.metrics.RecordDiscard("pending_pruned")
		return
	}
	c.pendingIndex = idx
}
