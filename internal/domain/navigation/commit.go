package navigation

import (
	"go.uber.org/zap"
)

// RendererDidNavigate classifies a commit reported for frameID and splices
// the entry list accordingly. The second result is false when the commit
// was classified NavIgnore and nothing changed.
func (c *Controller) RendererDidNavigate(frameID int64, p CommitParams) (LoadCommittedDetails, bool) {
	details := LoadCommittedDetails{
		Type:               NavIgnore,
		FrameTreeNodeID:    frameID,
		PreviousEntryIndex: c.lastCommittedIndex,
		EntryIndex:         c.lastCommittedIndex,
	}

	if !c.frames.Contains(frameID) {
		c.log.Warn("commit for unknown frame ignored", zap.Int64("frame", frameID))
		c.metrics.RecordInconsistency("unknown_frame")
		return details, false
	}
	details.IsMainFrame = frameID == c.frames.RootID()

	last := c.LastCommittedEntry()
	if last != nil {
		details.PreviousURL = last.URL()
	}

	url, ok := FixupURL(p.URL)
	if !ok {
		c.log.Warn("commit with malformed url ignored", zap.Int64("frame", frameID), zap.String("url", p.URL))
		c.metrics.RecordInconsistency("malformed_url")
		return details, false
	}
	p.URL = url

	if details.IsMainFrame && p.WasWithinSamePage && last != nil && !urlsInPage(last.URL(), p.URL, true) {
		c.log.Warn("cross-origin same-document commit ignored",
			zap.String("from", last.URL()),
			zap.String("to", p.URL),
		)
		c.metrics.RecordInconsistency("cross_origin_same_document")
		return details, false
	}

	replace := false
	if p.URLIsUnreachable && c.failedPendingID != 0 && p.NavEntryID == c.failedPendingID {
		replace = c.failedPendingShouldReplace
	} else if c.pending != nil && c.pending.uniqueID == p.NavEntryID {
		replace = c.pending.shouldReplace
	}
	details.DidReplaceEntry = (replace || p.ShouldReplaceCurrentEntry) && len(c.entries) > 0

	state := c.classifyState(frameID, details.IsMainFrame, p)
	details.Type = Classify(state, p)

	if details.IsMainFrame && p.WasWithinSamePage && !state.HasLastCommitted {
		c.log.Warn("same-document commit with nothing committed, treating as new page",
			zap.String("url", p.URL),
		)
		c.metrics.RecordInconsistency("same_document_without_entry")
	}

	switch details.Type {
	case NewPage:
		c.didNavigateToNewPage(frameID, p, &details)
	case ExistingPage:
		c.didNavigateToExistingPage(frameID, p, &details)
	case SamePage:
		c.didNavigateToSamePage(frameID, p, &details)
	case InPage:
		c.didNavigateInPage(frameID, p, &details)
	case NewSubframe:
		c.didNavigateNewSubframe(frameID, p, &details)
	case AutoSubframe:
		c.didNavigateAutoSubframe(frameID, p, &details)
	default:
		// The commit canceled whatever it was for, but never an unrelated
		// pending load.
		if c.pending != nil && p.NavEntryID != 0 && c.pending.uniqueID == p.NavEntryID {
			c.discardPending(false)
		}
		c.metrics.RecordCommit(NavIgnore)
		c.log.Debug("commit ignored", zap.Int64("frame", frameID), zap.String("url", p.URL))
		return details, false
	}

	c.isInitialNavigation = false

	active := c.LastCommittedEntry()
	active.timestamp = c.smoother.smooth(c.cfg.Clock())
	if p.HTTPStatusCode != 0 {
		active.httpStatusCode = p.HTTPStatusCode
	}
	active.resetForCommit()

	details.Entry = active
	details.EntryIndex = c.lastCommittedIndex
	details.IsInPage = details.IsMainFrame && details.Type == InPage
	details.HTTPStatusCode = p.HTTPStatusCode

	c.metrics.RecordCommit(details.Type)
	c.log.Debug("navigation committed",
		zap.Stringer("type", details.Type),
		zap.Stringer("splice", details.Splice),
		zap.Int64("frame", frameID),
		zap.String("url", p.URL),
		zap.Int("index", c.lastCommittedIndex),
		zap.Int("count", len(c.entries)),
	)
	c.notifyCommitted(details)
	return details, true
}

func (c *Controller) classifyState(frameID int64, isMain bool, p CommitParams) ClassifyState {
	s := ClassifyState{
		IsMainFrame:      isMain,
		HasLastCommitted: c.lastCommittedIndex >= 0,
		FailedPendingID:  c.failedPendingID,
		ExistingIndex:    -1,
	}
	if c.pending != nil {
		s.PendingID = c.pending.uniqueID
		s.PendingIsNew = c.pendingIndex == -1
	}
	if p.NavEntryID != 0 {
		s.ExistingIndex = c.EntryIndexWithUniqueID(p.NavEntryID)
	}
	if !isMain && c.cfg.SubframeEntryTracking {
		if last := c.LastCommittedEntry(); last != nil {
			_, s.FrameHasCommittedState = last.frames.Find(frameID)
		}
	}
	return s
}

func pageTypeFor(p CommitParams) PageType {
	if p.URLIsUnreachable {
		return PageError
	}
	return PageNormal
}

func (c *Controller) didNavigateToNewPage(frameID int64, p CommitParams, d *LoadCommittedDetails) {
	var entry *Entry
	matchesPending := c.pending != nil && c.pendingIndex == -1 && c.pending.uniqueID == p.NavEntryID
	if matchesPending {
		entry = c.pending.Clone()
	} else {
		entry = newEntry(c.cfg.IDs.NextID(), p.URL, p.Referrer, p.Transition)
	}

	if entry.URL() != p.URL {
		// Redirected; a view-source or data virtual URL no longer applies.
		entry.virtualURL = ""
	}
	entry.pageType = pageTypeFor(p)
	entry.transition = p.Transition
	entry.hasPostData = p.IsPost
	entry.postID = p.PostID
	entry.overridingUA = p.IsOverridingUserAgent
	if p.OriginalRequestURL != "" {
		entry.originalRequestURL = p.OriginalRequestURL
	} else if entry.originalRequestURL == "" {
		entry.originalRequestURL = p.URL
	}
	c.setRootFrameEntry(entry, frameID, p, false)

	if matchesPending {
		c.discardPending(false)
	}

	replace := d.DidReplaceEntry
	if p.HistoryListWasCleared {
		c.clearHistory()
		replace = false
		d.DidReplaceEntry = false
	}
	c.insertOrReplaceEntry(entry, replace, d)
}

func (c *Controller) clearHistory() {
	c.DiscardNonCommittedEntries()
	n := len(c.entries)
	c.entries = nil
	c.lastCommittedIndex = -1
	if n > 0 {
		c.notifyPruned(PrunedDetails{FromFront: true, Count: n})
	}
}

// insertOrReplaceEntry either overwrites the current entry in place or
// truncates forward history and appends, pruning the oldest entry when the
// list is full
func (c *Controller) insertOrReplaceEntry(entry *Entry, replace bool, d *LoadCommittedDetails) {
	c.DiscardTransientEntry()

	if replace && c.lastCommittedIndex >= 0 {
		c.entries[c.lastCommittedIndex] = entry
		c.fixPendingIndex()
		d.Splice = SpliceReplace
		return
	}

	if forward := len(c.entries) - 1 - c.lastCommittedIndex; forward > 0 && len(c.entries) > 0 {
		for i := c.lastCommittedIndex + 1; i < len(c.entries); i++ {
			c.entries[i] = nil
		}
		c.entries = c.entries[:c.lastCommittedIndex+1]
		c.fixPendingIndex()
		c.notifyPruned(PrunedDetails{FromFront: false, Count: forward})
	}

	c.pruneOldestIfFull()

	c.entries = append(c.entries, entry)
	c.lastCommittedIndex = len(c.entries) - 1
	d.Splice = SpliceAppend
}

func (c *Controller) pruneOldestIfFull() {
	pruned := 0
	for len(c.entries) > 0 && len(c.entries) >= c.cfg.MaxEntryCount {
		c.entries[0] = nil
		c.entries = append(c.entries[:0], c.entries[1:]...)
		c.lastCommittedIndex--
		pruned++
	}
	if pruned > 0 {
		c.fixPendingIndex()
		c.notifyPruned(PrunedDetails{FromFront: true, Count: pruned})
	}
}

func (c *Controller) didNavigateToExistingPage(frameID int64, p CommitParams, d *LoadCommittedDetails) {
	idx := -1
	if p.NavEntryID != 0 && !p.IntendedAsNewEntry {
		idx = c.EntryIndexWithUniqueID(p.NavEntryID)
	}
	if idx < 0 {
		// Reloads, client redirects and retried failed loads land on the
		// current entry.
		idx = c.lastCommittedIndex
	}
	entry := c.entries[idx]

	entry.pageType = pageTypeFor(p)
	if p.Transition.IsRedirect() {
		entry.favicon = FaviconStatus{}
	}
	entry.hasPostData = p.IsPost
	entry.postID = p.PostID
	c.setRootFrameEntry(entry, frameID, p, true)

	c.DiscardNonCommittedEntries()

	if idx != c.lastCommittedIndex {
		d.Splice = SpliceMove
	} else {
		d.Splice = SpliceUpdate
	}
	c.lastCommittedIndex = idx
}

func (c *Controller) didNavigateToSamePage(frameID int64, p CommitParams, d *LoadCommittedDetails) {
	entry := c.LastCommittedEntry()

	// The user asked for a new load; the entry takes the request's identity.
	entry.uniqueID = c.pending.uniqueID
	entry.pageType = pageTypeFor(p)
	entry.hasPostData = p.IsPost
	entry.postID = p.PostID
	c.setRootFrameEntry(entry, frameID, p, true)

	c.DiscardNonCommittedEntries()
	d.Splice = SpliceUpdate
}

// didNavigateInPage handles the three same-document shapes: a new history
// item (pushState, fragment), a traversal between items of one document,
// and replaceState. None of them cancels an unrelated pending load.
func (c *Controller) didNavigateInPage(frameID int64, p CommitParams, d *LoadCommittedDetails) {
	last := c.LastCommittedEntry()
	c.DiscardTransientEntry()

	matchesPending := c.pending != nil && p.NavEntryID != 0 && c.pending.uniqueID == p.NavEntryID

	if p.DidCreateNewEntry && !d.DidReplaceEntry {
		entry := last.Clone()
		if matchesPending && c.pendingIndex == -1 {
			entry.uniqueID = c.pending.uniqueID
		} else {
			entry.uniqueID = c.cfg.IDs.NextID()
		}
		entry.virtualURL = ""
		entry.transition = p.Transition
		entry.pageType = pageTypeFor(p)
		entry.hasPostData = p.IsPost
		entry.postID = p.PostID
		c.setRootFrameEntry(entry, frameID, p, true)
		if matchesPending {
			c.discardPending(false)
		}
		c.insertOrReplaceEntry(entry, false, d)
		return
	}

	if idx := c.EntryIndexWithUniqueID(p.NavEntryID); p.NavEntryID != 0 && idx >= 0 && idx != c.lastCommittedIndex {
		entry := c.entries[idx]
		entry.pageType = pageTypeFor(p)
		c.setRootFrameEntry(entry, frameID, p, true)
		if matchesPending {
			c.discardPending(false)
		}
		c.lastCommittedIndex = idx
		d.Splice = SpliceMove
		return
	}

	last.virtualURL = ""
	last.pageType = pageTypeFor(p)
	last.hasPostData = p.IsPost
	last.postID = p.PostID
	c.setRootFrameEntry(last, frameID, p, true)
	if matchesPending {
		c.discardPending(false)
	}
	d.DidReplaceEntry = true
	d.Splice = SpliceReplace
}

func (c *Controller) didNavigateNewSubframe(frameID int64, p CommitParams, d *LoadCommittedDetails) {
	if c.recordSubframe(c.LastCommittedEntry(), frameID, p) {
		d.Splice = SpliceUpdate
	}
	if c.pending != nil && p.NavEntryID != 0 && c.pending.uniqueID == p.NavEntryID {
		c.discardPending(false)
	}
}

func (c *Controller) didNavigateAutoSubframe(frameID int64, p CommitParams, d *LoadCommittedDetails) {
	last := c.LastCommittedEntry()

	// A subframe history navigation may land on another entry of the list.
	if idx := c.EntryIndexWithUniqueID(p.NavEntryID); p.NavEntryID != 0 && idx >= 0 && idx != c.lastCommittedIndex {
		target := c.entries[idx]
		if OriginOf(target.URL()) != OriginOf(last.URL()) {
			// Moving would change the main frame origin without a main frame
			// commit, which could spoof the address bar.
			c.log.Warn("subframe commit would change main frame origin",
				zap.String("current", last.URL()),
				zap.String("target", target.URL()),
			)
			c.metrics.RecordInconsistency("subframe_origin_change")
		} else {
			c.recordSubframe(target, frameID, p)
			c.lastCommittedIndex = idx
			c.DiscardNonCommittedEntries()
			d.Splice = SpliceMove
			return
		}
	}

	if c.recordSubframe(last, frameID, p) {
		d.Splice = SpliceUpdate
	}
}

// setRootFrameEntry writes the main frame's committed state into entry.
// keepChildren is false for new documents, whose subframes commit afresh.
func (c *Controller) setRootFrameEntry(entry *Entry, frameID int64, p CommitParams, keepChildren bool) {
	pageState := p.PageState
	if len(pageState) == 0 {
		pageState = PageStateFromURL(p.URL)
	}
	root := FrameEntry{
		FrameTreeNodeID:  frameID,
		ItemSequence:     p.ItemSequenceNumber,
		DocumentSequence: p.DocumentSequenceNumber,
		URL:              p.URL,
		Referrer:         p.Referrer,
		Origin:           OriginOf(p.URL),
		PageState:        pageState,
	}
	entry.frames.SetRoot(root, keepChildren && c.cfg.SubframeEntryTracking)
}

// recordSubframe adds or updates the subframe's node in entry. It reports
// whether the tree changed.
func (c *Controller) recordSubframe(entry *Entry, frameID int64, p CommitParams) bool {
	if !c.cfg.SubframeEntryTracking || entry == nil {
		return false
	}
	parent, ok := c.frames.Parent(frameID)
	if !ok {
		return false
	}
	pageState := p.PageState
	if len(pageState) == 0 {
		pageState = PageStateFromURL(p.URL)
	}
	fe := FrameEntry{
		FrameTreeNodeID:  frameID,
		FrameName:        p.FrameName,
		ItemSequence:     p.ItemSequenceNumber,
		DocumentSequence: p.DocumentSequenceNumber,
		URL:              p.URL,
		Referrer:         p.Referrer,
		Origin:           OriginOf(p.URL),
		PageState:        pageState,
	}
	if !entry.frames.AddOrUpdate(parent, fe, c.frames.Contains) {
		c.log.Debug("subframe commit has no recorded parent",
			zap.Int64("frame", frameID),
			zap.Int64("parent", parent),
		)
		return false
	}
	return true
}
