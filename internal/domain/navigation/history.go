package navigation

import (
	"go.uber.org/zap"
)

// A transient entry sits conceptually right after the last committed entry,
// so offsets are computed in a list that includes it.

func (c *Controller) offsetBase() int {
	if c.transient != nil {
		return c.lastCommittedIndex + 1
	}
	return c.CurrentEntryIndex()
}

func (c *Controller) offsetListLen() int {
	if c.transient != nil {
		return len(c.entries) + 1
	}
	return len(c.entries)
}

// CanGoBack reports whether GoBack would do anything
func (c *Controller) CanGoBack() bool {
	return c.CanGoToOffset(-1)
}

// CanGoForward reports whether GoForward would do anything
func (c *Controller) CanGoForward() bool {
	return c.CanGoToOffset(1)
}

// CanGoToOffset reports whether offset lands inside the list
func (c *Controller) CanGoToOffset(offset int) bool {
	idx := c.offsetBase() + offset
	return offset != 0 && idx >= 0 && idx < c.offsetListLen()
}

// GoBack navigates one entry back
func (c *Controller) GoBack() bool {
	return c.GoToOffset(-1)
}

// GoForward navigates one entry forward
func (c *Controller) GoForward() bool {
	return c.GoToOffset(1)
}

// GoToOffset navigates relative to the current entry
func (c *Controller) GoToOffset(offset int) bool {
	if !c.CanGoToOffset(offset) {
		c.log.Debug("history offset rejected", zap.Int("offset", offset))
		return false
	}
	target := c.offsetBase() + offset
	if c.transient != nil {
		transientIdx := c.lastCommittedIndex + 1
		if target > transientIdx {
			target--
		}
	}
	return c.GoToIndex(target)
}

// GoToIndex makes the entry at i pending and asks the navigator to load it.
// The pending entry is the list entry itself, not a copy.
func (c *Controller) GoToIndex(i int) bool {
	if i < 0 || i >= len(c.entries) {
		c.log.Debug("history index rejected", zap.Int("index", i), zap.Int("count", len(c.entries)))
		return false
	}

	c.DiscardNonCommittedEntries()

	c.pending = c.entries[i]
	c.pendingIndex = i
	c.pending.transition = c.pending.transition.With(TransitionForwardBack)
	return c.navigateToPendingEntry(ReloadNone)
}

// Reload re-navigates the current entry. With checkForRepost, an entry
// holding POST data waits for ContinuePendingReload instead.
func (c *Controller) Reload(checkForRepost bool) bool {
	return c.reload(checkForRepost, ReloadNormal)
}

// ReloadIgnoringCache reloads bypassing caches
func (c *Controller) ReloadIgnoringCache(checkForRepost bool) bool {
	return c.reload(checkForRepost, ReloadIgnoringCache)
}

// ReloadOriginalRequestURL reloads the URL requested before any redirects
func (c *Controller) ReloadOriginalRequestURL(checkForRepost bool) bool {
	return c.reload(checkForRepost, ReloadOriginalRequestURL)
}

func (c *Controller) reload(checkForRepost bool, reloadType ReloadType) bool {
	if c.transient != nil {
		// Reloading an interstitial loads its URL afresh.
		t := c.transient
		return c.LoadURL(t.URL(), Referrer{}, TransitionReload, t.extraHeaders)
	}

	var entry *Entry
	idx := -1
	if c.isInitialNavigation && c.pending != nil {
		entry = c.pending
		idx = c.pendingIndex
	} else {
		c.DiscardNonCommittedEntries()
		idx = c.CurrentEntryIndex()
		entry = c.EntryAtIndex(idx)
	}
	if entry == nil {
		return false
	}

	if reloadType == ReloadOriginalRequestURL && entry.originalRequestURL != "" && !entry.hasPostData {
		entry.setURL(entry.originalRequestURL)
		entry.setReferrer(Referrer{})
	}

	if checkForRepost && entry.hasPostData {
		c.pendingReload = reloadType
		c.log.Debug("reload waiting for repost confirmation", zap.String("url", entry.URL()))
		return false
	}

	if !c.isInitialNavigation {
		c.DiscardNonCommittedEntries()
	}
	c.pending = entry
	c.pendingIndex = idx
	entry.title = ""
	entry.transition = TransitionReload
	return c.navigateToPendingEntry(reloadType)
}

// NeedsRepostConfirmation reports whether a reload is waiting on the user
func (c *Controller) NeedsRepostConfirmation() bool {
	return c.pendingReload != ReloadNone
}

// ContinuePendingReload resumes a reload held for repost confirmation
func (c *Controller) ContinuePendingReload() bool {
	if c.pendingReload == ReloadNone {
		return false
	}
	reloadType := c.pendingReload
	c.pendingReload = ReloadNone
	return c.reload(false, reloadType)
}

// CancelPendingReload forgets a reload held for repost confirmation
func (c *Controller) CancelPendingReload() {
	c.pendingReload = ReloadNone
}

// LoadIfNecessary loads the selected entry after Restore or CopyStateFrom
func (c *Controller) LoadIfNecessary() bool {
	if !c.needsReload {
		return false
	}
	entry := c.LastCommittedEntry()
	if entry == nil {
		c.needsReload = false
		return false
	}
	c.pending = entry
	c.pendingIndex = c.lastCommittedIndex
	return c.navigateToPendingEntry(ReloadNone)
}
