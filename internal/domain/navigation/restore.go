package navigation

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrNotEmpty is returned when history is restored into a used controller
	ErrNotEmpty = errors.New("controller already has entries")
	// ErrIndexOutOfRange is returned for a selected index outside the entries
	ErrIndexOutOfRange = errors.New("selected index out of range")
)

// Restore installs previously saved entries into an empty controller. The
// selected entry becomes the last committed one but nothing loads until
// LoadIfNecessary. Entries get fresh unique IDs.
func (c *Controller) Restore(selected int, restoreType RestoreType, states []EntryState) error {
	if len(c.entries) != 0 || c.pending != nil {
		return ErrNotEmpty
	}
	if selected < 0 || selected >= len(states) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, selected, len(states))
	}

	// Keep the selected entry and as many neighbours as fit, oldest first
	// to go.
	start := 0
	if over := len(states) - c.cfg.MaxEntryCount; over > 0 {
		start = over
		if start > selected {
			start = selected
		}
	}
	end := start + c.cfg.MaxEntryCount
	if end > len(states) {
		end = len(states)
	}

	entries := make([]*Entry, 0, end-start)
	for _, s := range states[start:end] {
		e, err := entryFromState(c.cfg.IDs.NextID(), s)
		if err != nil {
			return fmt.Errorf("restore entry %d: %w", s.UniqueID, err)
		}
		e.restoreType = restoreType
		entries = append(entries, e)
	}

	c.entries = entries
	c.lastCommittedIndex = selected - start
	c.needsReload = true
	c.log.Debug("history restored",
		zap.Int("count", len(entries)),
		zap.Int("selected", c.lastCommittedIndex),
	)
	return nil
}

// CopyStateFrom clones source's history into this empty controller, as
// when duplicating a tab
func (c *Controller) CopyStateFrom(source *Controller) error {
	if len(c.entries) != 0 || c.pending != nil {
		return ErrNotEmpty
	}
	if len(source.entries) == 0 {
		return nil
	}
	states := make([]EntryState, len(source.entries))
	for i, e := range source.entries {
		states[i] = e.State()
	}
	if err := c.Restore(source.lastCommittedIndex, RestoreCurrentSession, states); err != nil {
		return err
	}
	c.isInitialNavigation = source.isInitialNavigation
	return nil
}

// CanPruneAllButLastCommitted reports whether the list can be cut down to
// the current entry without disturbing a pending history navigation
func (c *Controller) CanPruneAllButLastCommitted() bool {
	if c.transient != nil {
		return false
	}
	if c.pending != nil && c.pendingIndex != -1 {
		return false
	}
	return c.lastCommittedIndex != -1
}

// PruneAllButLastCommitted removes every entry but the last committed one
func (c *Controller) PruneAllButLastCommitted() bool {
	if !c.CanPruneAllButLastCommitted() {
		return false
	}
	n := len(c.entries) - 1
	c.entries = []*Entry{c.entries[c.lastCommittedIndex]}
	c.lastCommittedIndex = 0
	if n > 0 {
		c.notifyPruned(PrunedDetails{Count: n})
	}
	return true
}

// RemoveEntryAtIndex deletes an entry that is neither showing nor pending
func (c *Controller) RemoveEntryAtIndex(i int) bool {
	if i < 0 || i >= len(c.entries) || i == c.lastCommittedIndex || i == c.pendingIndex {
		return false
	}
	c.DiscardNonCommittedEntries()
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	if c.lastCommittedIndex > i {
		c.lastCommittedIndex--
	}
	return true
}

// ============================================================================
// Entry metadata
// ============================================================================

func (c *Controller) updateEntry(uniqueID int64, fn func(*Entry) bool) bool {
	idx := c.EntryIndexWithUniqueID(uniqueID)
	var e *Entry
	switch {
	case idx >= 0:
		e = c.entries[idx]
	case c.pending != nil && c.pending.uniqueID == uniqueID:
		e = c.pending
	case c.transient != nil && c.transient.uniqueID == uniqueID:
		e = c.transient
	default:
		return false
	}
	if !fn(e) {
		return false
	}
	c.notifyChanged(EntryChangedDetails{Entry: e, Index: idx})
	return true
}

// SetTitle records the document title of an entry
func (c *Controller) SetTitle(uniqueID int64, title string) bool {
	return c.updateEntry(uniqueID, func(e *Entry) bool {
		if e.title == title {
			return false
		}
		e.title = title
		return true
	})
}

// SetFavicon records the favicon of an entry
func (c *Controller) SetFavicon(uniqueID int64, favicon FaviconStatus) bool {
	return c.updateEntry(uniqueID, func(e *Entry) bool {
		e.favicon = FaviconStatus{URL: favicon.URL, Valid: favicon.Valid, Image: append([]byte(nil), favicon.Image...)}
		return true
	})
}

// SetSSLStatus records the security state of an entry
func (c *Controller) SetSSLStatus(uniqueID int64, ssl SSLStatus) bool {
	return c.updateEntry(uniqueID, func(e *Entry) bool {
		e.ssl = ssl
		return true
	})
}
