package navigation

// ClassifyState is the read-only slice of controller state a commit is
// classified against
type ClassifyState struct {
	IsMainFrame bool

	HasLastCommitted bool

	// PendingID is the pending entry's unique ID, 0 when there is none.
	PendingID int64
	// PendingIsNew is true when the pending entry is not in the list.
	PendingIsNew bool

	// FailedPendingID is the ID of the last pending entry discarded because
	// its load failed, 0 when none.
	FailedPendingID int64

	// ExistingIndex is the list index of the entry whose unique ID equals
	// the commit's NavEntryID, -1 when none.
	ExistingIndex int

	// FrameHasCommittedState is true when the last committed entry already
	// records state for the committing subframe.
	FrameHasCommittedState bool
}

// Classify maps a commit to a NavigationType. It is a pure function of its
// inputs and performs no validation beyond what the decision needs.
func Classify(s ClassifyState, p CommitParams) NavigationType {
	if !s.IsMainFrame {
		return classifySubframe(s, p)
	}
	t := classifyMainFrame(s, p)
	if (t == ExistingPage || t == SamePage) && !s.HasLastCommitted && s.ExistingIndex < 0 {
		// There is no entry to update; keep what the renderer shows.
		return NewPage
	}
	return t
}

func classifyMainFrame(s ClassifyState, p CommitParams) NavigationType {
	if p.WasWithinSamePage {
		// A same-document commit needs a document to be the same as. With
		// nothing committed the only consistent reading is a new page.
		if !s.HasLastCommitted {
			return NewPage
		}
		return InPage
	}

	if p.DidCreateNewEntry {
		return NewPage
	}

	if p.NavEntryID == 0 {
		// Renderer-initiated reload or client redirect of the current page.
		if !s.HasLastCommitted {
			return NavIgnore
		}
		return ExistingPage
	}

	if s.PendingID != 0 && s.PendingIsNew && s.PendingID == p.NavEntryID {
		// A new load the renderer turned into a reload of the same URL.
		return SamePage
	}

	if p.IntendedAsNewEntry {
		return ExistingPage
	}

	if p.URLIsUnreachable && s.FailedPendingID != 0 && p.NavEntryID == s.FailedPendingID {
		// Retrying a load whose pending entry was dropped on failure.
		return ExistingPage
	}

	if s.ExistingIndex < 0 {
		// The entry was pruned or discarded; resurrect what the renderer shows.
		return NewPage
	}
	return ExistingPage
}

func classifySubframe(s ClassifyState, p CommitParams) NavigationType {
	if !s.HasLastCommitted {
		return NavIgnore
	}
	if p.DidCreateNewEntry {
		return NewSubframe
	}
	if !s.FrameHasCommittedState && !p.Transition.CoreIs(TransitionAutoSubframe) {
		return NewSubframe
	}
	return AutoSubframe
}
