package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigateAndReplaceKeepsOneEntry(t *testing.T) {
	h := newHarness(t)

	h.navigate("data:text/html,page1")
	require.Equal(t, 1, h.ctrl.EntryCount())

	require.True(t, h.ctrl.LoadURLWithParams(LoadURLParams{
		URL:                  "data:text/html,page2",
		ShouldReplaceCurrent: true,
	}))
	d := h.commit(h.root(), CommitParams{
		URL:               "data:text/html,page2",
		NavEntryID:        h.ctrl.PendingEntry().UniqueID(),
		DidCreateNewEntry: true,
	})

	assert.Equal(t, NewPage, d.Type)
	assert.True(t, d.DidReplaceEntry)
	assert.Equal(t, 1, h.ctrl.EntryCount())
	assert.Equal(t, "data:text/html,page2", h.ctrl.EntryAtIndex(0).URL())
}

func TestScriptCreatedFramesAreTrackedWithoutNewEntries(t *testing.T) {
	h := newHarness(t)
	h.navigate("https://example.test/frames.html")

	first, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)
	d := h.commit(first, CommitParams{URL: "https://example.test/a.html", Transition: TransitionAutoSubframe})
	assert.Equal(t, AutoSubframe, d.Type)

	second, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)
	d = h.commit(second, CommitParams{URL: "https://example.test/b.html", Transition: TransitionAutoSubframe})
	assert.Equal(t, AutoSubframe, d.Type)

	tree := h.ctrl.LastCommittedEntry().Frames()
	require.Equal(t, 2, tree.ChildCount(0))
	assert.Equal(t, 1, h.ctrl.EntryCount())

	nested, err := h.frames.AddChild(second, "", "renderer-1")
	require.NoError(t, err)
	h.commit(nested, CommitParams{URL: "https://example.test/c.html", Transition: TransitionAutoSubframe})

	tree = h.ctrl.LastCommittedEntry().Frames()
	require.Equal(t, 2, tree.ChildCount(0))
	secondIdx, ok := tree.Find(second)
	require.True(t, ok)
	assert.Equal(t, 1, tree.ChildCount(secondIdx))
	assert.Equal(t, "https://example.test/c.html", tree.At(tree.Children(secondIdx)[0]).URL)
	assert.Equal(t, 1, h.ctrl.EntryCount())
}

func TestFailedLoadCommitsErrorPage(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	const failing = "https://unreachable.test/"

	loadAndFail := func(didCreateNewEntry bool) LoadCommittedDetails {
		require.True(t, h.ctrl.LoadURL(failing, Referrer{}, TransitionTyped, ""))
		id := h.ctrl.PendingEntry().UniqueID()
		h.ctrl.DiscardPendingEntry(true)
		require.Nil(t, h.ctrl.PendingEntry())
		return h.commit(h.root(), CommitParams{
			URL:               failing,
			NavEntryID:        id,
			DidCreateNewEntry: didCreateNewEntry,
			URLIsUnreachable:  true,
		})
	}

	d := loadAndFail(true)
	assert.Equal(t, NewPage, d.Type)
	assert.Equal(t, PageError, d.Entry.PageType())
	assert.Equal(t, 2, h.ctrl.EntryCount())

	// The renderer replaces an error page for the URL it already shows.
	d = loadAndFail(false)
	assert.Equal(t, ExistingPage, d.Type)
	assert.Equal(t, PageError, d.Entry.PageType())
	assert.Equal(t, 2, h.ctrl.EntryCount())
	assert.Equal(t, 1, h.ctrl.LastCommittedEntryIndex())
}

func TestPushStateThenBackIsSameDocument(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	first := h.ctrl.LastCommittedEntry()

	d := h.commit(h.root(), CommitParams{
		URL:               "https://example.test/page1.html/state",
		Transition:        TransitionLink,
		WasWithinSamePage: true,
		DidCreateNewEntry: true,
	})
	assert.Equal(t, InPage, d.Type)
	assert.True(t, d.IsInPage)
	assert.Equal(t, SpliceAppend, d.Splice)
	assert.Equal(t, 2, h.ctrl.EntryCount())
	assert.NotEqual(t, first.UniqueID(), d.Entry.UniqueID())

	require.True(t, h.ctrl.GoBack())
	d = h.commit(h.root(), CommitParams{
		URL:               pageURL(1),
		Transition:        TransitionLink.With(TransitionForwardBack),
		WasWithinSamePage: true,
		NavEntryID:        first.UniqueID(),
	})
	assert.Equal(t, InPage, d.Type)
	assert.Equal(t, SpliceMove, d.Splice)
	assert.Equal(t, 0, h.ctrl.LastCommittedEntryIndex())
	assert.Equal(t, 2, h.ctrl.EntryCount())
	assert.Nil(t, h.ctrl.PendingEntry())
}

func TestReplaceStateKeepsUnrelatedPendingEntry(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))

	require.True(t, h.ctrl.LoadURL(pageURL(2), Referrer{}, TransitionLink, ""))
	pending := h.ctrl.PendingEntry()

	d := h.commit(h.root(), CommitParams{
		URL:               "https://example.test/replaced.html",
		WasWithinSamePage: true,
	})
	assert.Equal(t, InPage, d.Type)
	assert.Equal(t, SpliceReplace, d.Splice)
	assert.True(t, d.DidReplaceEntry)
	assert.Equal(t, 1, h.ctrl.EntryCount())
	assert.Equal(t, "https://example.test/replaced.html", h.ctrl.LastCommittedEntry().URL())

	assert.Same(t, pending, h.ctrl.PendingEntry())
	assert.Equal(t, pageURL(2), h.ctrl.PendingEntry().URL())
}

func TestFragmentPushKeepsUnrelatedPendingEntry(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	require.True(t, h.ctrl.LoadURL(pageURL(2), Referrer{}, TransitionLink, ""))

	d := h.commit(h.root(), CommitParams{
		URL:               pageURL(1) + "#top",
		WasWithinSamePage: true,
		DidCreateNewEntry: true,
	})
	assert.Equal(t, InPage, d.Type)
	assert.Equal(t, 2, h.ctrl.EntryCount())
	require.NotNil(t, h.ctrl.PendingEntry())
	assert.Equal(t, pageURL(2), h.ctrl.PendingEntry().URL())
}

func TestLoadOfCurrentURLIsSamePage(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))

	require.True(t, h.ctrl.LoadURL(pageURL(1), Referrer{}, TransitionTyped, ""))
	id := h.ctrl.PendingEntry().UniqueID()
	d := h.commit(h.root(), CommitParams{URL: pageURL(1), NavEntryID: id})

	assert.Equal(t, SamePage, d.Type)
	assert.Equal(t, SpliceUpdate, d.Splice)
	assert.Equal(t, 1, h.ctrl.EntryCount())
	assert.Equal(t, id, h.ctrl.LastCommittedEntry().UniqueID())
	assert.Nil(t, h.ctrl.PendingEntry())
}

func TestSameDocumentCommitWithNothingCommitted(t *testing.T) {
	h := newHarness(t)

	d, ok := h.ctrl.RendererDidNavigate(h.root(), CommitParams{
		URL:               pageURL(1) + "#x",
		WasWithinSamePage: true,
	})
	require.True(t, ok)
	assert.Equal(t, NewPage, d.Type)
	assert.Equal(t, 1, h.ctrl.EntryCount())
	assert.Equal(t, 1, h.metrics.inconsistencies["same_document_without_entry"])
}

func TestRendererReloadWithNothingCommittedIsIgnored(t *testing.T) {
	h := newHarness(t)

	d, ok := h.ctrl.RendererDidNavigate(h.root(), CommitParams{URL: pageURL(1)})
	assert.False(t, ok)
	assert.Equal(t, NavIgnore, d.Type)
	assert.Equal(t, 0, h.ctrl.EntryCount())
	assert.Equal(t, 1, h.metrics.commits[NavIgnore])
}

func TestClientRedirectUpdatesCurrentEntry(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	id := h.ctrl.LastCommittedEntry().UniqueID()

	d := h.commit(h.root(), CommitParams{
		URL:        pageURL(2),
		Transition: TransitionLink.With(TransitionClientRedirect),
	})
	assert.Equal(t, ExistingPage, d.Type)
	assert.Equal(t, SpliceUpdate, d.Splice)
	assert.Equal(t, 1, h.ctrl.EntryCount())
	assert.Equal(t, id, d.Entry.UniqueID())
	assert.Equal(t, pageURL(2), d.Entry.URL())
}

func TestSubframeCommitOnEmptyPageIsIgnored(t *testing.T) {
	h := newHarness(t)
	child, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)

	d, ok := h.ctrl.RendererDidNavigate(child, CommitParams{
		URL:               "https://example.test/frame.html",
		DidCreateNewEntry: true,
	})
	assert.False(t, ok)
	assert.Equal(t, NavIgnore, d.Type)
	assert.Equal(t, 0, h.ctrl.EntryCount())
}

func TestSubframeClassification(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	child, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)

	d := h.commit(child, CommitParams{URL: "https://example.test/f1.html", Transition: TransitionManualSubframe})
	assert.Equal(t, NewSubframe, d.Type, "first commit of a frame establishes state")
	assert.Equal(t, SpliceUpdate, d.Splice)

	d = h.commit(child, CommitParams{URL: "https://example.test/f1.html", Transition: TransitionManualSubframe})
	assert.Equal(t, AutoSubframe, d.Type, "the frame now has state")

	d = h.commit(child, CommitParams{
		URL:               "https://example.test/f2.html",
		Transition:        TransitionManualSubframe,
		DidCreateNewEntry: true,
	})
	assert.Equal(t, NewSubframe, d.Type)
	assert.Equal(t, 1, h.ctrl.EntryCount())

	fe, ok := h.ctrl.LastCommittedEntry().FrameEntryFor(child)
	require.True(t, ok)
	assert.Equal(t, "https://example.test/f2.html", fe.URL)
	assert.Equal(t, pageURL(1), h.ctrl.LastCommittedEntry().URL())
}

func TestSubframeTrackingDisabledKeepsOnlyMainFrame(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.SubframeEntryTracking = false })
	h.navigate(pageURL(1))
	child, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)

	d := h.commit(child, CommitParams{URL: "https://example.test/f.html", Transition: TransitionAutoSubframe})
	assert.Equal(t, AutoSubframe, d.Type)
	d = h.commit(child, CommitParams{URL: "https://example.test/g.html", Transition: TransitionManualSubframe})
	assert.Equal(t, NewSubframe, d.Type)

	assert.Equal(t, 1, h.ctrl.LastCommittedEntry().Frames().Len())
	assert.Equal(t, 1, h.ctrl.EntryCount())
}

func TestNewDocumentDropsSubframeState(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	child, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)
	h.commit(child, CommitParams{URL: "https://example.test/f.html", Transition: TransitionAutoSubframe})
	require.Equal(t, 2, h.ctrl.LastCommittedEntry().Frames().Len())

	h.commit(h.root(), CommitParams{URL: pageURL(1) + "#a", WasWithinSamePage: true, DidCreateNewEntry: true})
	assert.Equal(t, 2, h.ctrl.LastCommittedEntry().Frames().Len(), "same-document commits keep frames")

	h.navigate(pageURL(2))
	assert.Equal(t, 1, h.ctrl.LastCommittedEntry().Frames().Len())
	assert.Equal(t, 2, h.ctrl.EntryAtIndex(0).Frames().Len(), "older entries keep their own trees")
}

func TestHistoryListWasCleared(t *testing.T) {
	h := newHarness(t)
	for i := 1; i <= 3; i++ {
		h.navigate(pageURL(i))
	}

	require.True(t, h.ctrl.LoadURLWithParams(LoadURLParams{URL: pageURL(4), ShouldClearHistory: true}))
	assert.True(t, h.ctrl.PendingEntry().ShouldClearHistoryList())
	d := h.commit(h.root(), CommitParams{
		URL:                   pageURL(4),
		NavEntryID:            h.ctrl.PendingEntry().UniqueID(),
		DidCreateNewEntry:     true,
		HistoryListWasCleared: true,
	})

	assert.Equal(t, NewPage, d.Type)
	assert.Equal(t, []string{pageURL(4)}, h.urls())
	assert.Equal(t, 0, h.ctrl.LastCommittedEntryIndex())
	assert.False(t, h.ctrl.CanGoBack())
}

func TestCommitClearsPendingOnlyFields(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.ctrl.LoadURLWithParams(LoadURLParams{
		URL:                 pageURL(1),
		ExtraHeaders:        "X-A: b",
		RedirectChain:       []string{"https://start.test/"},
		IsRendererInitiated: true,
	}))

	d := h.commit(h.root(), CommitParams{
		URL:               pageURL(1),
		NavEntryID:        h.ctrl.PendingEntry().UniqueID(),
		DidCreateNewEntry: true,
		HTTPStatusCode:    200,
	})
	assert.Empty(t, d.Entry.ExtraHeaders())
	assert.Empty(t, d.Entry.RedirectChain())
	assert.False(t, d.Entry.IsRendererInitiated())
	assert.Equal(t, 200, d.Entry.HTTPStatusCode())
	assert.Equal(t, PageStateFromURL(pageURL(1)), d.Entry.PageState())
}

func TestObserversSeeCommitDetails(t *testing.T) {
	h := newHarness(t)
	h.navigate(pageURL(1))
	h.navigate(pageURL(2))

	require.Len(t, h.committed, 2)
	d := h.committed[1]
	assert.Equal(t, NewPage, d.Type)
	assert.True(t, d.IsMainFrame)
	assert.Equal(t, pageURL(1), d.PreviousURL)
	assert.Equal(t, 0, d.PreviousEntryIndex)
	assert.Equal(t, 1, d.EntryIndex)
	assert.True(t, d.IsNavigationToDifferentPage())
	assert.Equal(t, 2, h.metrics.commits[NewPage])
}

// restoreTwoFrameStates installs two entries that share a main frame
// document and differ only in one subframe's state
func restoreTwoFrameStates(t *testing.T, h *harness) int64 {
	t.Helper()
	child, err := h.frames.AddChild(h.root(), "panel", "renderer-1")
	require.NoError(t, err)

	state := func(childURL string, item int64) EntryState {
		return EntryState{
			Transition: TransitionLink,
			Frames: []FrameEntryRecord{
				{
					FrameEntry: FrameEntry{FrameTreeNodeID: h.root(), ItemSequence: 1, DocumentSequence: 1, URL: pageURL(1)},
					Parent:     -1,
					Children:   []int{1},
				},
				{
					FrameEntry: FrameEntry{FrameTreeNodeID: child, FrameName: "panel", ItemSequence: item, DocumentSequence: item, URL: childURL},
					Parent:     0,
				},
			},
		}
	}
	require.NoError(t, h.ctrl.Restore(1, RestoreLastSession, []EntryState{
		state("https://example.test/panel-a.html", 10),
		state("https://example.test/panel-b.html", 11),
	}))
	return child
}

func TestHistoryNavigationTargetsRootByDefault(t *testing.T) {
	h := newHarness(t)
	restoreTwoFrameStates(t, h)

	require.True(t, h.ctrl.GoBack())
	assert.Equal(t, h.root(), h.nav.last().frameID)
	assert.Equal(t, pageURL(1), h.nav.last().url)
}

func TestSubframeHistoryNavigationTargetsDifferingFrame(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.SubframeHistoryNavigation = true })
	child := restoreTwoFrameStates(t, h)
	target := h.ctrl.EntryAtIndex(0)

	require.True(t, h.ctrl.GoBack())
	assert.Equal(t, child, h.nav.last().frameID)
	assert.Equal(t, "https://example.test/panel-a.html", h.nav.last().url)

	d := h.commit(child, CommitParams{
		URL:                    "https://example.test/panel-a.html",
		Transition:             TransitionAutoSubframe,
		NavEntryID:             target.UniqueID(),
		ItemSequenceNumber:     10,
		DocumentSequenceNumber: 10,
		FrameName:              "panel",
	})
	assert.Equal(t, AutoSubframe, d.Type)
	assert.Equal(t, SpliceMove, d.Splice)
	assert.Equal(t, 0, h.ctrl.LastCommittedEntryIndex())
	assert.Nil(t, h.ctrl.PendingEntry())
}

func TestSubframeHistoryNavigationFallsBackToRoot(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.SubframeHistoryNavigation = true })
	child := restoreTwoFrameStates(t, h)

	// The frame is gone from the live tree, so only a full load can
	// restore the entry.
	require.NoError(t, h.frames.RemoveChild(child))
	require.True(t, h.ctrl.GoBack())
	assert.Equal(t, h.root(), h.nav.last().frameID)
}

func TestSubframeCommitCannotMoveAcrossOrigins(t *testing.T) {
	h := newHarness(t)
	h.navigate("https://a.test/")
	child, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)
	h.commit(child, CommitParams{URL: "https://a.test/f.html", Transition: TransitionAutoSubframe})
	h.navigate("https://b.test/")
	other := h.ctrl.EntryAtIndex(0).UniqueID()

	d := h.commit(child, CommitParams{
		URL:        "https://a.test/f.html",
		Transition: TransitionAutoSubframe,
		NavEntryID: other,
	})
	assert.Equal(t, AutoSubframe, d.Type)
	assert.Equal(t, 1, h.ctrl.LastCommittedEntryIndex(), "the main frame origin did not change")
	assert.Equal(t, 1, h.metrics.inconsistencies["subframe_origin_change"])
}
