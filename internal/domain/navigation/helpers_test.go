package navigation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/framenav/internal/domain/frametree"
)

type navigateCall struct {
	frameID int64
	entryID int64
	url     string
	reload  ReloadType
}

type fakeNavigator struct {
	calls           []navigateCall
	stops           int
	refuse          bool
	accessedInitial bool
}

func (f *fakeNavigator) NavigateToPendingEntry(frameID int64, e *Entry, reload ReloadType) bool {
	f.calls = append(f.calls, navigateCall{
		frameID: frameID,
		entryID: e.UniqueID(),
		url:     e.URLForFrame(frameID),
		reload:  reload,
	})
	return !f.refuse
}

func (f *fakeNavigator) Stop() { f.stops++ }

func (f *fakeNavigator) HasAccessedInitialDocument() bool { return f.accessedInitial }

func (f *fakeNavigator) last() navigateCall {
	if len(f.calls) == 0 {
		return navigateCall{}
	}
	return f.calls[len(f.calls)-1]
}

type fakeMetrics struct {
	commits         map[NavigationType]int
	pruned          int
	discards        map[string]int
	inconsistencies map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		commits:         make(map[NavigationType]int),
		discards:        make(map[string]int),
		inconsistencies: make(map[string]int),
	}
}

func (m *fakeMetrics) RecordCommit(t NavigationType)   { m.commits[t]++ }
func (m *fakeMetrics) RecordPruned(n int)              { m.pruned += n }
func (m *fakeMetrics) RecordDiscard(reason string)     { m.discards[reason]++ }
func (m *fakeMetrics) RecordInconsistency(kind string) { m.inconsistencies[kind]++ }

// harness drives a Controller the way a tab and its renderer would
type harness struct {
	t         *testing.T
	ctrl      *Controller
	nav       *fakeNavigator
	frames    *frametree.Tree
	metrics   *fakeMetrics
	committed []LoadCommittedDetails
	pruned    []PrunedDetails
	changed   []EntryChangedDetails
	seq       int64
	now       time.Time
}

func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		nav:     &fakeNavigator{},
		frames:  frametree.New("renderer-1"),
		metrics: newFakeMetrics(),
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	cfg := DefaultConfig()
	cfg.Clock = func() time.Time { return h.now }
	cfg.Metrics = h.metrics
	for _, fn := range configure {
		fn(&cfg)
	}
	h.ctrl = New(cfg, h.nav, h.frames)
	h.ctrl.AddObserver(ObserverFuncs{
		Committed: func(d LoadCommittedDetails) { h.committed = append(h.committed, d) },
		Pruned:    func(d PrunedDetails) { h.pruned = append(h.pruned, d) },
		Changed:   func(d EntryChangedDetails) { h.changed = append(h.changed, d) },
	})
	return h
}

func (h *harness) root() int64 { return h.frames.RootID() }

func (h *harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// commit reports a commit for frameID
func (h *harness) commit(frameID int64, p CommitParams) LoadCommittedDetails {
	h.t.Helper()
	if p.ItemSequenceNumber == 0 {
		p.ItemSequenceNumber = h.nextSeq()
	}
	d, _ := h.ctrl.RendererDidNavigate(frameID, p)
	return d
}

// navigate performs a browser-initiated load of url and commits it as a
// new document
func (h *harness) navigate(url string) LoadCommittedDetails {
	h.t.Helper()
	require.True(h.t, h.ctrl.LoadURL(url, Referrer{}, TransitionTyped, ""), "load %s", url)
	pending := h.ctrl.PendingEntry()
	require.NotNil(h.t, pending)
	return h.commit(h.root(), CommitParams{
		URL:                    url,
		Transition:             TransitionTyped,
		NavEntryID:             pending.UniqueID(),
		DidCreateNewEntry:      true,
		DocumentSequenceNumber: h.nextSeq(),
	})
}

// commitPendingHistory commits whatever history navigation is pending as a
// cross-document load of that entry
func (h *harness) commitPendingHistory() LoadCommittedDetails {
	h.t.Helper()
	pending := h.ctrl.PendingEntry()
	require.NotNil(h.t, pending)
	return h.commit(h.root(), CommitParams{
		URL:        pending.URL(),
		Transition: pending.Transition(),
		NavEntryID: pending.UniqueID(),
	})
}

func (h *harness) goBack() LoadCommittedDetails {
	h.t.Helper()
	require.True(h.t, h.ctrl.GoBack())
	return h.commitPendingHistory()
}

func (h *harness) goForward() LoadCommittedDetails {
	h.t.Helper()
	require.True(h.t, h.ctrl.GoForward())
	return h.commitPendingHistory()
}

func (h *harness) urls() []string {
	out := make([]string, h.ctrl.EntryCount())
	for i := range out {
		out[i] = h.ctrl.EntryAtIndex(i).URL()
	}
	return out
}

func pageURL(n int) string {
	return fmt.Sprintf("https://example.test/page%d.html", n)
}
