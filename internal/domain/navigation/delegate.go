package navigation

import (
	"sync/atomic"
)

// Navigator carries out frame navigations on behalf of the controller.
// NavigateToPendingEntry starts loading entry in the given frame and
// reports whether the request was accepted; the commit arrives later
// through Controller.RendererDidNavigate.
type Navigator interface {
	NavigateToPendingEntry(frameTreeNodeID int64, entry *Entry, reload ReloadType) bool
	// Stop cancels every in-flight navigation of the tab.
	Stop()
	// HasAccessedInitialDocument reports whether script touched the initial
	// blank document, which makes it unsafe to show a pending URL over it.
	HasAccessedInitialDocument() bool
}

// FrameLookup is the read-only view of the live frame tree the controller
// needs
type FrameLookup interface {
	RootID() int64
	Contains(id int64) bool
	Parent(id int64) (int64, bool)
	FindByName(name string) (int64, bool)
}

// Observer receives notifications after the controller changes state
type Observer interface {
	NavigationEntryCommitted(details LoadCommittedDetails)
	NavigationListPruned(details PrunedDetails)
	NavigationEntryChanged(details EntryChangedDetails)
}

// ObserverFuncs adapts optional callbacks to Observer
type ObserverFuncs struct {
	Committed func(LoadCommittedDetails)
	Pruned    func(PrunedDetails)
	Changed   func(EntryChangedDetails)
}

func (o ObserverFuncs) NavigationEntryCommitted(d LoadCommittedDetails) {
	if o.Committed != nil {
		o.Committed(d)
	}
}

func (o ObserverFuncs) NavigationListPruned(d PrunedDetails) {
	if o.Pruned != nil {
		o.Pruned(d)
	}
}

func (o ObserverFuncs) NavigationEntryChanged(d EntryChangedDetails) {
	if o.Changed != nil {
		o.Changed(d)
	}
}

// Metrics records controller activity
type Metrics interface {
	RecordCommit(t NavigationType)
	RecordPruned(count int)
	RecordDiscard(reason string)
	RecordInconsistency(kind string)
}

type nopMetrics struct{}

func (nopMetrics) RecordCommit(NavigationType) {}
func (nopMetrics) RecordPruned(int)            {}
func (nopMetrics) RecordDiscard(string)        {}
func (nopMetrics) RecordInconsistency(string)  {}

// IDSource hands out entry unique IDs. Sources may be shared between
// controllers so that copied entries never collide.
type IDSource interface {
	NextID() int64
}

// SequenceIDs is a goroutine-safe monotonic IDSource starting at 1
type SequenceIDs struct {
	last atomic.Int64
}

// NextID returns the next ID
func (s *SequenceIDs) NextID() int64 {
	return s.last.Add(1)
}
