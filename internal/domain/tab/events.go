package tab

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/frametree"
	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
)

// event is one unit of work for the tab's loop
type event interface {
	apply(t *Tab)
}

type result[T any] struct {
	val T
	err error
}

// callResult runs a round trip whose reply carries its own error
func callResult[T any](ctx context.Context, t *Tab, ev event, reply chan result[T]) (T, error) {
	r, err := call(ctx, t, ev, reply)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.val, r.err
}

// ============================================================================
// Browser-initiated
// ============================================================================

type loadURLEvent struct {
	params navigation.LoadURLParams
	reply  chan bool
}

func (e loadURLEvent) apply(t *Tab) {
	e.reply <- t.ctrl.LoadURLWithParams(e.params)
}

// LoadURL asks the controller to load p. False means the request was
// rejected and no pending entry exists for it.
func (t *Tab) LoadURL(ctx context.Context, p navigation.LoadURLParams) (bool, error) {
	reply := make(chan bool, 1)
	return call(ctx, t, loadURLEvent{params: p, reply: reply}, reply)
}

// Navigate loads url as if typed into the address bar
func (t *Tab) Navigate(ctx context.Context, url string) (bool, error) {
	return t.LoadURL(ctx, navigation.LoadURLParams{
		URL:        url,
		Transition: navigation.TransitionTyped.With(navigation.TransitionFromAddressBar),
	})
}

type historyEvent struct {
	op    HistoryOp
	n     int
	reply chan bool
}

func (e historyEvent) apply(t *Tab) {
	var ok bool
	switch e.op {
	case HistoryBack:
		ok = t.ctrl.GoBack()
	case HistoryForward:
		ok = t.ctrl.GoForward()
	case HistoryIndex:
		ok = t.ctrl.GoToIndex(e.n)
	case HistoryOffset:
		ok = t.ctrl.GoToOffset(e.n)
	}
	e.reply <- ok
}

// History traverses the back/forward list. n is the index or offset for
// HistoryIndex and HistoryOffset and ignored otherwise.
func (t *Tab) History(ctx context.Context, op HistoryOp, n int) (bool, error) {
	reply := make(chan bool, 1)
	return call(ctx, t, historyEvent{op: op, n: n, reply: reply}, reply)
}

type reloadEvent struct {
	kind           navigation.ReloadType
	checkForRepost bool
	reply          chan bool
}

func (e reloadEvent) apply(t *Tab) {
	switch e.kind {
	case navigation.ReloadIgnoringCache:
		e.reply <- t.ctrl.ReloadIgnoringCache(e.checkForRepost)
	case navigation.ReloadOriginalRequestURL:
		e.reply <- t.ctrl.ReloadOriginalRequestURL(e.checkForRepost)
	default:
		e.reply <- t.ctrl.Reload(e.checkForRepost)
	}
}

// Reload reloads the current entry. With checkForRepost a POST entry waits
// for ConfirmRepost and false is returned.
func (t *Tab) Reload(ctx context.Context, kind navigation.ReloadType, checkForRepost bool) (bool, error) {
	reply := make(chan bool, 1)
	return call(ctx, t, reloadEvent{kind: kind, checkForRepost: checkForRepost, reply: reply}, reply)
}

type repostEvent struct {
	proceed bool
	reply   chan bool
}

func (e repostEvent) apply(t *Tab) {
	if !e.proceed {
		t.ctrl.CancelPendingReload()
		e.reply <- false
		return
	}
	e.reply <- t.ctrl.ContinuePendingReload()
}

// ConfirmRepost resumes or cancels a reload held for repost confirmation
func (t *Tab) ConfirmRepost(ctx context.Context, proceed bool) (bool, error) {
	reply := make(chan bool, 1)
	return call(ctx, t, repostEvent{proceed: proceed, reply: reply}, reply)
}

type stopEvent struct {
	reply chan struct{}
}

func (e stopEvent) apply(t *Tab) {
	t.nav.Stop()
	t.ctrl.DiscardPendingEntry(false)
	e.reply <- struct{}{}
}

// Stop cancels every in-flight load and drops the pending entry
func (t *Tab) Stop(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	_, err := call(ctx, t, stopEvent{reply: reply}, reply)
	return err
}

// ============================================================================
// Renderer-initiated
// ============================================================================

type beginEvent struct {
	begin Begin
	reply chan result[bool]
}

func (e beginEvent) apply(t *Tab) {
	if err := t.checkProcess(e.begin.FrameID, e.begin.ProcessID); err != nil {
		e.reply <- result[bool]{err: err}
		return
	}
	p := e.begin.Params
	p.IsRendererInitiated = true
	if p.FrameTreeNodeID == 0 && p.FrameName == "" {
		p.FrameTreeNodeID = e.begin.FrameID
	}
	e.reply <- result[bool]{val: t.ctrl.LoadURLWithParams(p)}
}

// BeginNavigation starts a navigation a document asked for, such as a link
// click or a form submission in one of its frames
func (t *Tab) BeginNavigation(ctx context.Context, b Begin) (bool, error) {
	reply := make(chan result[bool], 1)
	return callResult(ctx, t, beginEvent{begin: b, reply: reply}, reply)
}

type commitEvent struct {
	commit Commit
	reply  chan result[CommitResult]
}

func (e commitEvent) apply(t *Tab) {
	res, err := t.commit(e.commit)
	e.reply <- result[CommitResult]{val: res, err: err}
}

// CommitNavigation hands a renderer commit to the controller. Commits from a
// process that does not own the frame are dropped with ErrProcessMismatch.
func (t *Tab) CommitNavigation(ctx context.Context, c Commit) (CommitResult, error) {
	reply := make(chan result[CommitResult], 1)
	return callResult(ctx, t, commitEvent{commit: c, reply: reply}, reply)
}

func (t *Tab) commit(c Commit) (CommitResult, error) {
	res := CommitResult{EntryIndex: t.ctrl.LastCommittedEntryIndex()}

	node, known := t.frames.FindByID(c.FrameID)
	if known {
		if err := t.checkProcess(c.FrameID, c.ProcessID); err != nil {
			return res, err
		}
	}

	if r, ok := t.nav.take(c.FrameID, c.RequestID, c.Params.NavEntryID); ok {
		r.cancel()
		t.submitSpan(r.span, nil)
	}

	p := c.Params
	if known && !node.IsRoot() && p.FrameName == "" {
		p.FrameName = t.frames.UniqueName(c.FrameID)
	}

	details, accepted := t.ctrl.RendererDidNavigate(c.FrameID, p)

	// The live tree follows what the renderer shows, classified or not.
	if url, ok := navigation.FixupURL(p.URL); known && ok {
		if !p.WasWithinSamePage {
			t.frames.ClearChildren(c.FrameID)
			t.nav.prune()
		}
		if err := t.frames.SetCurrentURL(c.FrameID, url, navigation.OriginOf(url)); err != nil {
			t.log.Debug("frame url not recorded", zap.Int64("frame", c.FrameID), zap.Error(err))
		}
	}

	res.Accepted = accepted
	res.Type = details.Type
	res.Splice = details.Splice
	res.EntryIndex = details.EntryIndex
	res.IsInPage = details.IsInPage
	res.Replaced = details.DidReplaceEntry
	if details.Entry != nil {
		res.EntryID = details.Entry.UniqueID()
		if accepted && c.Title != "" && details.IsNavigationToDifferentPage() {
			t.ctrl.SetTitle(res.EntryID, c.Title)
		}
	}
	return res, nil
}

// checkProcess drops reports from processes that do not own the frame, and
// flags the reporting process so nothing it sends is trusted again
func (t *Tab) checkProcess(frameID int64, processID string) error {
	if t.badProcesses[processID] {
		t.log.Warn("report from flagged process dropped",
			zap.Int64("frame", frameID),
			zap.String("process", processID),
		)
		return ErrBadProcess
	}
	node, ok := t.frames.FindByID(frameID)
	if !ok {
		return fmt.Errorf("frame %d: %w", frameID, ErrFrameNotFound)
	}
	if node.ProcessID != processID {
		t.badProcesses[processID] = true
		if t.metrics != nil {
			t.metrics.RecordInconsistency("process_mismatch")
		}
		t.log.Warn("report from wrong process dropped",
			zap.Int64("frame", frameID),
			zap.String("process", processID),
			zap.String("owner", node.ProcessID),
		)
		return fmt.Errorf("frame %d: %w", frameID, ErrProcessMismatch)
	}
	return nil
}

type failEvent struct {
	failure Failure
	reply   chan struct{}
}

func (e failEvent) apply(t *Tab) {
	f := e.failure
	navEntryID := f.NavEntryID
	url := ""
	if r, ok := t.nav.take(f.FrameID, f.RequestID, f.NavEntryID); ok {
		navEntryID = r.req.NavEntryID
		url = r.req.URL
		r.cancel()
		t.submitSpan(r.span, f.Err)
	}

	// Remember the failed entry so the error page committed for it matches.
	if p := t.ctrl.PendingEntry(); p != nil && navEntryID != 0 && p.UniqueID() == navEntryID {
		t.ctrl.DiscardPendingEntry(true)
	}

	msg := "failed"
	if f.Err != nil {
		msg = f.Err.Error()
	}
	t.log.Debug("navigation failed",
		zap.Int64("frame", f.FrameID),
		zap.Int64("entry", navEntryID),
		zap.String("error", msg),
	)
	t.publish(Event{Kind: EventLoadFailed, FrameID: f.FrameID, URL: url, EntryID: navEntryID, Error: msg})
	e.reply <- struct{}{}
}

// FailNavigation reports that a request produced no document
func (t *Tab) FailNavigation(ctx context.Context, f Failure) error {
	reply := make(chan struct{}, 1)
	_, err := call(ctx, t, failEvent{failure: f, reply: reply}, reply)
	return err
}

type accessInitialEvent struct {
	reply chan struct{}
}

func (e accessInitialEvent) apply(t *Tab) {
	t.accessedInitialDocument = true
	e.reply <- struct{}{}
}

// AccessInitialDocument records that script modified the initial empty
// document, after which a pending URL is no longer shown over it
func (t *Tab) AccessInitialDocument(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	_, err := call(ctx, t, accessInitialEvent{reply: reply}, reply)
	return err
}

// ============================================================================
// Frames
// ============================================================================

type frameAttachedEvent struct {
	parentID  int64
	name      string
	processID string
	reply     chan result[frametree.Node]
}

func (e frameAttachedEvent) apply(t *Tab) {
	if err := t.checkProcess(e.parentID, e.processID); err != nil {
		e.reply <- result[frametree.Node]{err: err}
		return
	}
	childID, err := t.frames.AddChild(e.parentID, e.name, e.processID)
	if err != nil {
		e.reply <- result[frametree.Node]{err: fmt.Errorf("%w: %v", ErrFrameNotFound, err)}
		return
	}
	node, _ := t.frames.FindByID(childID)
	t.publish(Event{Kind: EventFrameAttached, FrameID: childID})
	e.reply <- result[frametree.Node]{val: node}
}

// FrameAttached adds a child frame created by the document in parentID and
// returns its node, unique name included
func (t *Tab) FrameAttached(ctx context.Context, parentID int64, name, processID string) (frametree.Node, error) {
	reply := make(chan result[frametree.Node], 1)
	return callResult(ctx, t, frameAttachedEvent{parentID: parentID, name: name, processID: processID, reply: reply}, reply)
}

type frameDetachedEvent struct {
	frameID int64
	reply   chan error
}

func (e frameDetachedEvent) apply(t *Tab) {
	if err := t.frames.RemoveChild(e.frameID); err != nil {
		e.reply <- err
		return
	}
	t.nav.prune()
	t.publish(Event{Kind: EventFrameDetached, FrameID: e.frameID})
	e.reply <- nil
}

// FrameDetached removes a frame and its subtree; their loads are canceled
func (t *Tab) FrameDetached(ctx context.Context, frameID int64) error {
	reply := make(chan error, 1)
	err, sendErr := call(ctx, t, frameDetachedEvent{frameID: frameID, reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

type frameEvent struct {
	frameID int64
	reply   chan result[frametree.Node]
}

func (e frameEvent) apply(t *Tab) {
	frameID := e.frameID
	if frameID == 0 {
		frameID = t.frames.RootID()
	}
	n, ok := t.frames.FindByID(frameID)
	if !ok {
		e.reply <- result[frametree.Node]{err: fmt.Errorf("frame %d: %w", e.frameID, ErrFrameNotFound)}
		return
	}
	e.reply <- result[frametree.Node]{val: n}
}

// Frame returns a snapshot of one live frame. frameID 0 names the main frame.
func (t *Tab) Frame(ctx context.Context, frameID int64) (frametree.Node, error) {
	reply := make(chan result[frametree.Node], 1)
	return callResult(ctx, t, frameEvent{frameID: frameID, reply: reply}, reply)
}

// ============================================================================
// Entries
// ============================================================================

type setTitleEvent struct {
	title string
	reply chan bool
}

func (e setTitleEvent) apply(t *Tab) {
	last := t.ctrl.LastCommittedEntry()
	if last == nil {
		e.reply <- false
		return
	}
	e.reply <- t.ctrl.SetTitle(last.UniqueID(), e.title)
}

// SetTitle sets the title of the last committed entry
func (t *Tab) SetTitle(ctx context.Context, title string) (bool, error) {
	reply := make(chan bool, 1)
	return call(ctx, t, setTitleEvent{title: title, reply: reply}, reply)
}

type snapshotEvent struct {
	reply chan State
}

func (e snapshotEvent) apply(t *Tab) {
	c := t.ctrl
	s := State{
		ID:                      t.id,
		Loading:                 t.nav.loading(),
		CanGoBack:               c.CanGoBack(),
		CanGoForward:            c.CanGoForward(),
		CurrentIndex:            c.CurrentEntryIndex(),
		LastCommittedIndex:      c.LastCommittedEntryIndex(),
		NeedsRepostConfirmation: c.NeedsRepostConfirmation(),
		Entries:                 make([]EntryInfo, 0, c.EntryCount()),
		Frames:                  t.frames.Nodes(),
	}
	if v := c.VisibleEntry(); v != nil {
		s.URL = v.VirtualURL()
		s.Title = v.TitleForDisplay()
	}
	if p := c.PendingEntry(); p != nil {
		info := entryInfo(p)
		s.Pending = &info
	}
	for _, entry := range c.Entries() {
		s.Entries = append(s.Entries, entryInfo(entry))
	}
	e.reply <- s
}

// Snapshot copies the tab's list and frame tree
func (t *Tab) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	return call(ctx, t, snapshotEvent{reply: reply}, reply)
}

type exportEvent struct {
	reply chan History
}

func (e exportEvent) apply(t *Tab) {
	entries := t.ctrl.Entries()
	h := History{Selected: t.ctrl.LastCommittedEntryIndex(), Entries: make([]navigation.EntryState, 0, len(entries))}
	if h.Selected < 0 {
		h.Selected = 0
	}
	for _, entry := range entries {
		h.Entries = append(h.Entries, entry.State())
	}
	e.reply <- h
}

// ExportHistory returns the committed entries in persistable form
func (t *Tab) ExportHistory(ctx context.Context) (History, error) {
	reply := make(chan History, 1)
	return call(ctx, t, exportEvent{reply: reply}, reply)
}

type restoreEvent struct {
	history     History
	restoreType navigation.RestoreType
	reply       chan error
}

func (e restoreEvent) apply(t *Tab) {
	if err := t.ctrl.Restore(e.history.Selected, e.restoreType, e.history.Entries); err != nil {
		e.reply <- err
		return
	}
	t.ctrl.LoadIfNecessary()
	e.reply <- nil
}

// RestoreHistory installs saved entries into an unused tab and loads the
// selected one
func (t *Tab) RestoreHistory(ctx context.Context, h History, restoreType navigation.RestoreType) error {
	reply := make(chan error, 1)
	err, sendErr := call(ctx, t, restoreEvent{history: h, restoreType: restoreType, reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}
