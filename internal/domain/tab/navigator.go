package tab

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/tracing"
)

// inflight is a request the renderer has not answered yet
type inflight struct {
	req    Request
	cancel context.CancelFunc
	span   *tracing.Span
}

// navigator implements navigation.Navigator for one tab. It only runs on
// the tab's event loop.
type navigator struct {
	tab      *Tab
	requests map[int64]*inflight // by frame ID
	nextID   int64
}

func newNavigator(t *Tab) *navigator {
	return &navigator{tab: t, requests: make(map[int64]*inflight)}
}

func (n *navigator) NavigateToPendingEntry(frameID int64, entry *navigation.Entry, reload navigation.ReloadType) bool {
	t := n.tab
	node, ok := t.frames.FindByID(frameID)
	if !ok {
		return false
	}
	if t.badProcesses[node.ProcessID] {
		t.log.Warn("navigation refused for flagged process",
			zap.Int64("frame", frameID),
			zap.String("process", node.ProcessID),
		)
		return false
	}

	url := entry.URLForFrame(frameID)
	if navigation.IsJavaScriptURL(url) {
		// Script URLs run in the current document and are not dispatched.
		return true
	}

	n.nextID++
	req := Request{
		ID:            n.nextID,
		FrameID:       frameID,
		ProcessID:     node.ProcessID,
		NavEntryID:    entry.UniqueID(),
		URL:           url,
		Referrer:      entry.Referrer(),
		Transition:    entry.Transition(),
		Reload:        reload,
		PostData:      append([]byte(nil), entry.PostData()...),
		ExtraHeaders:  entry.ExtraHeaders(),
		Existing:      t.ctrl.EntryIndexWithUniqueID(entry.UniqueID()) >= 0,
		ShouldReplace: entry.ShouldReplace(),
	}
	if fe, ok := entry.FrameEntryFor(frameID); ok {
		req.Referrer = fe.Referrer
		if req.Existing {
			req.PageState = fe.PageState.Clone()
			req.ItemSequence = fe.ItemSequence
			req.DocumentSequence = fe.DocumentSequence
		}
	}
	if req.Existing {
		req.Frames = entry.Frames()
	}

	// A new navigation of the frame supersedes the one in flight.
	n.finish(frameID, context.Canceled)

	ctx, cancel := context.WithCancel(t.ctx)
	var span *tracing.Span
	if t.tracer != nil {
		span, ctx = t.tracer.StartSpan(ctx, "navigate")
		span.SetTag("tab.id", t.id.String())
		span.SetTag("frame.id", strconv.FormatInt(frameID, 10))
		span.SetTag("url", url)
		span.SetTag("reload", reload.String())
	}
	n.requests[frameID] = &inflight{req: req, cancel: cancel, span: span}

	t.log.Debug("navigation dispatched",
		zap.Int64("request", req.ID),
		zap.Int64("frame", frameID),
		zap.Int64("entry", req.NavEntryID),
		zap.String("url", url),
		zap.Bool("existing", req.Existing),
	)
	t.publish(Event{Kind: EventLoadStarted, FrameID: frameID, URL: url, EntryID: req.NavEntryID})
	t.renderer.Navigate(ctx, t, req)
	return true
}

// Stop cancels every in-flight request and reports each as failed
func (n *navigator) Stop() {
	for frameID, r := range n.requests {
		n.finish(frameID, context.Canceled)
		n.tab.publish(Event{
			Kind:    EventLoadFailed,
			FrameID: frameID,
			URL:     r.req.URL,
			EntryID: r.req.NavEntryID,
			Error:   "stopped",
		})
	}
}

func (n *navigator) HasAccessedInitialDocument() bool {
	return n.tab.accessedInitialDocument
}

// take removes and returns the in-flight request a renderer report answers.
// Reports name the request directly or by the entry it was loading.
func (n *navigator) take(frameID, requestID, navEntryID int64) (*inflight, bool) {
	r, ok := n.requests[frameID]
	if !ok {
		return nil, false
	}
	switch {
	case requestID != 0 && r.req.ID == requestID:
	case requestID == 0 && navEntryID != 0 && r.req.NavEntryID == navEntryID:
	default:
		return nil, false
	}
	delete(n.requests, frameID)
	return r, true
}

// finish cancels the frame's request, if any, and closes its span
func (n *navigator) finish(frameID int64, err error) {
	r, ok := n.requests[frameID]
	if !ok {
		return
	}
	delete(n.requests, frameID)
	r.cancel()
	n.tab.submitSpan(r.span, err)
}

// prune drops requests for frames that no longer exist
func (n *navigator) prune() {
	for frameID := range n.requests {
		if !n.tab.frames.Contains(frameID) {
			n.finish(frameID, context.Canceled)
		}
	}
}

func (n *navigator) loading() bool {
	return len(n.requests) > 0
}
