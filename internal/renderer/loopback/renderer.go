package loopback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// DefaultMaxFrameDepth bounds iframe nesting
const DefaultMaxFrameDepth = 8

var (
	ErrNoDocument  = errors.New("frame has no committed document")
	ErrCrossOrigin = errors.New("url is not same-origin with the document")
	ErrInvalidURL  = errors.New("invalid url")
)

type frameKey struct {
	tab   id.TabID
	frame int64
}

// docState is what the renderer remembers about the document in a frame
type docState struct {
	url      string
	unique   string
	itemSeq  int64
	docSeq   int64
	children []int64
}

// Renderer is an in-process stand-in for renderer processes. It fetches
// documents, commits them to the tab and creates the frames they declare.
type Renderer struct {
	fetcher  *Fetcher
	log      *zap.Logger
	timeout  time.Duration
	maxDepth int

	mu   sync.Mutex
	docs map[frameKey]*docState

	seq atomic.Int64
	wg  sync.WaitGroup
}

// New creates a renderer with its own fetcher
func New(cfg config.RendererConfig, log *zap.Logger) *Renderer {
	return NewWithFetcher(NewFetcher(cfg), cfg.Timeout, log)
}

// NewWithFetcher creates a renderer around an existing fetcher. timeout
// bounds each report sent back to a tab.
func NewWithFetcher(f *Fetcher, timeout time.Duration, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Renderer{
		fetcher:  f,
		log:      log,
		timeout:  timeout,
		maxDepth: DefaultMaxFrameDepth,
		docs:     make(map[frameKey]*docState),
	}
}

// Fetcher returns the renderer's fetcher
func (r *Renderer) Fetcher() *Fetcher {
	return r.fetcher
}

// NewProcess allocates a process token
func (r *Renderer) NewProcess() string {
	return "renderer-" + uuid.NewString()
}

// Navigate loads req in the background
func (r *Renderer) Navigate(ctx context.Context, t *tab.Tab, req tab.Request) {
	r.wg.Add(1)
	go r.load(ctx, t, req)
}

// Wait blocks until every background load has finished
func (r *Renderer) Wait() {
	r.wg.Wait()
}

// Forget drops what the renderer remembers about a closed tab
func (r *Renderer) Forget(tabID id.TabID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.docs {
		if k.tab == tabID {
			delete(r.docs, k)
		}
	}
}

func (r *Renderer) nextSeq() int64 {
	return r.seq.Add(1)
}

func (r *Renderer) load(ctx context.Context, t *tab.Tab, req tab.Request) {
	defer r.wg.Done()

	// Reports must reach the tab even though ctx ends with the request.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	key := frameKey{tab: t.ID(), frame: req.FrameID}
	if p, ok := r.sameDocument(key, req); ok {
		if !r.commit(callCtx, t, key, tab.Commit{
			FrameID:   req.FrameID,
			ProcessID: req.ProcessID,
			RequestID: req.ID,
			Params:    p,
		}, "") {
			return
		}
		if req.Frames != nil {
			if i, ok := req.Frames.Find(req.FrameID); ok {
				r.syncChildren(callCtx, t, key, req.ProcessID, req.Frames, i)
			}
		}
		return
	}

	doc, err := r.fetcher.Fetch(ctx, FetchRequest{
		URL:          req.URL,
		Referrer:     req.Referrer.URL,
		PostData:     req.PostData,
		ExtraHeaders: req.ExtraHeaders,
		Reload:       req.Reload,
	})
	if ctx.Err() != nil {
		// Stopped or superseded; the tab already accounted for it.
		return
	}
	if err != nil {
		r.log.Debug("fetch failed", zap.String("url", req.URL), zap.Error(err))
		if ferr := t.FailNavigation(callCtx, tab.Failure{FrameID: req.FrameID, RequestID: req.ID, Err: err}); ferr != nil {
			return
		}
		r.commitErrorPage(callCtx, t, key, req)
		return
	}
	r.commitDocument(callCtx, t, key, req, doc)
}

// sameDocument decides whether req stays in the frame's current document:
// a fragment change or a history step between items of one document
func (r *Renderer) sameDocument(key frameKey, req tab.Request) (navigation.CommitParams, bool) {
	st, ok := r.state(key)
	if !ok || req.Reload != navigation.ReloadNone || req.PostData != nil {
		return navigation.CommitParams{}, false
	}
	p := navigation.CommitParams{
		URL:                    req.URL,
		Referrer:               req.Referrer,
		Transition:             req.Transition,
		NavEntryID:             req.NavEntryID,
		WasWithinSamePage:      true,
		DocumentSequenceNumber: st.docSeq,
	}
	if req.Existing {
		if req.DocumentSequence == 0 || req.DocumentSequence != st.docSeq {
			return p, false
		}
		p.ItemSequenceNumber = req.ItemSequence
		p.PageState = req.PageState
		return p, true
	}
	if !strings.Contains(req.URL, "#") || navigation.StripFragment(req.URL) != navigation.StripFragment(st.url) {
		return p, false
	}
	p.DidCreateNewEntry = true
	p.IntendedAsNewEntry = true
	p.ItemSequenceNumber = r.nextSeq()
	return p, true
}

func (r *Renderer) commitDocument(ctx context.Context, t *tab.Tab, key frameKey, req tab.Request, doc *Document) {
	parsed, err := parseHTML(doc)
	if err != nil {
		r.log.Debug("document not parsed", zap.String("url", doc.URL), zap.Error(err))
	}

	p := navigation.CommitParams{
		URL:                       doc.URL,
		Referrer:                  req.Referrer,
		Transition:                req.Transition,
		NavEntryID:                req.NavEntryID,
		DidCreateNewEntry:         !req.Existing,
		IntendedAsNewEntry:        !req.Existing,
		ShouldReplaceCurrentEntry: req.ShouldReplace,
		HTTPStatusCode:            doc.Status,
		IsPost:                    req.PostData != nil,
		OriginalRequestURL:        req.URL,
		DocumentSequenceNumber:    r.nextSeq(),
	}
	if doc.Redirected {
		p.Transition = p.Transition.With(navigation.TransitionServerRedirect)
		p.Redirects = []string{req.URL, doc.URL}
	}
	if req.Existing {
		p.ItemSequenceNumber = req.ItemSequence
		p.PageState = req.PageState
	}
	if p.ItemSequenceNumber == 0 {
		p.ItemSequenceNumber = r.nextSeq()
	}
	// Loading the URL already shown is a reload of it.
	if st, ok := r.state(key); ok && !req.Existing && !doc.Redirected && req.PostData == nil && st.url == doc.URL {
		p.DidCreateNewEntry = false
	}

	if !r.commit(ctx, t, key, tab.Commit{
		FrameID:   req.FrameID,
		ProcessID: req.ProcessID,
		RequestID: req.ID,
		Params:    p,
	}, parsed.Title) {
		return
	}

	var restore *navigation.FrameEntryTree
	restoreIdx := -1
	if req.Frames != nil {
		if i, ok := req.Frames.Find(req.FrameID); ok {
			restore, restoreIdx = req.Frames, i
		}
	}
	r.loadChildren(ctx, t, req.FrameID, req.ProcessID, parsed.Frames, restore, restoreIdx, 1)
}

func (r *Renderer) commitErrorPage(ctx context.Context, t *tab.Tab, key frameKey, req tab.Request) {
	// Failing again on the URL already shown replaces its error page.
	didCreate := !req.Existing
	shown := req.URL
	if fixed, ok := navigation.FixupURL(shown); ok {
		shown = fixed
	}
	if st, ok := r.state(key); ok && didCreate && req.PostData == nil && st.url == shown {
		didCreate = false
	}
	p := navigation.CommitParams{
		URL:                       req.URL,
		Referrer:                  req.Referrer,
		Transition:                req.Transition,
		NavEntryID:                req.NavEntryID,
		DidCreateNewEntry:         didCreate,
		ShouldReplaceCurrentEntry: req.ShouldReplace,
		URLIsUnreachable:          true,
		ItemSequenceNumber:        req.ItemSequence,
		DocumentSequenceNumber:    r.nextSeq(),
	}
	if p.ItemSequenceNumber == 0 {
		p.ItemSequenceNumber = r.nextSeq()
	}
	r.commit(ctx, t, key, tab.Commit{FrameID: req.FrameID, ProcessID: req.ProcessID, Params: p}, "")
}

// commit reports c and records the frame's document on success
func (r *Renderer) commit(ctx context.Context, t *tab.Tab, key frameKey, c tab.Commit, title string) bool {
	c.Title = title
	res, err := t.CommitNavigation(ctx, c)
	if err != nil {
		r.log.Warn("commit rejected",
			zap.String("tab_id", key.tab.String()),
			zap.Int64("frame", key.frame),
			zap.String("url", c.Params.URL),
			zap.Error(err),
		)
		return false
	}
	r.log.Debug("committed",
		zap.String("tab_id", key.tab.String()),
		zap.Int64("frame", key.frame),
		zap.String("url", c.Params.URL),
		zap.Stringer("type", res.Type),
	)

	url := c.Params.URL
	if fixed, ok := navigation.FixupURL(url); ok {
		url = fixed
	}
	if c.Params.WasWithinSamePage {
		r.updateItem(key, url, c.Params.ItemSequenceNumber)
	} else {
		r.setDocument(key, url, c.Params.ItemSequenceNumber, c.Params.DocumentSequenceNumber)
	}
	return true
}

// loadChildren creates and loads the frames a document declared. When
// restore holds the frame state of a history entry, children load what
// the entry recorded for them instead of their src.
func (r *Renderer) loadChildren(ctx context.Context, t *tab.Tab, parentID int64, processID string,
	refs []frameRef, restore *navigation.FrameEntryTree, restoreParent, depth int) {
	if len(refs) == 0 {
		return
	}
	if depth > r.maxDepth {
		r.log.Debug("frame nesting limit reached", zap.Int64("frame", parentID))
		return
	}

	parentKey := frameKey{tab: t.ID(), frame: parentID}
	for _, ref := range refs {
		child, err := t.FrameAttached(ctx, parentID, ref.Name, processID)
		if err != nil {
			r.log.Warn("frame not attached", zap.Int64("parent", parentID), zap.Error(err))
			return
		}
		r.addChild(parentKey, child.ID, child.UniqueName)

		src := ref.URL
		var saved *navigation.FrameEntry
		var childRestore *navigation.FrameEntryTree
		childIdx := -1
		if restore != nil {
			if idx, ok := restore.FindByName(restoreParent, child.UniqueName); ok {
				fe := restore.At(idx)
				saved, src = &fe, fe.URL
				childRestore, childIdx = restore, idx
			}
		}
		r.loadChild(ctx, t, child.ID, processID, src, saved, childRestore, childIdx, depth)
	}
}

func (r *Renderer) loadChild(ctx context.Context, t *tab.Tab, frameID int64, processID, src string,
	saved *navigation.FrameEntry, restore *navigation.FrameEntryTree, restoreIdx, depth int) {
	key := frameKey{tab: t.ID(), frame: frameID}

	p := navigation.CommitParams{
		URL:                    src,
		Transition:             navigation.TransitionAutoSubframe,
		DocumentSequenceNumber: r.nextSeq(),
	}
	if saved != nil {
		p.Referrer = saved.Referrer
		p.ItemSequenceNumber = saved.ItemSequence
		p.PageState = saved.PageState
	}
	if p.ItemSequenceNumber == 0 {
		p.ItemSequenceNumber = r.nextSeq()
	}

	doc, err := r.fetcher.Fetch(ctx, FetchRequest{URL: src})
	var parsed parsedDocument
	if err != nil {
		r.log.Debug("subframe fetch failed", zap.String("url", src), zap.Error(err))
		p.URLIsUnreachable = true
	} else {
		p.URL = doc.URL
		p.HTTPStatusCode = doc.Status
		parsed, _ = parseHTML(doc)
	}

	if !r.commit(ctx, t, key, tab.Commit{FrameID: frameID, ProcessID: processID, Params: p}, "") {
		return
	}
	r.loadChildren(ctx, t, frameID, processID, parsed.Frames, restore, restoreIdx, depth+1)
}

// syncChildren brings the child frames of a document that stayed in place
// back to the state a history entry recorded for them
func (r *Renderer) syncChildren(ctx context.Context, t *tab.Tab, parent frameKey, processID string,
	restore *navigation.FrameEntryTree, restoreIdx int) {
	st, ok := r.state(parent)
	if !ok {
		return
	}
	for _, c := range st.children {
		key := frameKey{tab: parent.tab, frame: c}
		cs, ok := r.state(key)
		if !ok {
			continue
		}
		idx, ok := restore.FindByName(restoreIdx, cs.unique)
		if !ok {
			continue
		}
		saved := restore.At(idx)
		switch {
		case saved.ItemSequence == cs.itemSeq:
			r.syncChildren(ctx, t, key, processID, restore, idx)
		case saved.DocumentSequence != 0 && saved.DocumentSequence == cs.docSeq:
			r.commit(ctx, t, key, tab.Commit{FrameID: c, ProcessID: processID, Params: navigation.CommitParams{
				URL:                    saved.URL,
				Referrer:               saved.Referrer,
				Transition:             navigation.TransitionAutoSubframe,
				PageState:              saved.PageState,
				WasWithinSamePage:      true,
				ItemSequenceNumber:     saved.ItemSequence,
				DocumentSequenceNumber: cs.docSeq,
			}}, "")
		default:
			r.loadChild(ctx, t, c, processID, saved.URL, &saved, restore, idx, 1)
		}
	}
}

// ============================================================================
// Script operations
// ============================================================================

// PushState adds a same-document history item with url
func (r *Renderer) PushState(ctx context.Context, t *tab.Tab, frameID int64, url string) (tab.CommitResult, error) {
	return r.sameDocumentScript(ctx, t, frameID, url, true)
}

// ReplaceState rewrites the current history item's url
func (r *Renderer) ReplaceState(ctx context.Context, t *tab.Tab, frameID int64, url string) (tab.CommitResult, error) {
	return r.sameDocumentScript(ctx, t, frameID, url, false)
}

// FragmentNavigate scrolls to fragment, adding a history item
func (r *Renderer) FragmentNavigate(ctx context.Context, t *tab.Tab, frameID int64, fragment string) (tab.CommitResult, error) {
	node, err := t.Frame(ctx, frameID)
	if err != nil {
		return tab.CommitResult{}, err
	}
	if node.URL == "" {
		return tab.CommitResult{}, ErrNoDocument
	}
	target := navigation.StripFragment(node.URL) + "#" + strings.TrimPrefix(fragment, "#")
	return r.sameDocumentScript(ctx, t, node.ID, target, true)
}

func (r *Renderer) sameDocumentScript(ctx context.Context, t *tab.Tab, frameID int64, rawURL string, push bool) (tab.CommitResult, error) {
	node, err := t.Frame(ctx, frameID)
	if err != nil {
		return tab.CommitResult{}, err
	}
	key := frameKey{tab: t.ID(), frame: node.ID}
	st, ok := r.state(key)
	if !ok || node.URL == "" {
		return tab.CommitResult{}, ErrNoDocument
	}

	target, ok := navigation.FixupURL(resolveAgainst(node.URL, rawURL))
	if !ok {
		return tab.CommitResult{}, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	if !navigation.SameOrigin(node.URL, target) {
		return tab.CommitResult{}, fmt.Errorf("%w: %s", ErrCrossOrigin, target)
	}

	transition := navigation.TransitionLink
	if !node.IsRoot() {
		transition = navigation.TransitionManualSubframe
	}
	p := navigation.CommitParams{
		URL:                       target,
		Referrer:                  navigation.Referrer{URL: node.URL},
		Transition:                transition,
		WasWithinSamePage:         true,
		DidCreateNewEntry:         push,
		ShouldReplaceCurrentEntry: !push,
		ItemSequenceNumber:        st.itemSeq,
		DocumentSequenceNumber:    st.docSeq,
	}
	if push {
		p.ItemSequenceNumber = r.nextSeq()
	}

	res, err := t.CommitNavigation(ctx, tab.Commit{FrameID: node.ID, ProcessID: node.ProcessID, Params: p})
	if err != nil {
		return res, err
	}
	r.updateItem(key, target, p.ItemSequenceNumber)
	return res, nil
}

// CreateIframe inserts a child frame into the document of parentID and
// loads src in it
func (r *Renderer) CreateIframe(ctx context.Context, t *tab.Tab, parentID int64, name, src string) (int64, error) {
	parent, err := t.Frame(ctx, parentID)
	if err != nil {
		return 0, err
	}
	parentKey := frameKey{tab: t.ID(), frame: parent.ID}
	child, err := t.FrameAttached(ctx, parent.ID, name, parent.ProcessID)
	if err != nil {
		return 0, err
	}
	r.addChild(parentKey, child.ID, child.UniqueName)

	depth := 1
	if !parent.IsRoot() {
		depth = 2
	}
	r.loadChild(ctx, t, child.ID, parent.ProcessID, resolveAgainst(parent.URL, src), nil, nil, -1, depth)
	return child.ID, nil
}

// RemoveIframe detaches a frame and its subtree
func (r *Renderer) RemoveIframe(ctx context.Context, t *tab.Tab, frameID int64) error {
	if err := t.FrameDetached(ctx, frameID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgetLocked(frameKey{tab: t.ID(), frame: frameID})
	return nil
}

// NavigateFrame asks the browser to load url in a frame on behalf of its
// document, as a link click or location assignment would
func (r *Renderer) NavigateFrame(ctx context.Context, t *tab.Tab, frameID int64, url string) (bool, error) {
	node, err := t.Frame(ctx, frameID)
	if err != nil {
		return false, err
	}
	transition := navigation.TransitionLink
	if !node.IsRoot() {
		transition = navigation.TransitionManualSubframe
	}
	return t.BeginNavigation(ctx, tab.Begin{
		FrameID:   node.ID,
		ProcessID: node.ProcessID,
		Params: navigation.LoadURLParams{
			URL:        resolveAgainst(node.URL, url),
			Transition: transition,
			Referrer:   navigation.Referrer{URL: node.URL},
		},
	})
}

// ============================================================================
// Document state
// ============================================================================

func (r *Renderer) state(k frameKey) (docState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.docs[k]
	if !ok {
		return docState{}, false
	}
	return *st, true
}

// setDocument records a new document in a frame; its old child frames are
// gone
func (r *Renderer) setDocument(k frameKey, url string, itemSeq, docSeq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.docs[k]
	if !ok {
		st = &docState{}
		r.docs[k] = st
	}
	for _, c := range st.children {
		r.forgetLocked(frameKey{tab: k.tab, frame: c})
	}
	st.url, st.itemSeq, st.docSeq, st.children = url, itemSeq, docSeq, nil
}

func (r *Renderer) updateItem(k frameKey, url string, itemSeq int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.docs[k]; ok {
		st.url, st.itemSeq = url, itemSeq
	}
}

func (r *Renderer) addChild(parent frameKey, child int64, unique string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.docs[parent]; ok {
		st.children = append(st.children, child)
	}
	r.docs[frameKey{tab: parent.tab, frame: child}] = &docState{unique: unique}
}

func (r *Renderer) forgetLocked(k frameKey) {
	st, ok := r.docs[k]
	if !ok {
		return
	}
	for _, c := range st.children {
		r.forgetLocked(frameKey{tab: k.tab, frame: c})
	}
	delete(r.docs, k)
}
