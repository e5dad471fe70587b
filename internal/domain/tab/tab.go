package tab

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/domain/frametree"
	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// Options configures a Tab
type Options struct {
	ID                        id.TabID
	MaxEntryCount             int
	SubframeHistoryNavigation bool
	SubframeEntryTracking     bool
	// QueueSize bounds the event channel.
	QueueSize int

	Renderer Renderer
	Logger   *zap.Logger
	Tracer   *tracing.Tracer
	Metrics  navigation.Metrics
	IDs      navigation.IDSource
	Clock    func() time.Time
	// Publish receives every event of the tab. It is called on the event
	// loop and must not block.
	Publish func(Event)
}

// Tab is one browser tab: a navigation controller and the live frame tree
// it classifies commits against. Both are owned by the tab's event loop;
// every method sends an event to the loop and waits for the reply.
type Tab struct {
	id      id.TabID
	created time.Time
	log     *zap.Logger
	tracer  *tracing.Tracer
	metrics navigation.Metrics
	clock   func() time.Time
	notify  func(Event)

	ctx    context.Context
	cancel context.CancelFunc

	events    chan event
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	infoMu sync.RWMutex
	info   Info

	// Owned by the event loop.
	ctrl                    *navigation.Controller
	frames                  *frametree.Tree
	nav                     *navigator
	renderer                Renderer
	processID               string
	badProcesses            map[string]bool
	accessedInitialDocument bool
}

// New starts a tab showing nothing. Close must be called to stop it.
func New(opts Options) *Tab {
	if opts.ID == "" {
		opts.ID = id.NewTabID()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Renderer == nil {
		opts.Renderer = nopRenderer{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tab{
		id:           opts.ID,
		created:      opts.Clock(),
		log:          opts.Logger.With(zap.String("tab_id", opts.ID.String())),
		tracer:       opts.Tracer,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		notify:       opts.Publish,
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan event, opts.QueueSize),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		renderer:     opts.Renderer,
		badProcesses: make(map[string]bool),
	}
	t.processID = t.renderer.NewProcess()
	t.frames = frametree.New(t.processID)
	t.nav = newNavigator(t)
	t.ctrl = navigation.New(navigation.Config{
		MaxEntryCount:             opts.MaxEntryCount,
		SubframeHistoryNavigation: opts.SubframeHistoryNavigation,
		SubframeEntryTracking:     opts.SubframeEntryTracking,
		Clock:                     opts.Clock,
		IDs:                       opts.IDs,
		Logger:                    t.log,
		Metrics:                   opts.Metrics,
	}, t.nav, t.frames)
	t.ctrl.AddObserver(navigation.ObserverFuncs{
		Committed: t.onCommitted,
		Pruned:    t.onPruned,
		Changed:   t.onChanged,
	})
	t.refreshInfo()

	go t.run()
	return t
}

// ID returns the tab's identifier
func (t *Tab) ID() id.TabID { return t.id }

// Info returns the summary as of the last processed event
func (t *Tab) Info() Info {
	t.infoMu.RLock()
	defer t.infoMu.RUnlock()
	return t.info
}

// Close stops in-flight loads and the event loop. Calls after Close fail
// with ErrTabClosed.
func (t *Tab) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
	})
	<-t.done
}

// ProcessID returns the renderer process owning the tab's frames
func (t *Tab) ProcessID() string { return t.processID }

// Done is closed once the tab has shut down
func (t *Tab) Done() <-chan struct{} { return t.done }

func (t *Tab) run() {
	defer close(t.done)
	for {
		select {
		case ev := <-t.events:
			ev.apply(t)
			t.refreshInfo()
		case <-t.quit:
			t.nav.Stop()
			t.cancel()
			t.publish(Event{Kind: EventClosed})
			t.log.Debug("tab closed")
			return
		}
	}
}

func (t *Tab) refreshInfo() {
	info := Info{
		ID:        t.id,
		Entries:   t.ctrl.EntryCount(),
		Loading:   t.nav.loading(),
		CreatedAt: t.created,
	}
	if e := t.ctrl.VisibleEntry(); e != nil {
		info.URL = e.VirtualURL()
		info.Title = e.TitleForDisplay()
	}
	t.infoMu.Lock()
	t.info = info
	t.infoMu.Unlock()
}

func (t *Tab) publish(e Event) {
	if t.notify == nil {
		return
	}
	e.Tab = t.id
	e.Time = t.clock()
	t.notify(e)
}

func (t *Tab) submitSpan(span *tracing.Span, err error) {
	if t.tracer != nil {
		t.tracer.End(span, err)
	}
}

func (t *Tab) onCommitted(d navigation.LoadCommittedDetails) {
	e := Event{
		Kind:    EventCommitted,
		FrameID: d.FrameTreeNodeID,
		Index:   d.EntryIndex,
		Type:    d.Type,
		Splice:  d.Splice,
		InPage:  d.IsInPage,
	}
	if d.Entry != nil {
		e.EntryID = d.Entry.UniqueID()
		e.URL = d.Entry.URLForFrame(d.FrameTreeNodeID)
		e.Title = d.Entry.Title()
	}
	t.publish(e)
}

func (t *Tab) onPruned(d navigation.PrunedDetails) {
	t.publish(Event{Kind: EventPruned, Count: d.Count})
}

func (t *Tab) onChanged(d navigation.EntryChangedDetails) {
	t.publish(Event{
		Kind:    EventEntryChanged,
		EntryID: d.Entry.UniqueID(),
		URL:     d.Entry.URL(),
		Title:   d.Entry.Title(),
		Index:   d.Index,
	})
}

// send queues ev on the loop
func (t *Tab) send(ctx context.Context, ev event) error {
	select {
	case t.events <- ev:
		return nil
	case <-t.done:
		return ErrTabClosed
	case <-t.quit:
		return ErrTabClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await waits for the loop's answer to an event queued by send
func await[T any](ctx context.Context, t *Tab, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-t.done:
		// The loop drains nothing on shutdown, but it may have answered
		// just before exiting.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrTabClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// call runs one event round trip
func call[T any](ctx context.Context, t *Tab, ev event, reply chan T) (T, error) {
	if err := t.send(ctx, ev); err != nil {
		var zero T
		return zero, err
	}
	return await(ctx, t, reply)
}

type nopRenderer struct{}

func (nopRenderer) NewProcess() string                      { return "process-" + id.New() }
func (nopRenderer) Navigate(context.Context, *Tab, Request) {}
