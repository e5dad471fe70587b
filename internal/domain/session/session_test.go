package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/domain/tab"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// commitRenderer commits every request as soon as it arrives
type commitRenderer struct {
	wg sync.WaitGroup
}

func (r *commitRenderer) NewProcess() string { return "renderer-test" }

func (r *commitRenderer) Navigate(_ context.Context, t *tab.Tab, req tab.Request) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = t.CommitNavigation(context.Background(), tab.Commit{
			FrameID:   req.FrameID,
			ProcessID: req.ProcessID,
			RequestID: req.ID,
			Title:     "title " + req.URL,
			Params: navigation.CommitParams{
				URL:                req.URL,
				Transition:         req.Transition,
				NavEntryID:         req.NavEntryID,
				DidCreateNewEntry:  !req.Existing,
				PageState:          req.PageState,
				ItemSequenceNumber: req.ItemSequence,
			},
		})
	}()
}

func sampleSession() *Session {
	return &Session{
		ID:        id.NewSessionID(),
		Name:      "sample",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Tabs: []TabSnapshot{{
			ID:  "tab_a",
			URL: "https://example.com/b",
			History: tab.History{
				Selected: 1,
				Entries: []navigation.EntryState{
					sampleEntry(1, "https://example.com/a", navigation.TransitionTyped),
					sampleEntry(2, "https://example.com/b", navigation.TransitionLink.With(navigation.TransitionServerRedirect)),
				},
			},
		}},
	}
}

func sampleEntry(uid int64, url string, tr navigation.Transition) navigation.EntryState {
	return navigation.EntryState{
		UniqueID:   uid,
		Title:      "page " + url,
		Transition: tr,
		Timestamp:  time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
		Frames: []navigation.FrameEntryRecord{{
			FrameEntry: navigation.FrameEntry{
				FrameTreeNodeID: 1,
				ItemSequence:    uid * 10,
				URL:             url,
				PageState:       navigation.PageState{0x00, 0xff, 'x'},
			},
			Parent: -1,
		}},
	}
}

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(3)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	c := newCodec(t)
	in := sampleSession()

	data, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.Len(t, out.Tabs, 1)
	assert.Equal(t, 1, out.Tabs[0].History.Selected)

	got := out.Tabs[0].History.Entries[1]
	assert.Equal(t, in.Tabs[0].History.Entries[1].Transition, got.Transition)
	assert.Equal(t, navigation.PageState{0x00, 0xff, 'x'}, got.Frames[0].PageState)
}

func TestCodecRejectsGarbage(t *testing.T) {
	c := newCodec(t)

	_, err := c.Decode([]byte("not zstd"))
	assert.ErrorIs(t, err, ErrInvalidSession)

	bad := sampleSession()
	bad.Tabs[0].History.Selected = 5
	data, err := c.Encode(bad)
	require.NoError(t, err)
	_, err = c.Decode(data)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestYAMLRoundTrip(t *testing.T) {
	in := sampleSession()

	data, err := ExportYAML(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "link|server_redirect")

	out, err := ImportYAML(data)
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	require.Len(t, out.Tabs, 1)
	assert.Equal(t, in.Tabs[0].History.Entries[1].Transition, out.Tabs[0].History.Entries[1].Transition)
	assert.Equal(t, in.Tabs[0].History.Entries[0].Frames[0].PageState, out.Tabs[0].History.Entries[0].Frames[0].PageState)
	assert.NoError(t, out.Validate())
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	first, second := id.NewSessionID(), id.NewSessionID()
	require.NoError(t, store.Save(ctx, first, []byte("one")))
	require.NoError(t, store.Save(ctx, second, []byte("two")))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644))

	data, err := store.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	list, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "newest first")
	assert.Equal(t, int64(3), list[0].Size)

	list, err = store.List(ctx, first.String())
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, first))
	_, err = store.Load(ctx, first)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, first), ErrSessionNotFound)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, bad := range []id.SessionID{"", "../escape", "sess_nope", id.SessionID(id.NewTabID())} {
		assert.ErrorIs(t, store.Save(ctx, bad, nil), ErrInvalidID, "%q", bad)
		_, err := store.Load(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidID, "%q", bad)
	}

	_, err = store.List(ctx, "[")
	assert.Error(t, err)
}

type env struct {
	ctx      context.Context
	renderer *commitRenderer
	tabs     *tab.Manager
	sessions *Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{ctx: context.Background(), renderer: &commitRenderer{}}
	t.Cleanup(e.renderer.wg.Wait)
	e.tabs = tab.NewManager(config.Default().Navigation, e.renderer, nil)
	t.Cleanup(e.tabs.CloseAll)

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	e.sessions = NewManager(e.tabs, store, newCodec(t), nil)
	return e
}

func (e *env) navigate(t *testing.T, tb *tab.Tab, url string) {
	t.Helper()
	ok, err := tb.Navigate(e.ctx, url)
	require.NoError(t, err)
	require.True(t, ok)
	e.renderer.wg.Wait()
}

func TestSaveAndRestore(t *testing.T) {
	e := newEnv(t)

	tb, err := e.tabs.Create()
	require.NoError(t, err)
	e.navigate(t, tb, "https://example.com/a")
	e.navigate(t, tb, "https://example.com/b")
	ok, err := tb.History(e.ctx, tab.HistoryBack, 0)
	require.NoError(t, err)
	require.True(t, ok)
	e.renderer.wg.Wait()

	// An empty tab is not saved.
	_, err = e.tabs.Create()
	require.NoError(t, err)

	saved, err := e.sessions.Save(e.ctx, "work")
	require.NoError(t, err)
	require.Len(t, saved.Tabs, 1)
	assert.Equal(t, 0, saved.Tabs[0].History.Selected)

	restored, err := e.sessions.Restore(e.ctx, saved.ID, true)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, 1, e.tabs.Count())
	e.renderer.wg.Wait()

	rt, err := e.tabs.Get(restored[0])
	require.NoError(t, err)
	st, err := rt.Snapshot(e.ctx)
	require.NoError(t, err)

	require.Len(t, st.Entries, 2)
	assert.Equal(t, "https://example.com/a", st.Entries[0].URL)
	assert.Equal(t, "https://example.com/b", st.Entries[1].URL)
	assert.Equal(t, 0, st.LastCommittedIndex)
	assert.True(t, st.CanGoForward)
	assert.Equal(t, "title https://example.com/a", st.Title)

	_, lastRestored := e.sessions.Stats()
	assert.NotNil(t, lastRestored)
}

func TestListExportImport(t *testing.T) {
	e := newEnv(t)
	in := sampleSession()
	require.NoError(t, e.sessions.Put(e.ctx, in))

	list, err := e.sessions.List(e.ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sample", list[0].Name)
	assert.Equal(t, 1, list[0].TabCount)
	assert.Equal(t, 2, list[0].Entries)
	assert.Positive(t, list[0].Size)

	data, err := e.sessions.Export(e.ctx, in.ID)
	require.NoError(t, err)

	imported, err := e.sessions.Import(e.ctx, data)
	require.NoError(t, err)
	assert.NotEqual(t, in.ID, imported.ID)

	list, err = e.sessions.List(e.ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, e.sessions.Delete(e.ctx, in.ID))
	_, err = e.sessions.Load(e.ctx, in.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRestoreUnknownSession(t *testing.T) {
	e := newEnv(t)
	_, err := e.sessions.Restore(e.ctx, id.NewSessionID(), false)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
