package tab

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/framenav/internal/domain/navigation"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/config"
	"github.com/GriffinCanCode/framenav/internal/infrastructure/monitoring"
)

func newTestManager(t *testing.T, configure ...func(*config.NavigationConfig)) (*Manager, *fakeRenderer) {
	t.Helper()
	cfg := config.Default().Navigation
	for _, fn := range configure {
		fn(&cfg)
	}
	r := newFakeRenderer()
	m := NewManager(cfg, r, nil)
	t.Cleanup(m.CloseAll)
	return m, r
}

func TestManagerLifecycle(t *testing.T) {
	m, _ := newTestManager(t)

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	infos := m.List()
	require.Len(t, infos, 2)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.Close(a.ID()))
	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, ErrTabNotFound)
	assert.ErrorIs(t, m.Close(a.ID()), ErrTabNotFound)

	_, err = a.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrTabClosed)
	assert.Equal(t, 1, m.Count())
}

func TestManagerEnforcesTabLimit(t *testing.T) {
	m, _ := newTestManager(t, func(c *config.NavigationConfig) { c.MaxTabs = 1 })

	_, err := m.Create()
	require.NoError(t, err)
	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManyTabs)
}

func TestManagerOpenStartsLoading(t *testing.T) {
	m, r := newTestManager(t)

	tb, err := m.Open(context.Background(), "https://a.test/")
	require.NoError(t, err)

	d := r.next(t)
	assert.Equal(t, "https://a.test/", d.req.URL)

	state, err := tb.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.Pending)
}

func TestManagerFansOutEvents(t *testing.T) {
	m, r := newTestManager(t)
	metrics := monitoring.NewMetrics()
	m.WithMetrics(metrics)

	tb, err := m.Create()
	require.NoError(t, err)
	events, cancel := m.Subscribe(tb.ID())
	defer cancel()

	ctx := context.Background()
	_, err = tb.Navigate(ctx, "https://a.test/")
	require.NoError(t, err)
	d := r.next(t)
	_, err = tb.CommitNavigation(ctx, Commit{
		FrameID:   d.req.FrameID,
		ProcessID: d.req.ProcessID,
		RequestID: d.req.ID,
		Params: navigation.CommitParams{
			URL:               d.req.URL,
			NavEntryID:        d.req.NavEntryID,
			DidCreateNewEntry: true,
		},
	})
	require.NoError(t, err)

	var kinds []EventKind
	timeout := time.After(2 * time.Second)
	for len(kinds) < 2 {
		select {
		case e := <-events:
			assert.Equal(t, tb.ID(), e.Tab)
			kinds = append(kinds, e.Kind)
		case <-timeout:
			t.Fatalf("events received: %v", kinds)
		}
	}
	assert.Equal(t, []EventKind{EventLoadStarted, EventCommitted}, kinds)
	assert.Equal(t, int64(1), metrics.Snapshot().Commits[navigation.NewPage.String()])
}

func TestManagerSharesEntryIDs(t *testing.T) {
	m, r := newTestManager(t)
	ctx := context.Background()

	a, err := m.Open(ctx, "https://a.test/")
	require.NoError(t, err)
	first := r.next(t)
	b, err := m.Open(ctx, "https://b.test/")
	require.NoError(t, err)
	second := r.next(t)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, first.req.NavEntryID, second.req.NavEntryID)
}
