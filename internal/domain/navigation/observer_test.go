package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) NavigationEntryCommitted(d LoadCommittedDetails) { m.Called(d) }
func (m *mockObserver) NavigationListPruned(d PrunedDetails)            { m.Called(d) }
func (m *mockObserver) NavigationEntryChanged(d EntryChangedDetails)    { m.Called(d) }

func committedAs(t NavigationType) interface{} {
	return mock.MatchedBy(func(d LoadCommittedDetails) bool { return d.Type == t })
}

func TestObserverNotifications(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxEntryCount = 2 })
	obs := &mockObserver{}
	obs.On("NavigationEntryCommitted", committedAs(NewPage)).Times(3)
	obs.On("NavigationListPruned", PrunedDetails{FromFront: true, Count: 1}).Once()
	obs.On("NavigationEntryChanged", mock.MatchedBy(func(d EntryChangedDetails) bool {
		return d.Index == 1 && d.Entry.Title() == "Three"
	})).Once()
	h.ctrl.AddObserver(obs)

	h.navigate(pageURL(1))
	h.navigate(pageURL(2))
	h.navigate(pageURL(3))
	require.True(t, h.ctrl.SetTitle(h.ctrl.LastCommittedEntry().UniqueID(), "Three"))

	obs.AssertExpectations(t)
	assert.Equal(t, []string{pageURL(2), pageURL(3)}, h.urls())
}

func TestObserverNotNotifiedForIgnoredCommit(t *testing.T) {
	h := newHarness(t)
	obs := &mockObserver{}
	h.ctrl.AddObserver(obs)

	child, err := h.frames.AddChild(h.root(), "", "renderer-1")
	require.NoError(t, err)
	_, ok := h.ctrl.RendererDidNavigate(child, CommitParams{URL: "https://example.test/frame.html"})
	require.False(t, ok)

	obs.AssertNotCalled(t, "NavigationEntryCommitted", mock.Anything)
}

func TestObserverRemovalMock(t *testing.T) {
	h := newHarness(t)
	obs := &mockObserver{}
	obs.On("NavigationEntryCommitted", committedAs(NewPage)).Once()
	remove := h.ctrl.AddObserver(obs)

	h.navigate(pageURL(1))
	remove()
	h.navigate(pageURL(2))

	obs.AssertNumberOfCalls(t, "NavigationEntryCommitted", 1)
}
