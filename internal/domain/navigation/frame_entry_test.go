package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *FrameEntryTree {
	t := NewFrameEntryTree(FrameEntry{FrameTreeNodeID: 1, URL: "https://example.test/"})
	a := t.AddChild(0, FrameEntry{FrameTreeNodeID: 2, FrameName: "a", URL: "https://example.test/a"})
	t.AddChild(0, FrameEntry{FrameTreeNodeID: 3, FrameName: "b", URL: "https://example.test/b"})
	t.AddChild(a, FrameEntry{FrameTreeNodeID: 4, FrameName: "a/x", URL: "https://example.test/x"})
	return t
}

func TestFrameEntryTreeStructure(t *testing.T) {
	tree := newTestTree()

	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, int64(1), tree.Root().FrameTreeNodeID)
	assert.Equal(t, -1, tree.Parent(0))
	assert.Equal(t, []int{1, 2}, tree.Children(0))
	assert.Equal(t, 1, tree.ChildCount(1))

	i, ok := tree.Find(4)
	require.True(t, ok)
	assert.Equal(t, 1, tree.Parent(i))

	_, ok = tree.Find(99)
	assert.False(t, ok)

	var order []int64
	tree.Walk(func(_ int, e FrameEntry) bool {
		order = append(order, e.FrameTreeNodeID)
		return true
	})
	assert.Equal(t, []int64{1, 2, 4, 3}, order)
}

func TestFrameEntryTreeAddOrUpdate(t *testing.T) {
	t.Run("updates the frame's node", func(t *testing.T) {
		tree := newTestTree()
		require.True(t, tree.AddOrUpdate(1, FrameEntry{FrameTreeNodeID: 3, FrameName: "b", URL: "https://example.test/b2"}, nil))
		assert.Equal(t, 4, tree.Len())
		i, _ := tree.Find(3)
		assert.Equal(t, "https://example.test/b2", tree.At(i).URL)
	})

	t.Run("rebinds a recreated frame by name", func(t *testing.T) {
		tree := newTestTree()
		require.True(t, tree.AddOrUpdate(1, FrameEntry{FrameTreeNodeID: 30, FrameName: "b", URL: "https://example.test/b3"}, nil))
		assert.Equal(t, 4, tree.Len())
		_, ok := tree.Find(3)
		assert.False(t, ok)
		i, ok := tree.Find(30)
		require.True(t, ok)
		assert.Equal(t, 0, tree.Parent(i))
	})

	t.Run("keeps a live frame's node under a reused name", func(t *testing.T) {
		tree := newTestTree()
		live := func(id int64) bool { return id == 3 }
		require.True(t, tree.AddOrUpdate(1, FrameEntry{FrameTreeNodeID: 30, FrameName: "b", URL: "https://example.test/c"}, live))
		assert.Equal(t, 5, tree.Len())

		i, ok := tree.Find(3)
		require.True(t, ok)
		assert.Equal(t, "https://example.test/b", tree.At(i).URL)
		j, ok := tree.Find(30)
		require.True(t, ok)
		assert.Equal(t, 0, tree.Parent(j))
		assert.Equal(t, "https://example.test/c", tree.At(j).URL)
	})

	t.Run("adds a new child", func(t *testing.T) {
		tree := newTestTree()
		require.True(t, tree.AddOrUpdate(2, FrameEntry{FrameTreeNodeID: 5, URL: "https://example.test/y"}, nil))
		assert.Equal(t, 5, tree.Len())
		i, _ := tree.Find(2)
		assert.Equal(t, 2, tree.ChildCount(i))
	})

	t.Run("unknown parent", func(t *testing.T) {
		tree := newTestTree()
		assert.False(t, tree.AddOrUpdate(42, FrameEntry{FrameTreeNodeID: 5}, nil))
		assert.Equal(t, 4, tree.Len())
	})
}

func TestFrameEntryTreeCloneIsDeep(t *testing.T) {
	tree := newTestTree()
	tree.Set(0, FrameEntry{FrameTreeNodeID: 1, URL: "https://example.test/", PageState: PageState("s")})

	clone := tree.Clone()
	clone.AddChild(0, FrameEntry{FrameTreeNodeID: 9})
	clone.Root().PageState[0] = 'z'

	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, 2, tree.ChildCount(0))
	assert.Equal(t, PageState("s"), tree.Root().PageState)
}

func TestFrameEntryTreeSetRoot(t *testing.T) {
	tree := newTestTree()
	tree.SetRoot(FrameEntry{FrameTreeNodeID: 1, URL: "https://example.test/#a"}, true)
	assert.Equal(t, 4, tree.Len())

	tree.SetRoot(FrameEntry{FrameTreeNodeID: 1, URL: "https://example.test/next"}, false)
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, 0, tree.ChildCount(0))
	assert.Equal(t, "https://example.test/next", tree.Root().URL)
}

func TestFrameEntryTreeRecords(t *testing.T) {
	tree := newTestTree()

	rebuilt, err := FrameEntryTreeFromRecords(tree.Records())
	require.NoError(t, err)
	assert.Equal(t, tree.Records(), rebuilt.Records())

	tests := []struct {
		name    string
		records []FrameEntryRecord
	}{
		{"empty", nil},
		{"root with parent", []FrameEntryRecord{{Parent: 0}}},
		{"self cycle", []FrameEntryRecord{{Parent: -1, Children: []int{0}}}},
		{"child out of range", []FrameEntryRecord{{Parent: -1, Children: []int{3}}}},
		{"unreachable node", []FrameEntryRecord{{Parent: -1}, {Parent: 0}}},
		{"parent mismatch", []FrameEntryRecord{{Parent: -1, Children: []int{1}}, {Parent: 5}}},
		{"shared child", []FrameEntryRecord{
			{Parent: -1, Children: []int{1, 2}},
			{Parent: 0, Children: []int{2}},
			{Parent: 0},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FrameEntryTreeFromRecords(tt.records)
			assert.ErrorIs(t, err, errMalformedFrameTree)
		})
	}
}
