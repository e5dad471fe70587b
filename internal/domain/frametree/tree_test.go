package frametree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTreeHasRoot(t *testing.T) {
	tree := New("proc-1")

	root := tree.Root()
	assert.True(t, root.IsRoot())
	assert.Equal(t, tree.RootID(), root.ID)
	assert.Equal(t, "proc-1", root.ProcessID)
	assert.Equal(t, 1, tree.Count())
}

func TestAddAndRemoveChildren(t *testing.T) {
	tree := New("p")
	root := tree.RootID()

	a, err := tree.AddChild(root, "a", "p")
	require.NoError(t, err)
	b, err := tree.AddChild(root, "b", "p")
	require.NoError(t, err)
	nested, err := tree.AddChild(b, "", "p")
	require.NoError(t, err)

	assert.Equal(t, []int64{a, b}, tree.Children(root))
	assert.Equal(t, []int64{nested}, tree.Children(b))

	parent, ok := tree.Parent(nested)
	require.True(t, ok)
	assert.Equal(t, b, parent)

	depth, ok := tree.Depth(nested)
	require.True(t, ok)
	assert.Equal(t, 2, depth)

	require.NoError(t, tree.RemoveChild(b))
	assert.False(t, tree.Contains(b))
	assert.False(t, tree.Contains(nested), "subtree is freed with its parent")
	assert.Equal(t, []int64{a}, tree.Children(root))

	assert.ErrorIs(t, tree.RemoveChild(b), ErrNodeNotFound)
	assert.ErrorIs(t, tree.RemoveChild(root), ErrRootRemoval)

	_, err = tree.AddChild(999, "", "p")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestIDsAreNeverReused(t *testing.T) {
	tree := New("p")
	first, _ := tree.AddChild(tree.RootID(), "", "p")
	require.NoError(t, tree.RemoveChild(first))
	second, _ := tree.AddChild(tree.RootID(), "", "p")
	assert.NotEqual(t, first, second)

	oldRoot := tree.RootID()
	newRoot := tree.Reset("q")
	assert.NotEqual(t, oldRoot, newRoot)
	assert.False(t, tree.Contains(oldRoot))
	assert.False(t, tree.Contains(second))
	assert.Equal(t, "q", tree.Root().ProcessID)
}

func TestFindByName(t *testing.T) {
	tree := New("p")
	root := tree.RootID()
	a, _ := tree.AddChild(root, "", "p")
	named, _ := tree.AddChild(a, "target", "p")
	tree.AddChild(root, "target", "p")

	found, ok := tree.FindByName("target")
	require.True(t, ok)
	assert.Equal(t, named, found, "pre-order wins")

	_, ok = tree.FindByName("")
	assert.False(t, ok)
	_, ok = tree.FindByName("missing")
	assert.False(t, ok)
}

func TestSettersAndSnapshots(t *testing.T) {
	tree := New("p")
	root := tree.RootID()
	child, _ := tree.AddChild(root, "c", "p")

	require.NoError(t, tree.SetCurrentURL(child, "https://a.test/x", "https://a.test"))
	require.NoError(t, tree.SetProcess(child, "p2"))
	require.NoError(t, tree.SetName(child, "renamed"))
	assert.ErrorIs(t, tree.SetCurrentURL(42, "", ""), ErrNodeNotFound)

	n, ok := tree.FindByID(child)
	require.True(t, ok)
	assert.Equal(t, "https://a.test/x", n.URL)
	assert.Equal(t, "p2", n.ProcessID)
	assert.Equal(t, "renamed", n.Name)

	snap := tree.Root()
	snap.Children[0] = 1234
	assert.Equal(t, []int64{child}, tree.Children(root), "snapshots do not alias the arena")
}

func TestClearChildrenAndWalk(t *testing.T) {
	tree := New("p")
	root := tree.RootID()
	a, _ := tree.AddChild(root, "", "p")
	tree.AddChild(a, "", "p")
	tree.AddChild(root, "", "p")

	var visited []int64
	tree.Walk(func(n Node) bool {
		visited = append(visited, n.ID)
		return true
	})
	assert.Len(t, visited, 4)
	assert.Equal(t, root, visited[0])
	assert.Equal(t, a, visited[1])

	tree.ClearChildren(root)
	assert.Equal(t, 1, tree.Count())
	assert.Len(t, tree.Nodes(), 1)
}

func TestUniqueName(t *testing.T) {
	tree := New("p")
	root := tree.RootID()
	first, _ := tree.AddChild(root, "", "p")
	second, _ := tree.AddChild(root, "named", "p")
	nested, _ := tree.AddChild(first, "", "p")

	assert.Equal(t, "", tree.UniqueName(root))
	assert.Equal(t, "/<frame0>", tree.UniqueName(first))
	assert.Equal(t, "named", tree.UniqueName(second))
	assert.Equal(t, "/<frame0>/<frame0>", tree.UniqueName(nested))
	assert.Equal(t, "", tree.UniqueName(404))
}

func TestUniqueNameSurvivesSiblingRemoval(t *testing.T) {
	tree := New("p")
	root := tree.RootID()
	a, _ := tree.AddChild(root, "", "p")
	b, _ := tree.AddChild(root, "", "p")
	require.NoError(t, tree.RemoveChild(a))
	c, _ := tree.AddChild(root, "", "p")

	assert.Equal(t, "/<frame1>", tree.UniqueName(b))
	assert.Equal(t, "/<frame2>", tree.UniqueName(c))

	node, ok := tree.FindByID(c)
	require.True(t, ok)
	assert.Equal(t, "/<frame2>", node.UniqueName)

	dup, _ := tree.AddChild(root, "x", "p")
	again, _ := tree.AddChild(root, "x", "p")
	assert.Equal(t, "x", tree.UniqueName(dup))
	assert.Equal(t, "/<frame4>", tree.UniqueName(again))

	require.NoError(t, tree.SetName(b, "renamed"))
	assert.Equal(t, "/<frame1>", tree.UniqueName(b))
}

func TestUniqueNameRestartsForNewDocument(t *testing.T) {
	tree := New("p")
	root := tree.RootID()
	_, _ = tree.AddChild(root, "", "p")
	_, _ = tree.AddChild(root, "", "p")

	tree.ClearChildren(root)
	reloaded, _ := tree.AddChild(root, "", "p")
	assert.Equal(t, "/<frame0>", tree.UniqueName(reloaded))
}
