package navigation

import (
	"errors"
	"fmt"
)

// FrameEntry is one frame's committed state within an Entry
type FrameEntry struct {
	FrameTreeNodeID  int64     `json:"frame_tree_node_id" yaml:"frame_tree_node_id"`
	FrameName        string    `json:"frame_name,omitempty" yaml:"frame_name,omitempty"`
	ItemSequence     int64     `json:"item_sequence,omitempty" yaml:"item_sequence,omitempty"`
	DocumentSequence int64     `json:"document_sequence,omitempty" yaml:"document_sequence,omitempty"`
	URL              string    `json:"url" yaml:"url"`
	Referrer         Referrer  `json:"referrer" yaml:"referrer"`
	Origin           string    `json:"origin,omitempty" yaml:"origin,omitempty"`
	PageState        PageState `json:"page_state,omitempty" yaml:"page_state,omitempty"`
}

func (f FrameEntry) clone() FrameEntry {
	f.PageState = f.PageState.Clone()
	return f
}

// FrameEntryRecord is the flat, index-linked form of one tree node, used
// for persistence
type FrameEntryRecord struct {
	FrameEntry `yaml:",inline"`
	Parent     int   `json:"parent" yaml:"parent"`
	Children   []int `json:"children,omitempty" yaml:"children,omitempty"`
}

type frameEntryNode struct {
	entry    FrameEntry
	parent   int
	children []int
}

// FrameEntryTree is an arena of FrameEntry nodes mirroring the frame tree
// at commit time. Index 0 is always the main frame. Nodes are only ever
// added or updated; the tree is a snapshot, not a live view.
type FrameEntryTree struct {
	nodes []frameEntryNode
}

var errMalformedFrameTree = errors.New("malformed frame entry tree")

// NewFrameEntryTree creates a tree holding only the main frame
func NewFrameEntryTree(root FrameEntry) *FrameEntryTree {
	return &FrameEntryTree{nodes: []frameEntryNode{{entry: root.clone(), parent: -1}}}
}

// Len returns the number of nodes
func (t *FrameEntryTree) Len() int {
	return len(t.nodes)
}

// Root returns the main frame's entry
func (t *FrameEntryTree) Root() FrameEntry {
	return t.nodes[0].entry
}

// At returns the entry stored at index i
func (t *FrameEntryTree) At(i int) FrameEntry {
	return t.nodes[i].entry
}

// Parent returns the parent index of i, -1 for the root
func (t *FrameEntryTree) Parent(i int) int {
	return t.nodes[i].parent
}

// Children returns the ordered child indices of i
func (t *FrameEntryTree) Children(i int) []int {
	out := make([]int, len(t.nodes[i].children))
	copy(out, t.nodes[i].children)
	return out
}

// ChildCount returns the number of direct children of i
func (t *FrameEntryTree) ChildCount(i int) int {
	return len(t.nodes[i].children)
}

// Find returns the index of the node recorded for a frame tree node
func (t *FrameEntryTree) Find(frameTreeNodeID int64) (int, bool) {
	for i := range t.nodes {
		if t.nodes[i].entry.FrameTreeNodeID == frameTreeNodeID {
			return i, true
		}
	}
	return -1, false
}

// AddChild appends a node under parent and returns its index
func (t *FrameEntryTree) AddChild(parent int, e FrameEntry) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, frameEntryNode{entry: e.clone(), parent: parent})
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// Set overwrites the entry at index i, keeping its position
func (t *FrameEntryTree) Set(i int, e FrameEntry) {
	t.nodes[i].entry = e.clone()
}

// SetRoot overwrites the main frame entry. Children survive only for
// same-document commits.
func (t *FrameEntryTree) SetRoot(e FrameEntry, keepChildren bool) {
	if !keepChildren {
		t.nodes = t.nodes[:1]
		t.nodes[0].children = nil
	}
	t.Set(0, e)
}

// AddOrUpdate records e for its frame. An existing node for the same frame
// is updated in place. Failing that, a child of parentFrameID's node with
// the same unique FrameName is rebound to the frame, which is how state
// survives a document reload that recreated the frame under a new ID. A
// node still held by a frame that live reports as present is never
// rebound; a nil live treats every recorded frame as gone. Otherwise a
// node is added. Returns false when the parent has no node.
func (t *FrameEntryTree) AddOrUpdate(parentFrameID int64, e FrameEntry, live func(int64) bool) bool {
	if i, ok := t.Find(e.FrameTreeNodeID); ok {
		t.Set(i, e)
		return true
	}
	p, ok := t.Find(parentFrameID)
	if !ok {
		return false
	}
	if c, ok := t.FindByName(p, e.FrameName); ok {
		if live == nil || !live(t.nodes[c].entry.FrameTreeNodeID) {
			t.Set(c, e)
			return true
		}
	}
	t.AddChild(p, e)
	return true
}

// FindByName returns the child of parent recorded under a unique frame name
func (t *FrameEntryTree) FindByName(parent int, name string) (int, bool) {
	if name == "" {
		return -1, false
	}
	for _, c := range t.nodes[parent].children {
		if t.nodes[c].entry.FrameName == name {
			return c, true
		}
	}
	return -1, false
}

// Clone deep-copies the tree
func (t *FrameEntryTree) Clone() *FrameEntryTree {
	out := &FrameEntryTree{nodes: make([]frameEntryNode, len(t.nodes))}
	for i, n := range t.nodes {
		children := make([]int, len(n.children))
		copy(children, n.children)
		out.nodes[i] = frameEntryNode{entry: n.entry.clone(), parent: n.parent, children: children}
	}
	return out
}

// Walk visits nodes depth-first from the root until fn returns false
func (t *FrameEntryTree) Walk(fn func(index int, e FrameEntry) bool) {
	t.walk(0, fn)
}

func (t *FrameEntryTree) walk(i int, fn func(int, FrameEntry) bool) bool {
	if !fn(i, t.nodes[i].entry) {
		return false
	}
	for _, c := range t.nodes[i].children {
		if !t.walk(c, fn) {
			return false
		}
	}
	return true
}

// Records exports the tree in index order
func (t *FrameEntryTree) Records() []FrameEntryRecord {
	out := make([]FrameEntryRecord, len(t.nodes))
	for i, n := range t.nodes {
		children := make([]int, len(n.children))
		copy(children, n.children)
		out[i] = FrameEntryRecord{FrameEntry: n.entry.clone(), Parent: n.parent, Children: children}
	}
	return out
}

// FrameEntryTreeFromRecords rebuilds a tree exported by Records. The links
// are validated so that a corrupt snapshot cannot produce cycles.
func FrameEntryTreeFromRecords(records []FrameEntryRecord) (*FrameEntryTree, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no root", errMalformedFrameTree)
	}
	if records[0].Parent != -1 {
		return nil, fmt.Errorf("%w: root has a parent", errMalformedFrameTree)
	}
	t := &FrameEntryTree{nodes: make([]frameEntryNode, len(records))}
	seen := make([]bool, len(records))
	seen[0] = true
	for i, r := range records {
		for _, c := range r.Children {
			if c <= i || c >= len(records) || seen[c] || records[c].Parent != i {
				return nil, fmt.Errorf("%w: bad child %d of %d", errMalformedFrameTree, c, i)
			}
			seen[c] = true
		}
		children := make([]int, len(r.Children))
		copy(children, r.Children)
		t.nodes[i] = frameEntryNode{entry: r.FrameEntry.clone(), parent: r.Parent, children: children}
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: node %d unreachable", errMalformedFrameTree, i)
		}
	}
	return t, nil
}
