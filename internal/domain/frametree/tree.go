package frametree

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an ID does not name a live node
	ErrNodeNotFound = errors.New("frame tree node not found")
	// ErrRootRemoval is returned when removing the root is attempted
	ErrRootRemoval = errors.New("cannot remove the root frame")
)

// Node is a snapshot of one frame in the tree
type Node struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id,omitempty"`
	Name     string `json:"name,omitempty"`
	// UniqueName is fixed when the frame is attached: its name, or its
	// creation order under the parent's current document.
	UniqueName string  `json:"unique_name,omitempty"`
	URL        string  `json:"url,omitempty"`
	Origin     string  `json:"origin,omitempty"`
	ProcessID  string  `json:"process_id,omitempty"`
	Children   []int64 `json:"children,omitempty"`
}

// IsRoot reports whether the node is the main frame
func (n Node) IsRoot() bool {
	return n.ParentID == 0
}

type node struct {
	parent    int64
	name      string
	unique    string
	childSeq  int
	url       string
	origin    string
	processID string
	children  []int64
}

// Tree is an arena of frame nodes rooted at the main frame
type Tree struct {
	nodes  map[int64]*node
	rootID int64
	nextID int64
}

// New creates a tree containing only a root frame owned by processID
func New(processID string) *Tree {
	t := &Tree{nodes: make(map[int64]*node)}
	t.rootID = t.alloc(0, "", processID)
	return t
}

func (t *Tree) alloc(parent int64, name, processID string) int64 {
	t.nextID++
	t.nodes[t.nextID] = &node{parent: parent, name: name, processID: processID}
	return t.nextID
}

// RootID returns the ID of the main frame
func (t *Tree) RootID() int64 {
	return t.rootID
}

// Root returns a snapshot of the main frame
func (t *Tree) Root() Node {
	n, _ := t.FindByID(t.rootID)
	return n
}

// Count returns the number of live nodes
func (t *Tree) Count() int {
	return len(t.nodes)
}

// Contains reports whether id names a live node
func (t *Tree) Contains(id int64) bool {
	_, ok := t.nodes[id]
	return ok
}

// FindByID returns a snapshot of the node with the given ID
func (t *Tree) FindByID(id int64) (Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return t.snapshot(id, n), true
}

func (t *Tree) snapshot(id int64, n *node) Node {
	children := make([]int64, len(n.children))
	copy(children, n.children)
	return Node{
		ID:         id,
		ParentID:   n.parent,
		Name:       n.name,
		UniqueName: n.unique,
		URL:        n.url,
		Origin:     n.origin,
		ProcessID:  n.processID,
		Children:   children,
	}
}

// FindByName returns the first node in tree order whose name matches.
// Unnamed frames are never matched.
func (t *Tree) FindByName(name string) (int64, bool) {
	if name == "" {
		return 0, false
	}
	var found int64
	t.Walk(func(n Node) bool {
		if n.Name == name {
			found = n.ID
			return false
		}
		return true
	})
	return found, found != 0
}

// Parent returns the parent ID of a node; the root has no parent
func (t *Tree) Parent(id int64) (int64, bool) {
	n, ok := t.nodes[id]
	if !ok || n.parent == 0 {
		return 0, false
	}
	return n.parent, true
}

// Children returns the ordered child IDs of a node
func (t *Tree) Children(id int64) []int64 {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]int64, len(n.children))
	copy(out, n.children)
	return out
}

// UniqueName identifies a frame among its siblings across document
// reloads. It is assigned once by AddChild; the root has none.
func (t *Tree) UniqueName(id int64) string {
	n, ok := t.nodes[id]
	if !ok {
		return ""
	}
	return n.unique
}

// Depth returns the distance from the root, 0 for the main frame
func (t *Tree) Depth(id int64) (int, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return 0, false
	}
	depth := 0
	for n.parent != 0 {
		depth++
		n = t.nodes[n.parent]
	}
	return depth, true
}

// AddChild appends a new frame under parent and returns its ID. A frame
// keeps its name as unique name unless a sibling already holds it;
// unnamed frames are numbered in creation order under the parent's
// document, so removing a sibling never hands its name to a newcomer.
func (t *Tree) AddChild(parent int64, name, processID string) (int64, error) {
	p, ok := t.nodes[parent]
	if !ok {
		return 0, fmt.Errorf("add child to %d: %w", parent, ErrNodeNotFound)
	}
	seq := p.childSeq
	p.childSeq++

	unique := name
	if unique == "" || t.siblingHolds(p, unique) {
		unique = fmt.Sprintf("%s/<frame%d>", p.unique, seq)
	}
	childID := t.alloc(parent, name, processID)
	t.nodes[childID].unique = unique
	p.children = append(p.children, childID)
	return childID, nil
}

func (t *Tree) siblingHolds(p *node, unique string) bool {
	for _, c := range p.children {
		if t.nodes[c].unique == unique {
			return true
		}
	}
	return false
}

// RemoveChild detaches a frame and frees its whole subtree
func (t *Tree) RemoveChild(id int64) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrNodeNotFound)
	}
	if n.parent == 0 {
		return ErrRootRemoval
	}

	p := t.nodes[n.parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	t.free(id)
	return nil
}

func (t *Tree) free(id int64) {
	n := t.nodes[id]
	for _, c := range n.children {
		t.free(c)
	}
	delete(t.nodes, id)
}

// Reset discards every frame and creates a fresh root with a new ID.
// IDs are never reused, so references to the old tree fail lookup.
func (t *Tree) Reset(processID string) int64 {
	t.nodes = make(map[int64]*node)
	t.rootID = t.alloc(0, "", processID)
	return t.rootID
}

// SetCurrentURL records the document a frame is displaying
func (t *Tree) SetCurrentURL(id int64, url, origin string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("set url on %d: %w", id, ErrNodeNotFound)
	}
	n.url = url
	n.origin = origin
	return nil
}

// SetProcess moves a frame to another renderer process
func (t *Tree) SetProcess(id int64, processID string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("set process on %d: %w", id, ErrNodeNotFound)
	}
	n.processID = processID
	return nil
}

// SetName renames a frame, e.g. after window.name changes. The unique
// name stays as assigned.
func (t *Tree) SetName(id int64, name string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("set name on %d: %w", id, ErrNodeNotFound)
	}
	n.name = name
	return nil
}

// ClearChildren removes every descendant of id, as happens when the frame
// commits a new cross-document load. Numbering of unnamed children starts
// over for the new document.
func (t *Tree) ClearChildren(id int64) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.children {
		t.free(c)
	}
	n.children = nil
	n.childSeq = 0
}

// Walk visits nodes in pre-order until fn returns false
func (t *Tree) Walk(fn func(Node) bool) {
	t.walk(t.rootID, fn)
}

func (t *Tree) walk(id int64, fn func(Node) bool) bool {
	n, ok := t.nodes[id]
	if !ok {
		return true
	}
	if !fn(t.snapshot(id, n)) {
		return false
	}
	for _, c := range n.children {
		if !t.walk(c, fn) {
			return false
		}
	}
	return true
}

// Nodes returns every node in pre-order
func (t *Tree) Nodes() []Node {
	out := make([]Node, 0, len(t.nodes))
	t.Walk(func(n Node) bool {
		out = append(out, n)
		return true
	})
	return out
}
