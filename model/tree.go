package model

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrNodeOutOfRange = errors.New("model: node index out of range")

// Tree owns every node of one model instance. Node 0 is the root.
type Tree struct {
	nodes  []*Node
	byName map[string]NodeID
	active string
}

func NewTree() *Tree {
	return &Tree{byName: make(map[string]NodeID)}
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Root returns the root id, or NoNode for an empty tree.
func (t *Tree) Root() NodeID {
	if t.Len() == 0 {
		return NoNode
	}
	return 0
}

// Add inserts n under parent. The first node added becomes the root and
// must be added with parent NoNode.
func (t *Tree) Add(parent NodeID, n *Node) (NodeID, error) {
	if n == nil {
		return NoNode, fmt.Errorf("model: add nil node")
	}
	if len(t.nodes) == 0 {
		if parent != NoNode {
			return NoNode, fmt.Errorf("model: add %s: %w", n.Name, ErrNodeOutOfRange)
		}
	} else if _, err := t.Node(parent); err != nil {
		return NoNode, fmt.Errorf("model: add %s: %w", n.Name, err)
	}

	id := NodeID(len(t.nodes))
	n.id = id
	n.parent = parent
	n.children = nil
	n.movement = mgl64.Ident4()
	n.local = mgl64.Ident4()
	n.invParent = mgl64.Ident4()
	n.transform = mgl64.Ident4()
	n.bound = false
	t.nodes = append(t.nodes, n)
	if parent != NoNode {
		p := t.nodes[parent]
		p.children = append(p.children, id)
	}
	if _, dup := t.byName[n.Name]; !dup && n.Name != "" {
		t.byName[n.Name] = id
	}
	return id, nil
}

// Node looks up a node by id.
func (t *Tree) Node(id NodeID) (*Node, error) {
	if t == nil || id < 0 || int(id) >= len(t.nodes) {
		return nil, fmt.Errorf("model: node %d: %w", id, ErrNodeOutOfRange)
	}
	return t.nodes[id], nil
}

// Find returns the first node added with name.
func (t *Tree) Find(name string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	id, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.nodes[id], true
}

// Traverse visits every node once, depth first, parents before children.
func (t *Tree) Traverse(fn func(n *Node)) {
	if t.Len() == 0 || fn == nil {
		return
	}
	stack := []NodeID{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[id]
		fn(n)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}

// Blocks returns the collidable units: mergeable nodes, and leaves that
// are not below a mergeable node.
func (t *Tree) Blocks() []*Node {
	var out []*Node
	t.walk(0, func(n *Node) bool {
		if n.Mergeable || n.IsLeaf() {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// ActiveConfiguration is the name last passed to BindConfiguration.
func (t *Tree) ActiveConfiguration() string {
	if t == nil {
		return ""
	}
	return t.active
}

// BindConfiguration places every node for the named configuration. Each
// node's local placement is the parent transform of its children; the
// subtree of a mergeable node is not descended.
func (t *Tree) BindConfiguration(name string) {
	if t.Len() == 0 {
		return
	}
	t.active = name
	t.bind(0, name, mgl64.Ident4())
}

func (t *Tree) bind(id NodeID, name string, parentWorld mgl64.Mat4) {
	n := t.nodes[id]
	cfg, _ := n.Configuration(name)
	n.BindConfiguration(cfg, parentWorld)
	if n.Mergeable {
		return
	}
	for _, c := range n.children {
		t.bind(c, name, n.local)
	}
}

// Absolute composes the transforms from the root down to id.
func (t *Tree) Absolute(id NodeID) (mgl64.Mat4, error) {
	n, err := t.Node(id)
	if err != nil {
		return mgl64.Ident4(), err
	}
	m := n.transform
	for p := n.parent; p != NoNode; p = t.nodes[p].parent {
		m = t.nodes[p].transform.Mul4(m)
	}
	return m, nil
}

// Clear destroys every node.
func (t *Tree) Clear() {
	t.nodes = nil
	t.byName = make(map[string]NodeID)
	t.active = ""
}

func (t *Tree) walk(id NodeID, fn func(n *Node) bool) {
	if t.Len() == 0 {
		return
	}
	n := t.nodes[id]
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		t.walk(c, fn)
	}
}
