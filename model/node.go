package model

import "github.com/go-gl/mathgl/mgl64"

// NodeID indexes a node inside its Tree.
type NodeID int

const NoNode NodeID = -1

// Proxy is the render-side handle of a node. The tree only writes to it.
type Proxy interface {
	SetTransform(m mgl64.Mat4)
	SetVisible(visible bool)
}

// Box is an axis-aligned extent in the node's own frame.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// Node is a rigid component of the instrument model. Its transform is
// InverseParent · Movement · Local, and Movement only ever accumulates.
type Node struct {
	Name           string
	Mergeable      bool
	Axis           *Axis
	Controller     string
	Configurations []Configuration
	Bounds         *Box

	id       NodeID
	parent   NodeID
	children []NodeID

	local     mgl64.Mat4
	movement  mgl64.Mat4
	invParent mgl64.Mat4
	transform mgl64.Mat4
	bound     bool
	visible   bool
	proxy     Proxy
}

func (n *Node) ID() NodeID                { return n.id }
func (n *Node) Parent() NodeID            { return n.parent }
func (n *Node) Children() []NodeID        { return append([]NodeID(nil), n.children...) }
func (n *Node) Local() mgl64.Mat4         { return n.local }
func (n *Node) Movement() mgl64.Mat4      { return n.movement }
func (n *Node) InverseParent() mgl64.Mat4 { return n.invParent }
func (n *Node) Transform() mgl64.Mat4     { return n.transform }
func (n *Node) Bound() bool               { return n.bound }
func (n *Node) Visible() bool             { return n.visible }
func (n *Node) SetProxy(p Proxy)          { n.proxy = p }
func (n *Node) IsLeaf() bool              { return len(n.children) == 0 }
func (n *Node) Controllable() bool        { return n.Axis.Controllable() }

// Configuration returns the configuration called name, or the first one
// when name is empty or unknown.
func (n *Node) Configuration(name string) (Configuration, bool) {
	if len(n.Configurations) == 0 {
		return Configuration{Name: name, Visible: true}, false
	}
	for _, c := range n.Configurations {
		if c.Name == name {
			return c, true
		}
	}
	return n.Configurations[0], name == ""
}

// BindConfiguration places the node for cfg relative to parentWorld and
// clears any accumulated movement.
func (n *Node) BindConfiguration(cfg Configuration, parentWorld mgl64.Mat4) {
	if n.Mergeable {
		n.local = mgl64.Ident4()
	} else {
		n.local = cfg.Transform()
	}
	n.invParent = parentWorld.Inv()
	n.movement = mgl64.Ident4()
	n.bound = true
	n.visible = cfg.Visible

	if n.Axis != nil {
		n.Axis.Set(cfg.AxisValue - n.Axis.Zero())
	}

	n.recompute()
	if n.proxy != nil {
		n.proxy.SetVisible(n.visible)
	}
}

// ApplyDelta premultiplies the accumulated movement by delta and pushes
// the new transform to the proxy. Unbound nodes ignore it.
func (n *Node) ApplyDelta(delta mgl64.Mat4) {
	if !n.bound {
		return
	}
	n.movement = delta.Mul4(n.movement)
	n.recompute()
}

// Move converts an axis change into a delta transform. Nodes without a
// controllable axis are static mounts and ignore it.
func (n *Node) Move(delta float64) {
	if !n.Controllable() || delta == 0 {
		return
	}
	n.ApplyDelta(n.Axis.DeltaTransform(delta))
}

func (n *Node) recompute() {
	n.transform = n.invParent.Mul4(n.movement).Mul4(n.local)
	if n.proxy != nil {
		n.proxy.SetTransform(n.transform)
	}
}
