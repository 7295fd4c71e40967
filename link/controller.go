package link

import (
	"log"

	"github.com/milk9111/nomad3d/model"
)

// Binding ties one external signal to the axis of one node.
type Binding struct {
	name string
	node *model.Node
}

func NewBinding(name string, node *model.Node) *Binding {
	return &Binding{name: name, node: node}
}

func (b *Binding) Name() string      { return b.name }
func (b *Binding) Node() *model.Node { return b.node }

func (b *Binding) active() bool {
	return b != nil && b.node != nil && b.node.Controllable()
}

// Init sets the axis to abs without moving the node, so the starting pose
// does not jump.
func (b *Binding) Init(abs float64) {
	if !b.active() {
		return
	}
	b.node.Axis.Set(abs)
}

// Update moves the node by the clamped change of its axis and returns that
// change.
func (b *Binding) Update(abs float64) float64 {
	if !b.active() {
		return 0
	}
	delta := b.node.Axis.Set(abs)
	b.node.Move(delta)
	return delta
}

// Bindings is every binding of a model, in traversal order.
type Bindings struct {
	list   []*Binding
	logger *log.Logger
}

// CollectBindings binds each node that names a controller and has a
// controllable axis.
func CollectBindings(tree *model.Tree, logger *log.Logger) *Bindings {
	if logger == nil {
		logger = log.Default()
	}
	bs := &Bindings{logger: logger}
	tree.Traverse(func(n *model.Node) {
		if n.Controller == "" {
			return
		}
		if !n.Controllable() {
			logger.Printf("Bindings: controller %s on %s has no controllable axis", n.Controller, n.Name)
			return
		}
		bs.list = append(bs.list, NewBinding(n.Controller, n))
	})
	return bs
}

func (bs *Bindings) Len() int {
	return len(bs.list)
}

func (bs *Bindings) All() []*Binding {
	return append([]*Binding(nil), bs.list...)
}

// Names lists the controller names, duplicates included.
func (bs *Bindings) Names() []string {
	names := make([]string, 0, len(bs.list))
	for _, b := range bs.list {
		names = append(names, b.name)
	}
	return names
}

// Init establishes the starting pose. A nil set initialises every axis
// at 0.
func (bs *Bindings) Init(set PositionSet) {
	for _, b := range bs.list {
		if set == nil {
			b.Init(0)
			continue
		}
		if v, ok := set.Get(b.name); ok {
			b.Init(v)
		}
	}
	bs.logger.Printf("Bindings: initialised %d controllers", len(bs.list))
}

// Update applies set and returns how many nodes moved. Names missing from
// set are skipped.
func (bs *Bindings) Update(set PositionSet) int {
	moved := 0
	for _, b := range bs.list {
		v, ok := set.Get(b.name)
		if !ok {
			continue
		}
		if b.Update(v) != 0 {
			moved++
		}
	}
	return moved
}

// Positions reports the current axis value of every binding.
func (bs *Bindings) Positions() PositionSet {
	set := make(PositionSet, len(bs.list))
	for _, b := range bs.list {
		set[b.name] = b.node.Axis.Value()
	}
	return set
}
