package engine

import (
	"image/color"
	"log"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/ecs"
	"github.com/milk9111/nomad3d/ecs/component"
	"github.com/milk9111/nomad3d/link"
	"github.com/milk9111/nomad3d/model"
)

// TreeBlocks exposes the posed blocks of a model to the loopback backend.
// Blocks without bounds are not collidable.
type TreeBlocks struct {
	Tree *model.Tree
}

func (tb TreeBlocks) BlockBoxes() []collision.BlockBox {
	if tb.Tree == nil {
		return nil
	}
	var out []collision.BlockBox
	for _, n := range tb.Tree.Blocks() {
		if n.Bounds == nil {
			continue
		}
		world, err := tb.Tree.Absolute(n.ID())
		if err != nil {
			continue
		}
		out = append(out, collision.BlockBox{
			World: world,
			Box:   collision.LocalBox{Name: n.Name, Min: n.Bounds.Min, Max: n.Bounds.Max},
		})
	}
	return out
}

// ServedTree is a model owned by a standalone backend. Its axes follow
// the positions of each COLLISIONS request.
type ServedTree struct {
	TreeBlocks
	bindings *link.Bindings
}

func NewServedTree(tree *model.Tree, configuration string, logger *log.Logger) *ServedTree {
	tree.BindConfiguration(configuration)
	bindings := link.CollectBindings(tree, logger)
	bindings.Init(nil)
	return &ServedTree{TreeBlocks: TreeBlocks{Tree: tree}, bindings: bindings}
}

func (st *ServedTree) Bindings() *link.Bindings {
	return st.bindings
}

func (st *ServedTree) Pose(positions map[string]float64) {
	st.bindings.Update(link.PositionSet(positions))
}

// blockIndex maps block identities to their entities in the world.
type blockIndex struct {
	world    *ecs.World
	material component.Material
	entities map[collision.BlockKey]ecs.Entity
}

func newBlockIndex(w *ecs.World, material component.Material) *blockIndex {
	return &blockIndex{world: w, material: material, entities: make(map[collision.BlockKey]ecs.Entity)}
}

func (bi *blockIndex) add(key collision.BlockKey, visible bool) error {
	if _, ok := bi.entities[key]; ok {
		return nil
	}
	e := ecs.CreateEntity(bi.world)
	if err := ecs.Add(bi.world, e, component.BlockComponent, component.Block{ObjectID: int(key.Object), Name: key.Name}); err != nil {
		return err
	}
	if err := ecs.Add(bi.world, e, component.BlockVisualComponent, component.BlockVisual{
		Visible:  visible,
		Shown:    visible,
		Material: bi.material,
		Backup:   bi.material,
	}); err != nil {
		return err
	}
	bi.entities[key] = e
	return nil
}

func (bi *blockIndex) remove(key collision.BlockKey) {
	if e, ok := bi.entities[key]; ok {
		ecs.DestroyEntity(bi.world, e)
		delete(bi.entities, key)
	}
}

// syncObjects keeps one entity per block of every registered object.
func (bi *blockIndex) syncObjects(registered map[collision.ObjectID][]string) error {
	for key := range bi.entities {
		if key.Object == collision.MainModel {
			continue
		}
		if _, ok := registered[key.Object]; !ok {
			bi.remove(key)
		}
	}
	for id, names := range registered {
		for _, name := range names {
			if err := bi.add(collision.BlockKey{Object: id, Name: name}, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (bi *blockIndex) visual(key collision.BlockKey) (*component.BlockVisual, bool) {
	e, ok := bi.entities[key]
	if !ok {
		return nil, false
	}
	return ecs.Get(bi.world, e, component.BlockVisualComponent)
}

// DefaultMaterial is the look of a block that is not highlighted.
var DefaultMaterial = component.Material{Color: color.Gray{Y: 0xc0}, Opacity: 1}
