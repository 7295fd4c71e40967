package system

import (
	"github.com/milk9111/nomad3d/ecs"
	"github.com/milk9111/nomad3d/ecs/component"
)

// FocusSystem shows only the currently colliding blocks while focus is on.
// With focus on and nothing colliding, or right after focus is turned off,
// every block goes back to its Shown visibility.
type FocusSystem struct {
	wasEnabled bool
}

func NewFocusSystem() *FocusSystem {
	return &FocusSystem{}
}

func (s *FocusSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}

	enabled := false
	if _, f, ok := ecs.First(w, component.FocusComponent); ok {
		enabled = f.Enabled
	}
	if !enabled {
		if s.wasEnabled {
			showAll(w)
		}
		s.wasEnabled = false
		return
	}
	s.wasEnabled = true

	colliding := false
	ecs.ForEach(w, component.BlockVisualComponent, func(_ ecs.Entity, v *component.BlockVisual) {
		colliding = colliding || v.Current
	})
	if !colliding {
		showAll(w)
		return
	}
	ecs.ForEach(w, component.BlockVisualComponent, func(_ ecs.Entity, v *component.BlockVisual) {
		v.Visible = v.Current
	})
}

func showAll(w *ecs.World) {
	ecs.ForEach(w, component.BlockVisualComponent, func(_ ecs.Entity, v *component.BlockVisual) {
		v.Visible = v.Shown
	})
}
