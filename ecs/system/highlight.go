package system

import (
	"log"

	"golang.org/x/image/colornames"

	"github.com/milk9111/nomad3d/common"
	"github.com/milk9111/nomad3d/ecs"
	"github.com/milk9111/nomad3d/ecs/component"
)

// Pulse defaults of the collision material.
const (
	DefaultPulseMin  = 0.4
	DefaultPulseMax  = 0.8
	DefaultPulseStep = 0.005
)

// DefaultPulse is the pulse used when the world carries none.
func DefaultPulse() component.HighlightPulse {
	return component.HighlightPulse{
		Color:   colornames.Red,
		Opacity: 0.5,
		Min:     DefaultPulseMin,
		Max:     DefaultPulseMax,
		Step:    DefaultPulseStep,
		Rising:  true,
	}
}

// HighlightStats counts state transitions since the system was created.
type HighlightStats struct {
	Highlights int
	Restores   int
	Unknown    int
}

// HighlightSystem turns collision reports into per-block material state.
// A block is highlighted on the first report naming it and restored from
// its backup material when a report clears all collisions.
type HighlightSystem struct {
	logger   *log.Logger
	fallback component.HighlightPulse
	stats    HighlightStats
}

func NewHighlightSystem(logger *log.Logger) *HighlightSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &HighlightSystem{logger: logger, fallback: DefaultPulse()}
}

func (s *HighlightSystem) Stats() HighlightStats {
	return s.stats
}

func (s *HighlightSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}

	pulse := &s.fallback
	if _, p, ok := ecs.First(w, component.HighlightPulseComponent); ok {
		pulse = p
	}
	pulse.Opacity, pulse.Rising = common.Oscillate(pulse.Opacity, pulse.Min, pulse.Max, pulse.Step, pulse.Rising)

	var reports []component.CollisionReportRequest
	var carriers []ecs.Entity
	ecs.ForEach(w, component.CollisionReportRequestComponent, func(e ecs.Entity, r *component.CollisionReportRequest) {
		reports = append(reports, *r)
		carriers = append(carriers, e)
	})
	for _, e := range carriers {
		ecs.DestroyEntity(w, e)
	}
	for _, r := range reports {
		s.apply(w, r, pulse)
	}

	ecs.ForEach(w, component.BlockVisualComponent, func(_ ecs.Entity, v *component.BlockVisual) {
		if v.Highlighted {
			v.Material.Color = pulse.Color
			v.Material.Opacity = pulse.Opacity
		}
	})
}

func (s *HighlightSystem) apply(w *ecs.World, r component.CollisionReportRequest, pulse *component.HighlightPulse) {
	ecs.ForEach(w, component.BlockVisualComponent, func(_ ecs.Entity, v *component.BlockVisual) {
		v.Current = false
	})

	if !r.Colliding {
		ecs.ForEach(w, component.BlockVisualComponent, func(e ecs.Entity, v *component.BlockVisual) {
			if !v.Highlighted {
				return
			}
			v.Material = v.Backup
			v.Highlighted = false
			s.stats.Restores++
			s.emit(w, ecs.EventRestored, e)
		})
		return
	}

	index := make(map[component.Block]ecs.Entity)
	ecs.ForEach(w, component.BlockComponent, func(e ecs.Entity, b *component.Block) {
		index[*b] = e
	})

	for _, b := range r.Blocks {
		e, ok := index[b]
		if !ok {
			s.stats.Unknown++
			s.logger.Printf("HighlightSystem: no block %q in object %d", b.Name, b.ObjectID)
			continue
		}
		v, ok := ecs.Get(w, e, component.BlockVisualComponent)
		if !ok || v.Current {
			continue
		}
		v.Current = true
		if v.Highlighted {
			continue
		}
		v.Highlighted = true
		v.Material = component.Material{Color: pulse.Color, Opacity: pulse.Opacity, Highlight: true}
		s.stats.Highlights++
		s.emit(w, ecs.EventHighlighted, e)
	}
}

// emit reports a transition with the block it happened to.
func (s *HighlightSystem) emit(w *ecs.World, t ecs.EventType, e ecs.Entity) {
	evt := ecs.Event{Type: t, Entity: e}
	if b, ok := ecs.Get(w, e, component.BlockComponent); ok {
		evt.Data = *b
	}
	w.Events().Push(evt)
}
