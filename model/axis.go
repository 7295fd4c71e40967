package model

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/nomad3d/common"
)

// AxisKind is the degree of freedom a component exposes.
type AxisKind int

const (
	AxisFixed AxisKind = iota
	AxisTranslation
	AxisRotation
	AxisNone
)

func (k AxisKind) String() string {
	switch k {
	case AxisFixed:
		return "Fixed"
	case AxisTranslation:
		return "Translation"
	case AxisRotation:
		return "Rotation"
	case AxisNone:
		return "None"
	default:
		return fmt.Sprintf("AxisKind(%d)", int(k))
	}
}

// ParseAxisKind maps the scene-description spelling of an axis type.
func ParseAxisKind(s string) (AxisKind, error) {
	switch s {
	case "Fixed", "":
		return AxisFixed, nil
	case "Translation":
		return AxisTranslation, nil
	case "Rotation":
		return AxisRotation, nil
	case "None":
		return AxisNone, nil
	default:
		return AxisFixed, fmt.Errorf("model: unknown axis type %q", s)
	}
}

// AxisSpec describes an axis at construction time. Nil bounds leave the
// axis unconstrained on that side.
type AxisSpec struct {
	Kind      AxisKind
	Direction mgl64.Vec3
	Pivot     mgl64.Vec3
	Min       *float64
	Max       *float64
	Zero      float64
}

// Axis is a single controllable degree of freedom. Direction and pivot are
// fixed after construction; the value is always kept inside [Min, Max].
type Axis struct {
	kind      AxisKind
	direction mgl64.Vec3
	pivot     mgl64.Vec3
	value     float64
	min       float64
	max       float64
	zero      float64
}

func NewAxis(spec AxisSpec) *Axis {
	dir := spec.Direction
	if dir.Len() == 0 {
		dir = mgl64.Vec3{0, 1, 0}
	}
	a := &Axis{
		kind:      spec.Kind,
		direction: dir.Normalize(),
		pivot:     spec.Pivot,
		min:       math.Inf(-1),
		max:       math.Inf(1),
		zero:      spec.Zero,
	}
	if spec.Min != nil {
		a.min = *spec.Min
	}
	if spec.Max != nil {
		a.max = *spec.Max
	}
	if a.min > a.max {
		a.min, a.max = a.max, a.min
	}
	a.value = common.Clamp(0, a.min, a.max)
	return a
}

func (a *Axis) Kind() AxisKind        { return a.kind }
func (a *Axis) Direction() mgl64.Vec3 { return a.direction }
func (a *Axis) Pivot() mgl64.Vec3     { return a.pivot }
func (a *Axis) Value() float64        { return a.value }
func (a *Axis) Min() float64          { return a.min }
func (a *Axis) Max() float64          { return a.max }
func (a *Axis) Zero() float64         { return a.zero }

// Bounded reports whether both limits are finite.
func (a *Axis) Bounded() bool {
	return !math.IsInf(a.min, 0) && !math.IsInf(a.max, 0)
}

// Controllable reports whether the axis accepts values.
func (a *Axis) Controllable() bool {
	if a == nil {
		return false
	}
	return a.kind == AxisTranslation || a.kind == AxisRotation
}

// Set assigns a clamped value and returns the applied change. Fixed and
// None axes ignore the call and report a zero change.
func (a *Axis) Set(v float64) float64 {
	if !a.Controllable() || math.IsNaN(v) {
		return 0
	}
	old := a.value
	a.value = common.Clamp(v, a.min, a.max)
	return a.value - old
}

// DeltaTransform is the rigid increment produced by moving this axis by delta.
func (a *Axis) DeltaTransform(delta float64) mgl64.Mat4 {
	if a == nil {
		return mgl64.Ident4()
	}
	return DeltaTransform(a.kind, delta, a.direction, a.pivot)
}
