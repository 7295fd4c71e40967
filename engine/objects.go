package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/model"
)

// Free positioning moves an object this far per tick along its direction.
const (
	PositioningStep = 0.05
	// A colliding object is pulled back by these amounts when correction is
	// on; the pull is larger when it was falling towards negative values.
	correctionNegative = 0.005
	correctionPositive = 0.001
)

var ErrBadDirection = errors.New("engine: bad positioning direction")

// Direction is an axis and a sign, written like "Gy-" (x red, y green,
// z blue).
type Direction struct {
	Axis int
	Sign float64
}

var DefaultDirection = Direction{Axis: 1, Sign: -1}

func ParseDirection(s string) (Direction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDirection, nil
	}
	if len(s) != 3 {
		return Direction{}, fmt.Errorf("%w: %q", ErrBadDirection, s)
	}
	var d Direction
	switch strings.ToLower(s[:2]) {
	case "rx":
		d.Axis = 0
	case "gy":
		d.Axis = 1
	case "bz":
		d.Axis = 2
	default:
		return Direction{}, fmt.Errorf("%w: %q", ErrBadDirection, s)
	}
	switch s[2] {
	case '+':
		d.Sign = 1
	case '-':
		d.Sign = -1
	default:
		return Direction{}, fmt.Errorf("%w: %q", ErrBadDirection, s)
	}
	return d, nil
}

func (d Direction) String() string {
	sign := "+"
	if d.Sign < 0 {
		sign = "-"
	}
	return []string{"Rx", "Gy", "Bz"}[d.Axis] + sign
}

// Region is the box free positioning is allowed to explore.
type Region struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

var DefaultRegion = Region{Min: mgl64.Vec3{-400, -30, -400}, Max: mgl64.Vec3{400, 150, 600}}

func (r Region) contains(p mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if p[k] < r.Min[k] || p[k] > r.Max[k] {
			return false
		}
	}
	return true
}

// ObjectSpec describes an attachable object.
type ObjectSpec struct {
	Name      string
	Path      string
	FileName  string
	Visible   bool
	Placement mgl64.Mat4
	Blocks    []string
	Direction Direction
}

// Object is an attached object and its backend registration.
type Object struct {
	Spec        ObjectSpec
	ID          collision.ObjectID
	Registered  bool
	Visible     bool
	Placement   model.Placement
	Positioning bool

	dirty bool
}

// Objects manages attached objects: backend registration follows
// visibility, and placement changes are forwarded on the next query.
type Objects struct {
	Correction bool
	Region     Region

	bridge *collision.Bridge
	list   []*Object
	moving int
	logger *log.Logger
}

func NewObjects(bridge *collision.Bridge, logger *log.Logger) *Objects {
	if logger == nil {
		logger = log.Default()
	}
	return &Objects{bridge: bridge, moving: -1, logger: logger, Region: DefaultRegion}
}

func (o *Objects) Len() int {
	return len(o.list)
}

func (o *Objects) Get(i int) (*Object, bool) {
	if i < 0 || i >= len(o.list) {
		return nil, false
	}
	return o.list[i], true
}

// All returns every object in insertion order.
func (o *Objects) All() []*Object {
	return append([]*Object(nil), o.list...)
}

// Moving is the index of the object last moved or positioned, or -1.
func (o *Objects) Moving() int {
	return o.moving
}

// Add appends an object and registers it when visible.
func (o *Objects) Add(ctx context.Context, spec ObjectSpec) (int, error) {
	if spec.Placement == (mgl64.Mat4{}) {
		spec.Placement = mgl64.Ident4()
	}
	if spec.Direction == (Direction{}) {
		spec.Direction = DefaultDirection
	}
	obj := &Object{Spec: spec, Placement: model.NewPlacement(spec.Placement)}
	o.list = append(o.list, obj)
	idx := len(o.list) - 1
	if !spec.Visible {
		return idx, nil
	}
	return idx, o.SetVisible(ctx, idx, true)
}

// SetVisible shows or hides an object. Showing registers it with the
// backend under a fresh id and only takes effect once the backend accepts
// it; hiding unregisters it.
func (o *Objects) SetVisible(ctx context.Context, i int, visible bool) error {
	obj, ok := o.Get(i)
	if !ok {
		return fmt.Errorf("engine: object %d: %w", i, collision.ErrUnknownObject)
	}
	if obj.Visible == visible {
		return nil
	}

	if visible {
		if !o.bridge.Enabled() {
			obj.Visible = true
			return nil
		}
		id, err := o.bridge.RegisterObject(ctx, obj.Spec.Path, obj.Spec.FileName)
		if err != nil {
			return err
		}
		obj.Visible = true
		obj.ID = id
		obj.Registered = true
		obj.dirty = true
		o.logger.Printf("Objects: %s registered as %d", obj.Spec.Name, id)
		return nil
	}

	obj.Visible = false
	obj.Positioning = false
	if !o.bridge.Enabled() || !obj.Registered {
		return nil
	}
	obj.Registered = false
	if err := o.bridge.UnregisterObject(ctx, obj.ID); err != nil {
		return err
	}
	o.logger.Printf("Objects: %s unregistered", obj.Spec.Name)
	return nil
}

// Move places object i and makes it the moving object. Any free
// positioning stops.
func (o *Objects) Move(i int, m mgl64.Mat4) {
	obj, ok := o.Get(i)
	if !ok {
		return
	}
	o.stopAll(-1)
	o.moving = i
	obj.Placement.Current = m
	obj.dirty = true
}

// TogglePositioning starts or stops free positioning of a visible object.
func (o *Objects) TogglePositioning(i int) {
	obj, ok := o.Get(i)
	if !ok || !obj.Visible {
		return
	}
	o.stopAll(i)
	o.moving = i
	obj.Positioning = !obj.Positioning
}

// Reset stops positioning and puts the object back where it was loaded.
func (o *Objects) Reset(i int) {
	obj, ok := o.Get(i)
	if !ok {
		return
	}
	obj.Positioning = false
	obj.Placement.Reset()
	obj.dirty = true
}

func (o *Objects) stopAll(except int) {
	for j, obj := range o.list {
		if j != except {
			obj.Positioning = false
		}
	}
}

// Step advances every positioning object by one step. Objects leaving the
// region stop.
func (o *Objects) Step() {
	if !o.bridge.Enabled() {
		return
	}
	for _, obj := range o.list {
		if !obj.Positioning {
			continue
		}
		o.nudge(obj, obj.Spec.Direction.Sign*PositioningStep)
		if !o.Region.contains(obj.Placement.Current.Col(3).Vec3()) {
			obj.Positioning = false
			o.logger.Printf("Objects: %s left the positioning region", obj.Spec.Name)
		}
	}
}

func (o *Objects) nudge(obj *Object, amount float64) {
	m := obj.Placement.Current
	m[12+obj.Spec.Direction.Axis] += amount
	obj.Placement.Current = m
	obj.dirty = true
}

// PendingMoves returns the placement of every registered object the
// backend has not acknowledged yet.
func (o *Objects) PendingMoves() []collision.ObjectTransform {
	var out []collision.ObjectTransform
	for _, obj := range o.list {
		if !obj.dirty || !obj.Registered {
			continue
		}
		out = append(out, collision.ObjectTransform{ID: obj.ID, Transform: obj.Placement.Current})
	}
	return out
}

// Ack marks sent placements as delivered. An object that moved again since
// stays pending.
func (o *Objects) Ack(sent []collision.ObjectTransform) {
	for _, s := range sent {
		for _, obj := range o.list {
			if obj.Registered && obj.ID == s.ID && obj.Placement.Current == s.Transform {
				obj.dirty = false
			}
		}
	}
}

// UpdatePositioning stops the moving object as soon as it takes part in
// a collision, and backs it off when correction is on.
func (o *Objects) UpdatePositioning(pairs []collision.Pair) {
	obj, ok := o.Get(o.moving)
	if !ok || !obj.Registered {
		return
	}
	hit := false
	for _, p := range pairs {
		if p.ObjectA == obj.ID || p.ObjectB == obj.ID {
			hit = true
			break
		}
	}
	if !hit {
		return
	}
	obj.Positioning = false
	if !o.Correction {
		return
	}
	if obj.Spec.Direction.Sign < 0 {
		o.nudge(obj, correctionNegative)
	} else {
		o.nudge(obj, -correctionPositive)
	}
}

// Registered returns the backend ids of the registered objects with their
// block names.
func (o *Objects) Registered() map[collision.ObjectID][]string {
	out := make(map[collision.ObjectID][]string)
	for _, obj := range o.list {
		if obj.Registered {
			out[obj.ID] = obj.Spec.Blocks
		}
	}
	return out
}
