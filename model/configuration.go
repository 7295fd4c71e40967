package model

import "github.com/go-gl/mathgl/mgl64"

// Configuration is one named placement of a component, as produced by the
// scene importer. Translation and Rotation are absolute.
type Configuration struct {
	Name        string
	Visible     bool
	Translation mgl64.Vec3
	Rotation    mgl64.Mat3
	AxisValue   float64
}

// Transform assembles the homogeneous placement matrix.
func (c Configuration) Transform() mgl64.Mat4 {
	r := c.Rotation
	if r == (mgl64.Mat3{}) {
		r = mgl64.Ident3()
	}
	m := r.Mat4()
	m.SetCol(3, c.Translation.Vec4(1))
	return m
}

// Placement keeps the pose an attached object was loaded with next to the
// pose it currently has.
type Placement struct {
	Initial mgl64.Mat4
	Current mgl64.Mat4
}

func NewPlacement(m mgl64.Mat4) Placement {
	return Placement{Initial: m, Current: m}
}

// Reset moves the object back to its initial pose.
func (p *Placement) Reset() {
	p.Current = p.Initial
}
