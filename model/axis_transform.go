package model

import "github.com/go-gl/mathgl/mgl64"

// DeltaTransform converts a scalar axis change into a homogeneous transform.
// Rotation deltas are in degrees and turn about direction through pivot.
func DeltaTransform(kind AxisKind, delta float64, direction, pivot mgl64.Vec3) mgl64.Mat4 {
	switch kind {
	case AxisTranslation:
		t := direction.Mul(delta)
		return mgl64.Translate3D(t[0], t[1], t[2])
	case AxisRotation:
		toPivot := mgl64.Translate3D(-pivot[0], -pivot[1], -pivot[2])
		rotation := mgl64.HomogRotate3D(mgl64.DegToRad(delta), direction)
		fromPivot := mgl64.Translate3D(pivot[0], pivot[1], pivot[2])
		// order matters: back to pivot frame, rotate, return
		return fromPivot.Mul4(rotation).Mul4(toPivot)
	default:
		return mgl64.Ident4()
	}
}
