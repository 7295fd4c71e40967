package collision

import "github.com/go-gl/mathgl/mgl64"

// The backend's frame is mirrored on X and Z relative to the viewer and
// measured in centimetres.
const backendScale = 100

// BackendTransform is the 12-float rigid transform a MOVE_OBJECT carries.
type BackendTransform struct {
	XX float64 `json:"xx"`
	XY float64 `json:"xy"`
	XZ float64 `json:"xz"`
	YX float64 `json:"yx"`
	YY float64 `json:"yy"`
	YZ float64 `json:"yz"`
	ZX float64 `json:"zx"`
	ZY float64 `json:"zy"`
	ZZ float64 `json:"zz"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// EncodeTransform applies the fixed sign and scale correction to a
// column-major viewer matrix.
func EncodeTransform(m mgl64.Mat4) BackendTransform {
	return BackendTransform{
		XX: m[0], XY: -m[1], XZ: m[2],
		YX: -m[4], YY: m[5], YZ: -m[6],
		ZX: m[8], ZY: -m[9], ZZ: m[10],
		X: -m[12] * backendScale, Y: m[13] * backendScale, Z: -m[14] * backendScale,
	}
}

// Decode inverts EncodeTransform.
func (t BackendTransform) Decode() mgl64.Mat4 {
	return mgl64.Mat4{
		t.XX, -t.XY, t.XZ, 0,
		-t.YX, t.YY, -t.YZ, 0,
		t.ZX, -t.ZY, t.ZZ, 0,
		-t.X / backendScale, t.Y / backendScale, -t.Z / backendScale, 1,
	}
}
