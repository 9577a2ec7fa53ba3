package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerToQuat converts Euler XYZ (radians) to a unit quaternion.
// X is applied first, then Y, then Z (R = Rz·Ry·Rx), the convention used by
// the exporter's rotation triples.
func EulerToQuat(rx, ry, rz float64) mgl64.Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return mgl64.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl64.Vec3{
			sx*cy*cz - cx*sy*sz, // x
			cx*sy*cz + sx*cy*sz, // y
			cx*cy*sz - sx*sy*cz, // z
		},
	}
}

// EulerDegToQuat is EulerToQuat for an [rx, ry, rz] triple in degrees.
func EulerDegToQuat(deg mgl64.Vec3) mgl64.Quat {
	return EulerToQuat(Deg2Rad(deg[0]), Deg2Rad(deg[1]), Deg2Rad(deg[2]))
}

// QuatWXYZ builds a normalized quaternion from scalar-first components.
// ok is false for a zero-length quaternion.
func QuatWXYZ(w, x, y, z float64) (q mgl64.Quat, ok bool) {
	q = mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
	l := q.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.QuatIdent(), false
	}
	return q.Scale(1 / l), true
}
