package common

import (
	"math"

	"github.com/chewxy/math32"
)

// Vec3 is a double precision 3-vector used for simulation state.
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}
func (a Vec3) Dot(b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

// Norm2 returns the squared length.
func (a Vec3) Norm2() float64 { return a.Dot(a) }

// Norm returns the length.
func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

// Normalize returns a unit vector in the direction of a, or the zero vector.
func (a Vec3) Normalize() Vec3 {
	n := a.Norm()
	if n == 0 {
		return Vec3{}
	}
	return a.Scale(1 / n)
}

// Float32 narrows the vector for GPU upload.
func (a Vec3) Float32() Vec3f { return Vec3f{float32(a[0]), float32(a[1]), float32(a[2])} }

// Vec3f is a single precision 3-vector used for camera and GPU-facing math.
type Vec3f [3]float32

func (a Vec3f) Add(b Vec3f) Vec3f { return Vec3f{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3f) Sub(b Vec3f) Vec3f { return Vec3f{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3f) Scale(s float32) Vec3f {
	return Vec3f{a[0] * s, a[1] * s, a[2] * s}
}
func (a Vec3f) Dot(b Vec3f) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec3f) Cross(b Vec3f) Vec3f {
	return Vec3f{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}
func (a Vec3f) Norm() float32 { return math32.Sqrt(a.Dot(a)) }

// Normalize returns a unit vector in the direction of a, or the zero vector.
func (a Vec3f) Normalize() Vec3f {
	n := a.Norm()
	if n == 0 {
		return Vec3f{}
	}
	return a.Scale(1 / n)
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (a Vec3f) IsFinite() bool {
	for _, c := range a {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// RotateAxis rotates v around the unit axis by angle radians (Rodrigues' formula).
//
// Parameters:
//   - v: the vector to rotate
//   - axis: the rotation axis; it is normalized before use
//   - angle: the rotation angle in radians, counter-clockwise looking down the axis
//
// Returns:
//   - Vec3f: the rotated vector, or v unchanged when the axis is degenerate
func RotateAxis(v, axis Vec3f, angle float32) Vec3f {
	k := axis.Normalize()
	if k == (Vec3f{}) {
		return v
	}
	c, s := math32.Cos(angle), math32.Sin(angle)
	return v.Scale(c).Add(k.Cross(v).Scale(s)).Add(k.Scale(k.Dot(v) * (1 - c)))
}
