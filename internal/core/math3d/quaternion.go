package math3d

import "math"

// Quaternion is a rotation in scalar-first [w, x, y, z] convention.
// Orientations handed to the scene are expected to be unit quaternions;
// Normalize before storing anything received from the outside.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity returns the no-rotation quaternion.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// Normalize returns the unit quaternion with the same axis and angle.
// The zero quaternion normalizes to identity rather than NaN.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Identity()
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Matrix converts the quaternion to a 3x3 rotation matrix. The receiver
// must be a unit quaternion.
func (q Quaternion) Matrix() Matrix3 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return Matrix3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// NearEquiv reports whether q and o describe the same rotation within
// eps, treating q and -q as equivalent.
func (q Quaternion) NearEquiv(o Quaternion, eps float64) bool {
	same := math.Abs(q.W-o.W) <= eps && math.Abs(q.X-o.X) <= eps &&
		math.Abs(q.Y-o.Y) <= eps && math.Abs(q.Z-o.Z) <= eps
	flipped := math.Abs(q.W+o.W) <= eps && math.Abs(q.X+o.X) <= eps &&
		math.Abs(q.Y+o.Y) <= eps && math.Abs(q.Z+o.Z) <= eps
	return same || flipped
}

// AxisAngle builds a quaternion rotating by angle radians around axis.
func AxisAngle(axis Vector3, angle float64) Quaternion {
	n := axis.Length()
	if n == 0 {
		return Identity()
	}
	s := math.Sin(angle/2) / n
	return Quaternion{
		W: math.Cos(angle / 2),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// Matrix3 is a row-major 3x3 rotation matrix.
type Matrix3 [3][3]float64

// MulVec applies the rotation to v.
func (m Matrix3) MulVec(v Vector3) Vector3 {
	return Vector3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}
