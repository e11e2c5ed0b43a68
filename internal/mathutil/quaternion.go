package mathutil

// Quat is a rotation quaternion stored (w, x, y, z). Animation files store
// keys as (x, y, z, w) on disk; the decoder reorders them on read.
type Quat [4]float64

// RotationMat4 converts the quaternion to a 4×4 rotation matrix. The
// quaternion is used exactly as stored, without normalization.
func (q Quat) RotationMat4() Mat4 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy), 0,
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx), 0,
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
