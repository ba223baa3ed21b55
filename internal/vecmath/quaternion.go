package vecmath

import (
	"fmt"
	"math"
)

// Quaternion is a unit quaternion {x, y, z, m} with the scalar part last.
type Quaternion [4]float64

// NullQuaternion is the identity rotation.
var NullQuaternion = Quaternion{0, 0, 0, 1}

// NormalizeQuaternion returns q scaled to unit norm.
func NormalizeQuaternion(q Quaternion) Quaternion {
	norm := math.Sqrt(q[M]*q[M] + q[X]*q[X] + q[Y]*q[Y] + q[Z]*q[Z])
	return Quaternion{q[X] / norm, q[Y] / norm, q[Z] / norm, q[M] / norm}
}

// MulQuaternions returns the Hamilton product q1 * q2.
func MulQuaternions(q1, q2 Quaternion) Quaternion {
	return Quaternion{
		q1[M]*q2[X] + q1[X]*q2[M] + q1[Y]*q2[Z] - q1[Z]*q2[Y],
		q1[M]*q2[Y] - q1[X]*q2[Z] + q1[Y]*q2[M] + q1[Z]*q2[X],
		q1[M]*q2[Z] + q1[X]*q2[Y] - q1[Y]*q2[X] + q1[Z]*q2[M],
		q1[M]*q2[M] - q1[X]*q2[X] - q1[Y]*q2[Y] - q1[Z]*q2[Z],
	}
}

// Conjugate returns q with the imaginary parts negated.
func Conjugate(q Quaternion) Quaternion {
	return Quaternion{-q[X], -q[Y], -q[Z], q[M]}
}

// RotateVector rotates v by q using the sandwich product q v q*.
func RotateVector(q Quaternion, v Vector3) Vector3 {
	vq := Quaternion{v[X], v[Y], v[Z], 0}
	rq := MulQuaternions(MulQuaternions(q, vq), Conjugate(q))
	return Vector3{rq[X], rq[Y], rq[Z]}
}

// QuaternionFromAxisAngle builds the rotation of the given angle in radians
// around axis. The axis need not be unit length.
func QuaternionFromAxisAngle(radians float64, axis Vector3) Quaternion {
	s := math.Sin(0.5*radians) / Norm(axis)
	return Quaternion{axis[X] * s, axis[Y] * s, axis[Z] * s, math.Cos(0.5 * radians)}
}

// QuaternionFromAxisAngleDegrees is QuaternionFromAxisAngle with the angle
// in degrees.
func QuaternionFromAxisAngleDegrees(degrees float64, axis Vector3) Quaternion {
	return QuaternionFromAxisAngle(ToRadians(degrees), axis)
}

// MatrixToQuaternion converts a rotation matrix to a unit quaternion.
//
// The matrix is first orthonormalised, since best-fit rotations are not
// exactly orthogonal. The conversion selects one of four closed-form
// branches according to the largest diagonal term so that the square root
// argument stays well away from zero; each branch yields an equivalent unit
// quaternion up to sign.
//
// The formulas assume row vectors and right multiplication, so the
// off-diagonal differences are transposed with respect to the column-vector
// forms commonly published.
func MatrixToQuaternion(m Matrix3x3) Quaternion {
	ortho := Orthonormalize(m)

	var result Quaternion
	t := ortho[X][X] + ortho[Y][Y] + ortho[Z][Z]

	switch {
	case t > 0.0:
		r := math.Sqrt(1.0 + t)
		s := 0.5 / r
		result[M] = 0.5 * r
		result[X] = (ortho[Y][Z] - ortho[Z][Y]) * s
		result[Y] = (ortho[Z][X] - ortho[X][Z]) * s
		result[Z] = (ortho[X][Y] - ortho[Y][X]) * s
	case ortho[X][X] > ortho[Y][Y] && ortho[X][X] > ortho[Z][Z]:
		r := math.Sqrt(1.0 + ortho[X][X] - ortho[Y][Y] - ortho[Z][Z])
		s := 0.5 / r
		result[X] = 0.5 * r
		result[M] = (ortho[Y][Z] - ortho[Z][Y]) * s
		result[Y] = (ortho[Y][X] + ortho[X][Y]) * s
		result[Z] = (ortho[Z][X] + ortho[X][Z]) * s
	case ortho[Y][Y] > ortho[Z][Z]:
		r := math.Sqrt(1.0 + ortho[Y][Y] - ortho[X][X] - ortho[Z][Z])
		s := 0.5 / r
		result[Y] = 0.5 * r
		result[X] = (ortho[Y][X] + ortho[X][Y]) * s
		result[M] = (ortho[Z][X] - ortho[X][Z]) * s
		result[Z] = (ortho[Z][Y] + ortho[Y][Z]) * s
	default:
		r := math.Sqrt(1.0 + ortho[Z][Z] - ortho[X][X] - ortho[Y][Y])
		s := 0.5 / r
		result[Z] = 0.5 * r
		result[X] = (ortho[Z][X] + ortho[X][Z]) * s
		result[Y] = (ortho[Z][Y] + ortho[Y][Z]) * s
		result[M] = (ortho[X][Y] - ortho[Y][X]) * s
	}
	return result
}

// AngleBetween returns the magnitude of the rotation taking q2 to q1,
// in radians.
func AngleBetween(q1, q2 Quaternion) float64 {
	interim := MulQuaternions(q1, Conjugate(q2))
	imag := Vector3{interim[X], interim[Y], interim[Z]}
	return 2.0 * math.Atan2(Norm(imag), interim[M])
}

// CanonicalRotations computes a per-axis triple of rotation angles away from
// the null orientation. This is NOT a set of Euler angles and the three
// rotations cannot be concatenated to reconstruct the orientation; each is
// the first rotation of one of three Euler sequences, which makes an
// intuitive strip-chart representation of attitude.
func CanonicalRotations(q Quaternion) Vector3 {
	return Vector3{
		math.Atan2(2*(q[M]*q[X]+q[Y]*q[Z]), 1.0-(q[X]*q[X]+q[Y]*q[Y])),
		math.Atan2(2*(q[M]*q[Y]+q[X]*q[Z]), 1.0-(q[Y]*q[Y]+q[Z]*q[Z])),
		math.Atan2(2*(q[M]*q[Z]+q[X]*q[Y]), 1.0-(q[X]*q[X]+q[Z]*q[Z])),
	}
}

// String formats q for logs and status displays.
func (q Quaternion) String() string {
	return fmt.Sprintf("{%8.3fi + %8.3fj + %8.3fk + %8.3f}", q[X], q[Y], q[Z], q[M])
}
