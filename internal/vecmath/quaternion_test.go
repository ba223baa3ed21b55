package vecmath

import (
	"math"
	"testing"
)

func quaternionsEquivalent(t *testing.T, got, want Quaternion, tol float64, what string) {
	t.Helper()
	// q and -q represent the same rotation.
	same, flipped := true, true
	for i := 0; i < 4; i++ {
		if math.Abs(got[i]-want[i]) > tol {
			same = false
		}
		if math.Abs(got[i]+want[i]) > tol {
			flipped = false
		}
	}
	if !same && !flipped {
		t.Errorf("%s = %v, want %v (up to sign)", what, got, want)
	}
}

func TestQuaternionMultiplyIdentity(t *testing.T) {
	q := QuaternionFromAxisAngleDegrees(37, Vector3{1, 2, 3})
	quaternionsEquivalent(t, MulQuaternions(q, NullQuaternion), q, 1e-12, "q * 1")
	quaternionsEquivalent(t, MulQuaternions(NullQuaternion, q), q, 1e-12, "1 * q")
}

func TestQuaternionMultiplyComposesRotations(t *testing.T) {
	// Two successive 45 degree rotations about Z equal one 90 degree rotation.
	q45 := QuaternionFromAxisAngleDegrees(45, KVector)
	q90 := QuaternionFromAxisAngleDegrees(90, KVector)
	quaternionsEquivalent(t, MulQuaternions(q45, q45), q90, 1e-12, "45+45 about Z")
}

func TestRotateVector(t *testing.T) {
	// 90 degrees about Z takes X to Y.
	q := QuaternionFromAxisAngleDegrees(90, KVector)
	vectorsAlmostEqual(t, RotateVector(q, IVector), JVector, 1e-12, "Rz(90) * i")

	// 180 degrees about X takes Y to -Y.
	q = QuaternionFromAxisAngleDegrees(180, IVector)
	vectorsAlmostEqual(t, RotateVector(q, JVector), Scale(JVector, -1), 1e-12, "Rx(180) * j")

	// Rotation preserves length.
	q = QuaternionFromAxisAngleDegrees(33, Vector3{1, 1, 0})
	v := Vector3{2, -3, 5}
	almostEqual(t, Norm(RotateVector(q, v)), Norm(v), 1e-12, "|Rv|")
}

func TestAxisAngleNormalizesAxis(t *testing.T) {
	// The axis does not have to be unit length.
	q1 := QuaternionFromAxisAngleDegrees(60, Vector3{0, 0, 10})
	q2 := QuaternionFromAxisAngleDegrees(60, KVector)
	quaternionsEquivalent(t, q1, q2, 1e-12, "axis scaling")
}

func TestNormalizeQuaternion(t *testing.T) {
	q := NormalizeQuaternion(Quaternion{1, 2, 3, 4})
	norm := math.Sqrt(q[X]*q[X] + q[Y]*q[Y] + q[Z]*q[Z] + q[M]*q[M])
	almostEqual(t, norm, 1.0, 1e-12, "unit norm")
}

// rotationMatrixFor builds the row-vector rotation matrix of q by rotating
// the basis vectors.
func rotationMatrixFor(q Quaternion) Matrix3x3 {
	// Row-vector convention: v * m rotates v, so row i holds the image of
	// basis vector i.
	var m Matrix3x3
	m[X] = RotateVector(q, IVector)
	m[Y] = RotateVector(q, JVector)
	m[Z] = RotateVector(q, KVector)
	return m
}

func TestMatrixToQuaternionAllBranches(t *testing.T) {
	cases := []struct {
		name string
		q    Quaternion
	}{
		// Small rotation: trace-positive branch.
		{"trace_positive", QuaternionFromAxisAngleDegrees(10, Vector3{1, 2, 3})},
		// 180 degree rotations drive the trace to -1 and force the
		// dominant-diagonal branches.
		{"x_dominant", QuaternionFromAxisAngleDegrees(180, IVector)},
		{"y_dominant", QuaternionFromAxisAngleDegrees(180, JVector)},
		{"z_dominant", QuaternionFromAxisAngleDegrees(180, KVector)},
		// Large rotations near 180 about skew axes.
		{"near_180_skew", QuaternionFromAxisAngleDegrees(179, Normalize(Vector3{1, 1, 0}))},
		{"large_rotation", QuaternionFromAxisAngleDegrees(150, Normalize(Vector3{-1, 2, 2}))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := rotationMatrixFor(tc.q)
			got := MatrixToQuaternion(m)
			quaternionsEquivalent(t, got, tc.q, 1e-9, "MatrixToQuaternion")
		})
	}
}

func TestMatrixToQuaternionRoundTripRotation(t *testing.T) {
	// Whatever sign the conversion picked, the recovered quaternion must
	// rotate vectors identically to the source quaternion.
	q := QuaternionFromAxisAngleDegrees(121, Normalize(Vector3{3, -1, 2}))
	recovered := MatrixToQuaternion(rotationMatrixFor(q))
	for _, v := range []Vector3{IVector, JVector, KVector, {1, 2, 3}} {
		vectorsAlmostEqual(t, RotateVector(recovered, v), RotateVector(q, v), 1e-9, "rotation equivalence")
	}
}

func TestAngleBetween(t *testing.T) {
	q1 := QuaternionFromAxisAngleDegrees(10, KVector)
	q2 := QuaternionFromAxisAngleDegrees(70, KVector)
	almostEqual(t, ToDegrees(AngleBetween(q2, q1)), 60, 1e-9, "AngleBetween")
	almostEqual(t, AngleBetween(q1, q1), 0, 1e-9, "AngleBetween(q,q)")
}

func TestCanonicalRotationsSingleAxis(t *testing.T) {
	// The canonical angles are a display quantity, not exact Euler angles;
	// for a small rotation about a single axis the canonical angle about
	// that axis approaches the rotation angle and the other two stay zero.
	for axis, v := range map[int]Vector3{X: IVector, Y: JVector, Z: KVector} {
		q := QuaternionFromAxisAngleDegrees(2, v)
		r := CanonicalRotations(q)
		almostEqual(t, ToDegrees(r[axis]), 2, 1e-3, "canonical angle")
		for i := 0; i < 3; i++ {
			if i == axis {
				continue
			}
			almostEqual(t, r[i], 0, 1e-9, "off-axis canonical angle")
		}
	}
}

func TestCanonicalRotationsNullOrientation(t *testing.T) {
	r := CanonicalRotations(NullQuaternion)
	vectorsAlmostEqual(t, r, ZeroVector, 0, "canonical rotations of identity")
}
