// Package vecmath provides the 3D vector, 3x3 matrix and quaternion
// primitives used by the pose and force reconstruction pipeline.
//
// Conventions: vectors are row vectors and matrices are arrays of rows, so
// vector-by-matrix products are right multiplies. Quaternions store the
// imaginary parts first and the scalar part last (index M).
package vecmath

import (
	"fmt"
	"math"
)

// Component indices for Vector3 and Quaternion.
const (
	X = 0
	Y = 1
	Z = 2
	M = 3 // quaternion scalar part
)

// Vector3 is a 3-component double-precision vector.
type Vector3 [3]float64

// Matrix3x3 is a row-major 3x3 matrix. Matrix[i] is row i.
type Matrix3x3 [3][3]float64

var (
	// ZeroVector is the additive identity.
	ZeroVector = Vector3{0, 0, 0}
	// IVector, JVector and KVector are the unit basis vectors.
	IVector = Vector3{1, 0, 0}
	JVector = Vector3{0, 1, 0}
	KVector = Vector3{0, 0, 1}

	// IdentityMatrix is the multiplicative identity.
	IdentityMatrix = Matrix3x3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	// ZeroMatrix has all elements zero.
	ZeroMatrix = Matrix3x3{}
)

// ToDegrees converts radians to degrees.
func ToDegrees(radians float64) float64 { return radians * 180.0 / math.Pi }

// ToRadians converts degrees to radians.
func ToRadians(degrees float64) float64 { return degrees * math.Pi / 180.0 }

// Add returns a + b.
func Add(a, b Vector3) Vector3 {
	return Vector3{a[X] + b[X], a[Y] + b[Y], a[Z] + b[Z]}
}

// Sub returns a - b.
func Sub(a, b Vector3) Vector3 {
	return Vector3{a[X] - b[X], a[Y] - b[Y], a[Z] - b[Z]}
}

// Scale returns v scaled by s.
func Scale(v Vector3, s float64) Vector3 {
	return Vector3{v[X] * s, v[Y] * s, v[Z] * s}
}

// Dot returns the scalar product of a and b.
func Dot(a, b Vector3) float64 {
	return a[X]*b[X] + a[Y]*b[Y] + a[Z]*b[Z]
}

// Cross returns the vector product a x b.
func Cross(a, b Vector3) Vector3 {
	return Vector3{
		a[Y]*b[Z] - a[Z]*b[Y],
		a[Z]*b[X] - a[X]*b[Z],
		a[X]*b[Y] - a[Y]*b[X],
	}
}

// Norm returns the Euclidean length of v.
func Norm(v Vector3) float64 {
	return math.Sqrt(v[X]*v[X] + v[Y]*v[Y] + v[Z]*v[Z])
}

// Normalize returns v scaled to unit length. A zero vector produces
// non-finite components; callers must not pass degenerate input.
func Normalize(v Vector3) Vector3 {
	return Scale(v, 1.0/Norm(v))
}

// MulVector right-multiplies row vector v by m.
func MulVector(v Vector3, m Matrix3x3) Vector3 {
	var result Vector3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			result[i] += v[j] * m[j][i]
		}
	}
	return result
}

// MulMatrices returns left * right.
func MulMatrices(left, right Matrix3x3) Matrix3x3 {
	var result Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				result[i][j] += left[i][k] * right[k][j]
			}
		}
	}
	return result
}

// Transpose returns the transpose of m.
func Transpose(m Matrix3x3) Matrix3x3 {
	var result Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			result[j][i] = m[i][j]
		}
	}
	return result
}

// ScaleMatrix returns m with every element scaled by s.
func ScaleMatrix(m Matrix3x3, s float64) Matrix3x3 {
	var result Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			result[i][j] = s * m[i][j]
		}
	}
	return result
}

// Determinant returns the determinant of m by cofactor expansion.
func Determinant(m Matrix3x3) float64 {
	return m[0][0]*(m[2][2]*m[1][1]-m[2][1]*m[1][2]) -
		m[1][0]*(m[2][2]*m[0][1]-m[2][1]*m[0][2]) +
		m[2][0]*(m[1][2]*m[0][1]-m[1][1]*m[0][2])
}

// Invert returns the closed-form inverse of m and its determinant.
//
// Precondition: m must be non-degenerate. No singularity check is performed;
// a near-zero determinant yields Inf/NaN elements and it is the caller's
// responsibility to inspect the returned determinant before trusting the
// inverse.
func Invert(m Matrix3x3) (Matrix3x3, float64) {
	det := Determinant(m)

	var r Matrix3x3
	r[0][0] = m[2][2]*m[1][1] - m[2][1]*m[1][2]
	r[1][0] = m[2][0]*m[1][2] - m[2][2]*m[1][0]
	r[2][0] = m[2][1]*m[1][0] - m[2][0]*m[1][1]

	r[0][1] = m[2][1]*m[0][2] - m[2][2]*m[0][1]
	r[1][1] = m[2][2]*m[0][0] - m[2][0]*m[0][2]
	r[2][1] = m[2][0]*m[0][1] - m[2][1]*m[0][0]

	r[0][2] = m[1][2]*m[0][1] - m[1][1]*m[0][2]
	r[1][2] = m[1][0]*m[0][2] - m[1][2]*m[0][0]
	r[2][2] = m[1][1]*m[0][0] - m[1][0]*m[0][1]

	return ScaleMatrix(r, 1.0/det), det
}

// Orthonormalize forces the rows of m to be an orthonormal basis.
// Row X is kept as the X direction, row Y is assumed to lie in the XY plane,
// and Z then Y are re-derived by cross products. Needed because best-fit
// rotation matrices are not exactly orthogonal.
func Orthonormalize(m Matrix3x3) Matrix3x3 {
	var result Matrix3x3
	result[X] = m[X]
	result[Z] = Cross(m[X], m[Y])
	result[Y] = Cross(result[Z], m[X])

	result[X] = Normalize(result[X])
	result[Y] = Normalize(result[Y])
	result[Z] = Normalize(result[Z])
	return result
}

// CrossVectors computes transpose(left) * right over two matched lists of
// row vectors, normalised by the number of rows. The sums are accumulated
// before the division to guard against underflow.
func CrossVectors(left, right []Vector3, rows int) Matrix3x3 {
	var r Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < rows; k++ {
				sum += left[k][i] * right[k][j]
			}
			r[i][j] = sum / float64(rows)
		}
	}
	return r
}

// BestFitTransformation computes the least-squares linear map taking the
// input vector set onto the output set via a Moore-Penrose style solve:
// (inputᵗ input)⁻¹ (inputᵗ output). Subject to the Invert precondition.
func BestFitTransformation(input, output []Vector3, rows int) Matrix3x3 {
	right := CrossVectors(input, output, rows)
	left := CrossVectors(input, input, rows)
	leftInverse, _ := Invert(left)
	return MulMatrices(leftInverse, right)
}

// String formats v for logs and status displays.
func (v Vector3) String() string {
	return fmt.Sprintf("<%8.3f %8.3f %8.3f>", v[X], v[Y], v[Z])
}

// String formats m row by row.
func (m Matrix3x3) String() string {
	return fmt.Sprintf("[%8.3f %8.3f %8.3f | %8.3f %8.3f %8.3f | %8.3f %8.3f %8.3f ]",
		m[X][X], m[X][Y], m[X][Z], m[Y][X], m[Y][Y], m[Y][Z], m[Z][X], m[Z][Y], m[Z][Z])
}
