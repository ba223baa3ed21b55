package grip

import (
	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// PoseSentinel fills the pose outputs when estimation fails. Distinct from
// MissingDouble so a failed pose is recognisable in traces.
const PoseSentinel = -999.999

// ComputeRigidBodyPose estimates the rigid transform that carries a model
// marker set onto the observed set. Both sets must be the same length with
// matching marker order. Branch selection by marker count:
//
//   - fewer than 3 markers with no default orientation: estimation fails
//     and the outputs are filled with PoseSentinel;
//   - fewer than 3 markers with a default orientation: the default is
//     adopted and only the translation is estimated;
//   - exactly 3 markers: an orthonormal local frame is built from each
//     triplet and the rotation between the two frames is exact;
//   - more than 3 markers: best-fit rotation over the centroid-relative
//     deltas. A synthetic marker along the normal of the first two deltas
//     is appended to both sets first, because the physical markers sit on
//     a nearly planar surface and the unmodified fit is ill-conditioned.
//
// In every successful branch the translation is the mean of the per-marker
// offsets between the observed markers and the rotated model markers.
//
// Marker configurations must be non-degenerate: collinear triplets, or
// delta sets whose covariance is singular, produce non-finite results
// without an error. Callers must not use the outputs when ok is false.
func ComputeRigidBodyPose(model, observed []vecmath.Vector3, defaultOrientation *vecmath.Quaternion) (position vecmath.Vector3, orientation vecmath.Quaternion, ok bool) {
	n := len(model)
	if len(observed) < n {
		n = len(observed)
	}
	if n > MaxRigidBodyMarkers {
		n = MaxRigidBodyMarkers
	}

	switch {
	case n < 3:
		if defaultOrientation == nil {
			for i := range position {
				position[i] = PoseSentinel
			}
			for i := range orientation {
				orientation[i] = PoseSentinel
			}
			return position, orientation, false
		}
		orientation = *defaultOrientation

	case n == 3:
		modelFrame := tripletFrame(model)
		observedFrame := tripletFrame(observed)
		inverse, _ := vecmath.Invert(modelFrame)
		orientation = vecmath.MatrixToQuaternion(vecmath.MulMatrices(inverse, observedFrame))

	default:
		orientation = overdeterminedRotation(model[:n], observed[:n])
	}

	// Translation: average the per-marker offsets between the observed
	// markers and the rotated model markers.
	sum := vecmath.ZeroVector
	for i := 0; i < n; i++ {
		rotated := vecmath.RotateVector(orientation, model[i])
		sum = vecmath.Add(sum, vecmath.Sub(observed[i], rotated))
	}
	position = vecmath.Scale(sum, 1.0/float64(n))
	return position, orientation, true
}

// tripletFrame builds an orthonormal frame from three markers: the first
// edge defines local X, the second edge fixes the XY plane, and the cross
// products derive Z and then Y.
func tripletFrame(markers []vecmath.Vector3) vecmath.Matrix3x3 {
	x := vecmath.Normalize(vecmath.Sub(markers[1], markers[0]))
	inPlane := vecmath.Sub(markers[2], markers[0])
	z := vecmath.Normalize(vecmath.Cross(x, inPlane))
	y := vecmath.Cross(z, x)

	var frame vecmath.Matrix3x3
	frame[vecmath.X] = x
	frame[vecmath.Y] = y
	frame[vecmath.Z] = z
	return frame
}

// overdeterminedRotation fits a rotation to more than three marker pairs.
func overdeterminedRotation(model, observed []vecmath.Vector3) vecmath.Quaternion {
	n := len(model)

	modelCentroid := vecmath.ZeroVector
	observedCentroid := vecmath.ZeroVector
	for i := 0; i < n; i++ {
		modelCentroid = vecmath.Add(modelCentroid, model[i])
		observedCentroid = vecmath.Add(observedCentroid, observed[i])
	}
	modelCentroid = vecmath.Scale(modelCentroid, 1.0/float64(n))
	observedCentroid = vecmath.Scale(observedCentroid, 1.0/float64(n))

	modelDelta := make([]vecmath.Vector3, n+1)
	observedDelta := make([]vecmath.Vector3, n+1)
	for i := 0; i < n; i++ {
		modelDelta[i] = vecmath.Sub(model[i], modelCentroid)
		observedDelta[i] = vecmath.Sub(observed[i], observedCentroid)
	}

	// Synthetic off-plane marker appended to both sets, its magnitude
	// matched to the first model delta so it does not dominate the fit.
	scale := vecmath.Norm(modelDelta[0])
	modelDelta[n] = vecmath.Scale(
		vecmath.Normalize(vecmath.Cross(modelDelta[0], modelDelta[1])), scale)
	observedDelta[n] = vecmath.Scale(
		vecmath.Normalize(vecmath.Cross(observedDelta[0], observedDelta[1])), scale)

	best := vecmath.BestFitTransformation(modelDelta, observedDelta, n+1)
	return vecmath.MatrixToQuaternion(best)
}
