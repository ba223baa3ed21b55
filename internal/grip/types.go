// Package grip reconstructs time-ordered kinematic and force samples from
// decoded GRIP realtime science packets: grip and load forces, centers of
// pressure, manipulandum pose, and marker visibility traces, with recursive
// low-pass filtering applied per quantity.
package grip

import (
	"math"

	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// MissingDouble marks a value with no valid data. Plot layers treat it as a
// break in the trace.
const MissingDouble = 999999.999999

// Marker layout on the two coda visibility masks. Bits 0-7 are the
// manipulandum markers, 8-11 the reference frame, 12-19 the wrist.
const (
	ManipulandumMarkers     = 8
	FrameMarkers            = 4
	WristMarkers            = 8
	TotalMarkers            = ManipulandumMarkers + FrameMarkers + WristMarkers
	manipulandumFirstMarker = 0
	frameFirstMarker        = ManipulandumMarkers
	wristFirstMarker        = ManipulandumMarkers + FrameMarkers
)

// Visibility trace codes. Individual markers plot at staggered small values;
// the group codes plot well above them and the packet-received code below,
// so the traces stay separated on a shared axis.
const (
	ManipulandumVisibleCode = 10.0
	FrameVisibleCode        = 30.0
	WristVisibleCode        = 50.0
	PacketReceivedCode      = -10.0
)

// CodaUnits is the number of motion tracker units, each with its own
// visibility mask.
const CodaUnits = 2

// MaxRigidBodyMarkers bounds the marker sets accepted by
// ComputeRigidBodyPose.
const MaxRigidBodyMarkers = TotalMarkers

// Sample is one reconstructed time step, created from a realtime slice (or
// inserted as an all-missing gap marker) and never mutated afterwards.
type Sample struct {
	Time float64

	Position  vecmath.Vector3 // mm, filtered
	Rotations vecmath.Vector3 // canonical rotation angles, radians, filtered

	GripForce          float64
	LoadForce          vecmath.Vector3
	LoadForceMagnitude float64
	NormalForce        [2]float64
	CoP                [2]vecmath.Vector3 // m, in the sensor plane
	Acceleration       vecmath.Vector3    // g, filtered

	// Visibility traces. MarkerVisibility holds one staggered plot code per
	// marker, or MissingDouble when the marker is not seen by either coda.
	MarkerVisibility       [TotalMarkers]float64
	ManipulandumVisibility float64
	FrameVisibility        float64
	WristVisibility        float64
	PacketReceived         float64
}

// missingSample returns a Sample with every field set to the missing value.
func missingSample() Sample {
	s := Sample{
		Time:               MissingDouble,
		GripForce:          MissingDouble,
		LoadForceMagnitude: MissingDouble,
		NormalForce:        [2]float64{MissingDouble, MissingDouble},

		ManipulandumVisibility: MissingDouble,
		FrameVisibility:        MissingDouble,
		WristVisibility:        MissingDouble,
		PacketReceived:         MissingDouble,
	}
	for i := range s.Position {
		s.Position[i] = MissingDouble
		s.Rotations[i] = MissingDouble
		s.LoadForce[i] = MissingDouble
		s.Acceleration[i] = MissingDouble
		s.CoP[0][i] = MissingDouble
		s.CoP[1][i] = MissingDouble
	}
	for i := range s.MarkerVisibility {
		s.MarkerVisibility[i] = MissingDouble
	}
	return s
}

// IsMissing reports whether v is the missing-data sentinel.
func IsMissing(v float64) bool {
	return v == MissingDouble || math.IsNaN(v)
}
