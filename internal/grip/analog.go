package grip

import (
	"math"

	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// DefaultFilterConstant is the starting smoothing constant. Zero disables
// smoothing; larger values smooth more heavily.
const DefaultFilterConstant = 100.0

// DefaultCoPThreshold is the minimum normal force (N) below which the
// center of pressure cannot be computed reliably.
const DefaultCoPThreshold = 0.5

// AnalogProcessor derives grip and load force metrics and applies a
// recursive low-pass filter to each quantity. Every quantity keeps its own
// filter state but they all share one filter constant. The state belongs to
// a single reconstruction session and is not safe for concurrent use.
type AnalogProcessor struct {
	FilterConstant float64
	CoPThreshold   float64

	filteredPosition     vecmath.Vector3
	filteredRotations    vecmath.Vector3
	filteredGripForce    float64
	filteredLoadForce    vecmath.Vector3
	filteredNormalForce  [2]float64
	filteredCoP          [2]vecmath.Vector3
	filteredAcceleration vecmath.Vector3
}

// NewAnalogProcessor returns a processor with zeroed filter state.
func NewAnalogProcessor(filterConstant, copThreshold float64) *AnalogProcessor {
	return &AnalogProcessor{
		FilterConstant: filterConstant,
		CoPThreshold:   copThreshold,
	}
}

// ComputeGripForce is the compressive force between the two sensor faces.
// The sensors face each other, so their X readings have opposite sign.
func ComputeGripForce(force1, force2 vecmath.Vector3) float64 {
	return (force2[vecmath.X] - force1[vecmath.X]) / 2.0
}

// ComputeLoadForce sums the two sensor forces and returns the magnitude.
func ComputeLoadForce(force1, force2 vecmath.Vector3) (vecmath.Vector3, float64) {
	load := vecmath.Add(force1, force2)
	return load, vecmath.Norm(load)
}

// ComputePlanarLoadForce is the load force with the grip axis component
// removed, leaving only the tangential load the fingers must resist.
func ComputePlanarLoadForce(force1, force2 vecmath.Vector3) (vecmath.Vector3, float64) {
	load, _ := ComputeLoadForce(force1, force2)
	load[vecmath.X] = 0.0
	return load, vecmath.Norm(load)
}

// ComputeCoP locates the center of pressure on a sensor face from its force
// and torque. When the normal force does not exceed threshold (strictly)
// the estimate is unreliable: all components are set to the missing value
// and the returned distance is -1. Otherwise the distance of the CoP from
// the sensor center is returned as the validity signal; callers must never
// average a missing CoP into a running estimate.
func ComputeCoP(force, torque vecmath.Vector3, threshold float64) (vecmath.Vector3, float64) {
	var cop vecmath.Vector3
	if math.Abs(force[vecmath.X]) > threshold {
		cop[vecmath.X] = 0.0
		cop[vecmath.Y] = -torque[vecmath.Z] / force[vecmath.X]
		cop[vecmath.Z] = -torque[vecmath.Y] / force[vecmath.X]
		return cop, math.Sqrt(cop[vecmath.Y]*cop[vecmath.Y] + cop[vecmath.Z]*cop[vecmath.Z])
	}
	cop[vecmath.X] = MissingDouble
	cop[vecmath.Y] = MissingDouble
	cop[vecmath.Z] = MissingDouble
	return cop, -1.0
}

// filterScalar advances one recursive filter state toward value.
func (p *AnalogProcessor) filterScalar(state *float64, value float64) float64 {
	*state = (*state*p.FilterConstant + value) / (1.0 + p.FilterConstant)
	return *state
}

// filterVector advances one vector filter state toward value.
func (p *AnalogProcessor) filterVector(state *vecmath.Vector3, value vecmath.Vector3) vecmath.Vector3 {
	for i := range state {
		state[i] = (state[i]*p.FilterConstant + value[i]) / (1.0 + p.FilterConstant)
	}
	return *state
}

// FilterPosition smooths the manipulandum position.
func (p *AnalogProcessor) FilterPosition(position vecmath.Vector3) vecmath.Vector3 {
	return p.filterVector(&p.filteredPosition, position)
}

// FilterRotations smooths the canonical rotation angles. Callers must skip
// non-finite inputs so the state is never dragged through a missing-data
// placeholder.
func (p *AnalogProcessor) FilterRotations(rotations vecmath.Vector3) vecmath.Vector3 {
	return p.filterVector(&p.filteredRotations, rotations)
}

// FilterGripForce smooths the scalar grip force.
func (p *AnalogProcessor) FilterGripForce(gripForce float64) float64 {
	return p.filterScalar(&p.filteredGripForce, gripForce)
}

// FilterLoadForce smooths the load force vector and returns its magnitude.
func (p *AnalogProcessor) FilterLoadForce(loadForce vecmath.Vector3) (vecmath.Vector3, float64) {
	v := p.filterVector(&p.filteredLoadForce, loadForce)
	return v, vecmath.Norm(v)
}

// FilterNormalForce smooths one sensor's normal force.
func (p *AnalogProcessor) FilterNormalForce(force float64, sensor int) float64 {
	return p.filterScalar(&p.filteredNormalForce[sensor], force)
}

// FilterCoP smooths one sensor's center of pressure.
func (p *AnalogProcessor) FilterCoP(cop vecmath.Vector3, sensor int) vecmath.Vector3 {
	return p.filterVector(&p.filteredCoP[sensor], cop)
}

// FilterAcceleration smooths the acceleration vector.
func (p *AnalogProcessor) FilterAcceleration(acceleration vecmath.Vector3) vecmath.Vector3 {
	return p.filterVector(&p.filteredAcceleration, acceleration)
}
