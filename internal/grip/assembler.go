package grip

import (
	"math"

	"github.com/psyphy-data/gripmmi/internal/epm"
	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

const (
	// GapThresholdSeconds is the inter-packet delta above which the stream
	// is considered broken.
	GapThresholdSeconds = 1.0
	// GapInsertSamples is how many all-missing samples are inserted at a
	// stream break so the discontinuity survives into the fixed-rate
	// output sequence.
	GapInsertSamples = 10

	// DefaultMaxSamples is 12 hours at 20 samples per second.
	DefaultMaxSamples = 12 * 60 * 60 * 20
)

// Assembler turns a time-ordered stream of realtime science packets into a
// flat, append-only sequence of reconstructed samples. It owns the filter
// state and the stream cursor for one session; it is not safe for
// concurrent use.
type Assembler struct {
	proc     *AnalogProcessor
	samples  []Sample
	capacity int

	// previousPacketTimestamp starts at 0 so the first packet is treated
	// as following a long gap.
	previousPacketTimestamp float64
	lastTMCounter           uint16
	seenPacket              bool
	full                    bool
}

// NewAssembler returns an assembler bounded to capacity samples, using proc
// for all derived-quantity filtering.
func NewAssembler(capacity int, proc *AnalogProcessor) *Assembler {
	return &Assembler{
		proc:     proc,
		samples:  make([]Sample, 0, capacity),
		capacity: capacity,
	}
}

// Samples returns the reconstructed sequence so far. The returned slice
// aliases the assembler's buffer; emitted samples are never mutated.
func (a *Assembler) Samples() []Sample { return a.samples }

// Len returns the number of samples emitted so far.
func (a *Assembler) Len() int { return len(a.samples) }

// Full reports whether the sample buffer has reached capacity. Once full,
// packets are still accepted for new-data detection but emit nothing;
// callers should surface this distinctly from "no new data".
func (a *Assembler) Full() bool { return a.full }

// Ingest processes one decoded realtime packet. It returns the number of
// samples appended, counting any inserted gap markers, and whether the
// packet carried new data. A packet whose TMCounter repeats the previous
// one is a retransmission: newData is false and nothing is appended. A
// fresh packet that appends nothing because the buffer is full still
// reports newData true; Full distinguishes the two conditions.
func (a *Assembler) Ingest(rt *epm.RealtimeData) (appended int, newData bool) {
	if a.seenPacket && rt.Header.TMCounter == a.lastTMCounter {
		return 0, false
	}
	a.lastTMCounter = rt.Header.TMCounter
	a.seenPacket = true

	if rt.PacketTimestamp-a.previousPacketTimestamp > GapThresholdSeconds {
		for i := 0; i < GapInsertSamples && a.append(missingSample()); i++ {
			appended++
		}
	}
	a.previousPacketTimestamp = rt.PacketTimestamp

	for i := range rt.Slices {
		if a.full {
			break
		}
		if a.append(a.reconstruct(&rt.Slices[i])) {
			appended++
		}
	}
	return appended, true
}

// append adds one sample unless the buffer is at capacity, latching the
// full condition on the first refusal.
func (a *Assembler) append(s Sample) bool {
	if len(a.samples) >= a.capacity {
		a.full = true
		return false
	}
	a.samples = append(a.samples, s)
	return true
}

// reconstruct derives one output sample from a realtime slice.
func (a *Assembler) reconstruct(slice *epm.RealtimeSlice) Sample {
	s := missingSample()
	s.Time = slice.BestGuessAnalogTime
	s.PacketReceived = PacketReceivedCode

	f0 := slice.FT[0]
	f1 := slice.FT[1]
	s.GripForce = a.proc.FilterGripForce(ComputeGripForce(f0.Force, f1.Force))
	load, _ := ComputeLoadForce(f0.Force, f1.Force)
	s.LoadForce, s.LoadForceMagnitude = a.proc.FilterLoadForce(load)

	// The sensors face each other along X, so sensor 0 reads compression
	// as negative.
	s.NormalForce[0] = a.proc.FilterNormalForce(-f0.Force[vecmath.X], 0)
	s.NormalForce[1] = a.proc.FilterNormalForce(f1.Force[vecmath.X], 1)

	for i := 0; i < 2; i++ {
		cop, distance := ComputeCoP(slice.FT[i].Force, slice.FT[i].Torque, a.proc.CoPThreshold)
		if distance >= 0 {
			s.CoP[i] = a.proc.FilterCoP(cop, i)
		}
	}

	s.Acceleration = a.proc.FilterAcceleration(slice.Acceleration)

	if slice.ManipulandumVisible() {
		s.Position = a.proc.FilterPosition(
			vecmath.Scale(slice.Position, 1.0/epm.PositionUnitsPerMM))
		rotations := vecmath.CanonicalRotations(slice.Orientation)
		if isFinite(rotations) {
			s.Rotations = a.proc.FilterRotations(rotations)
		}
	}

	a.assignVisibility(&s, slice)
	return s
}

// assignVisibility translates the coda visibility masks into staggered
// per-marker plot codes and the three group codes.
func (a *Assembler) assignVisibility(s *Sample, slice *epm.RealtimeSlice) {
	mask := slice.MarkerVisibility[0] | slice.MarkerVisibility[1]

	frameCount := 0
	wristCount := 0
	for mrk := 0; mrk < TotalMarkers; mrk++ {
		if mask&(1<<mrk) == 0 {
			continue
		}
		switch {
		case mrk < frameFirstMarker:
			s.MarkerVisibility[mrk] = float64(mrk + 1)
		case mrk < wristFirstMarker:
			s.MarkerVisibility[mrk] = float64(mrk + 3)
			frameCount++
		default:
			s.MarkerVisibility[mrk] = float64(mrk + 5)
			wristCount++
		}
	}

	if slice.ManipulandumVisible() {
		s.ManipulandumVisibility = ManipulandumVisibleCode
	}
	if frameCount == FrameMarkers {
		s.FrameVisibility = FrameVisibleCode
	}
	if wristCount >= 3 {
		s.WristVisibility = WristVisibleCode
	}
}

func isFinite(v vecmath.Vector3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
