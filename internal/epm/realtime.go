package epm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// Realtime science slice layout. Each 802-byte DATA_RT_SCIENCE packet
// carries a 758-byte payload: an 8-byte acquisition preamble followed by 10
// fixed 75-byte slices. Within a slice:
//
//	offset  width  field
//	     0      4  pose tick counter (1 ms)
//	     4      6  position, 3 x i16, 0.1 mm units
//	    10     16  orientation quaternion, 4 x f32 (x, y, z, m)
//	    26      8  marker visibility masks, 2 x u32 (one per coda)
//	    34      1  manipulandum visibility flags
//	    35      1  spare
//	    36      4  analog tick counter (1 ms)
//	    40     24  2 x force/torque: force 3 x i16 (0.01 N),
//	               torque 3 x i16 (0.001 N.m)
//	    64      6  acceleration, 3 x i16 (0.001 g)
//	    70      5  spare
const (
	RTSliceBytes       = 75
	rtPreambleBytes    = 8
	rtPayloadBytes     = rtPreambleBytes + RTSlicesPerPacket*RTSliceBytes // 758
	// PositionUnitsPerMM converts wire position units (0.1 mm) to mm.
	PositionUnitsPerMM = 10.0
	forceUnitsPerN     = 100.0
	torqueUnitsPerNm   = 1000.0
	accelUnitsPerG     = 1000.0
)

// ForceTorque holds one force sensor's 3D force (N) and torque (N.m)
// readings in the common manipulandum reference frame.
type ForceTorque struct {
	Force  vecmath.Vector3
	Torque vecmath.Vector3
}

// RealtimeSlice is one of the 10 time sub-samples packed into a realtime
// science packet. Position is kept in the wire's 0.1 mm fixed-point units;
// orientation is only meaningful when the manipulandum visibility flag is
// set.
type RealtimeSlice struct {
	PoseTick         uint32
	Position         vecmath.Vector3 // 0.1 mm units
	Orientation      vecmath.Quaternion
	MarkerVisibility [2]uint32 // bit = marker index, one mask per coda
	Visibility       uint8     // bit 0: manipulandum visible
	AnalogTick       uint32
	FT               [2]ForceTorque
	Acceleration     vecmath.Vector3 // g

	// Each slice occurs at its own instant but no per-slice timestamp is
	// transmitted; these best guesses are reconstructed from the packet
	// time and the tick counters on decode.
	BestGuessPoseTime   float64
	BestGuessAnalogTime float64
}

// ManipulandumVisible reports whether the pose fields of the slice carry
// meaningful data.
func (s *RealtimeSlice) ManipulandumVisible() bool { return s.Visibility&0x01 != 0 }

// RealtimeData is a decoded DATA_RT_SCIENCE packet.
type RealtimeData struct {
	Header          TelemetryHeader
	PacketTimestamp float64 // header time in seconds
	AcquisitionID   uint32
	RTPacketCount   uint32
	Slices          [RTSlicesPerPacket]RealtimeSlice
}

// DecodeRealtimeData decodes a complete realtime science packet. The
// transfer-frame and telemetry sync markers are validated, the TMIdentifier
// must be TMRealtimeScience, and the buffer must hold the full declared
// packet length; otherwise no data is returned.
func DecodeRealtimeData(buf []byte) (*RealtimeData, error) {
	h, err := DecodeTelemetryHeader(buf)
	if err != nil {
		return nil, err
	}
	if h.TMIdentifier != TMRealtimeScience {
		return nil, fmt.Errorf("%w: 0x%04X, want 0x%04X (realtime science)",
			ErrUnexpectedTM, uint16(h.TMIdentifier), uint16(TMRealtimeScience))
	}
	if len(buf) < RTPacketBytes {
		return nil, fmt.Errorf("%w: realtime packet needs %d bytes, have %d",
			ErrTruncated, RTPacketBytes, len(buf))
	}

	rt := &RealtimeData{
		Header:          h,
		PacketTimestamp: h.Seconds(),
	}
	payload := buf[payloadOffset : payloadOffset+rtPayloadBytes]
	rt.AcquisitionID = binary.BigEndian.Uint32(payload[0:4])
	rt.RTPacketCount = binary.BigEndian.Uint32(payload[4:8])

	for i := 0; i < RTSlicesPerPacket; i++ {
		decodeSlice(&rt.Slices[i], payload[rtPreambleBytes+i*RTSliceBytes:])
	}
	rt.assignBestGuessTimestamps()
	return rt, nil
}

func decodeSlice(s *RealtimeSlice, b []byte) {
	s.PoseTick = binary.BigEndian.Uint32(b[0:4])
	for i := 0; i < 3; i++ {
		s.Position[i] = float64(int16(binary.BigEndian.Uint16(b[4+2*i:])))
	}
	for i := 0; i < 4; i++ {
		s.Orientation[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b[10+4*i:])))
	}
	s.MarkerVisibility[0] = binary.BigEndian.Uint32(b[26:30])
	s.MarkerVisibility[1] = binary.BigEndian.Uint32(b[30:34])
	s.Visibility = b[34]
	s.AnalogTick = binary.BigEndian.Uint32(b[36:40])
	for ati := 0; ati < 2; ati++ {
		off := 40 + ati*12
		for i := 0; i < 3; i++ {
			s.FT[ati].Force[i] = float64(int16(binary.BigEndian.Uint16(b[off+2*i:]))) / forceUnitsPerN
		}
		for i := 0; i < 3; i++ {
			s.FT[ati].Torque[i] = float64(int16(binary.BigEndian.Uint16(b[off+6+2*i:]))) / torqueUnitsPerNm
		}
	}
	for i := 0; i < 3; i++ {
		s.Acceleration[i] = float64(int16(binary.BigEndian.Uint16(b[64+2*i:]))) / accelUnitsPerG
	}
}

// assignBestGuessTimestamps back-dates each slice from the packet time.
// The last slice is taken to coincide with the header timestamp; earlier
// slices are offset by the tick counter deltas when the counters are
// running, or by the nominal slice period when they read zero.
func (rt *RealtimeData) assignBestGuessTimestamps() {
	last := &rt.Slices[RTSlicesPerPacket-1]
	for i := range rt.Slices {
		s := &rt.Slices[i]
		if last.PoseTick != 0 && s.PoseTick != 0 {
			s.BestGuessPoseTime = rt.PacketTimestamp -
				float64(last.PoseTick-s.PoseTick)*RTSecondsPerTick
		} else {
			s.BestGuessPoseTime = rt.PacketTimestamp -
				float64(RTSlicesPerPacket-1-i)*RTDefaultSecondsPerSlice
		}
		if last.AnalogTick != 0 && s.AnalogTick != 0 {
			s.BestGuessAnalogTime = rt.PacketTimestamp -
				float64(last.AnalogTick-s.AnalogTick)*RTSecondsPerTick
		} else {
			s.BestGuessAnalogTime = rt.PacketTimestamp -
				float64(RTSlicesPerPacket-1-i)*RTDefaultSecondsPerSlice
		}
	}
}

// EncodeRealtimePacket writes a complete 802-byte realtime science packet
// into buf: transfer-frame header, telemetry header, payload and trailing
// checksum. The header's sync marker, TMIdentifier and word count are
// forced to the realtime science values.
func EncodeRealtimePacket(buf []byte, h TelemetryHeader, rt *RealtimeData) error {
	if len(buf) < RTPacketBytes {
		return fmt.Errorf("%w: realtime packet needs %d bytes, have %d",
			ErrTruncated, RTPacketBytes, len(buf))
	}

	tf := TransferFrameHeader{
		SyncMarker:     TransferFrameSyncValue,
		SoftwareUnitID: SoftwareUnitID,
		PacketType:     PacketTypeTelemetry,
		NumberOfWords:  RTPacketBytes / 2,
	}
	if err := EncodeTransferFrameHeader(buf, tf); err != nil {
		return err
	}
	h.SyncMarker = TelemetrySyncValue
	h.TMIdentifier = TMRealtimeScience
	h.NumberOfWords = RTPacketBytes / 2
	if err := EncodeTelemetryHeader(buf, h); err != nil {
		return err
	}

	payload := buf[payloadOffset : payloadOffset+rtPayloadBytes]
	binary.BigEndian.PutUint32(payload[0:4], rt.AcquisitionID)
	binary.BigEndian.PutUint32(payload[4:8], rt.RTPacketCount)
	for i := 0; i < RTSlicesPerPacket; i++ {
		encodeSlice(payload[rtPreambleBytes+i*RTSliceBytes:], &rt.Slices[i])
	}
	writeChecksum(buf, RTPacketBytes)
	return nil
}

func encodeSlice(b []byte, s *RealtimeSlice) {
	binary.BigEndian.PutUint32(b[0:4], s.PoseTick)
	for i := 0; i < 3; i++ {
		binary.BigEndian.PutUint16(b[4+2*i:], uint16(int16(math.Round(s.Position[i]))))
	}
	for i := 0; i < 4; i++ {
		binary.BigEndian.PutUint32(b[10+4*i:], math.Float32bits(float32(s.Orientation[i])))
	}
	binary.BigEndian.PutUint32(b[26:30], s.MarkerVisibility[0])
	binary.BigEndian.PutUint32(b[30:34], s.MarkerVisibility[1])
	b[34] = s.Visibility
	b[35] = 0
	binary.BigEndian.PutUint32(b[36:40], s.AnalogTick)
	for ati := 0; ati < 2; ati++ {
		off := 40 + ati*12
		for i := 0; i < 3; i++ {
			binary.BigEndian.PutUint16(b[off+2*i:], uint16(int16(math.Round(s.FT[ati].Force[i]*forceUnitsPerN))))
		}
		for i := 0; i < 3; i++ {
			binary.BigEndian.PutUint16(b[off+6+2*i:], uint16(int16(math.Round(s.FT[ati].Torque[i]*torqueUnitsPerNm))))
		}
	}
	for i := 0; i < 3; i++ {
		binary.BigEndian.PutUint16(b[64+2*i:], uint16(int16(math.Round(s.Acceleration[i]*accelUnitsPerG))))
	}
	for i := 70; i < RTSliceBytes; i++ {
		b[i] = 0
	}
}
