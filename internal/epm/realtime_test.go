package epm

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/psyphy-data/gripmmi/internal/vecmath"
)

// makeRealtimeData fills a packet with values exactly representable in the
// fixed-point wire fields so a round trip reproduces them bit for bit.
func makeRealtimeData() *RealtimeData {
	rt := &RealtimeData{
		AcquisitionID: 7,
		RTPacketCount: 4100,
	}
	for i := range rt.Slices {
		s := &rt.Slices[i]
		s.PoseTick = uint32(200000 + 50*i)
		s.AnalogTick = uint32(200000 + 50*i)
		s.Position = vecmath.Vector3{float64(100 * i), -250, 1375}
		s.Orientation = vecmath.Quaternion{0, 0, 0.5, 0.5}
		s.MarkerVisibility = [2]uint32{0x000000FF, 0x000FF000}
		s.Visibility = 0x01
		s.FT[0] = ForceTorque{
			Force:  vecmath.Vector3{-1.25, 0.50, 0.75},
			Torque: vecmath.Vector3{0.005, -0.012, 0.031},
		}
		s.FT[1] = ForceTorque{
			Force:  vecmath.Vector3{1.25, 0.25, -0.50},
			Torque: vecmath.Vector3{-0.002, 0.008, -0.016},
		}
		s.Acceleration = vecmath.Vector3{0.002, -0.015, 1.001}
	}
	return rt
}

func TestRealtimeRoundTrip(t *testing.T) {
	in := makeRealtimeData()
	h := RealtimeHeader(99, 715000000, 5000)

	buf := make([]byte, RTPacketBytes)
	if err := EncodeRealtimePacket(buf, h, in); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeRealtimeData(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.Header.TMCounter != 99 || out.Header.TMIdentifier != TMRealtimeScience {
		t.Errorf("header: %+v", out.Header)
	}
	if got, want := out.PacketTimestamp, 715000000.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("packet timestamp = %f, want %f", got, want)
	}
	if out.AcquisitionID != in.AcquisitionID || out.RTPacketCount != in.RTPacketCount {
		t.Errorf("preamble: id=%d count=%d", out.AcquisitionID, out.RTPacketCount)
	}

	ignoreGuesses := cmpopts.IgnoreFields(RealtimeSlice{},
		"BestGuessPoseTime", "BestGuessAnalogTime")
	if diff := cmp.Diff(in.Slices, out.Slices, ignoreGuesses); diff != "" {
		t.Errorf("slice mismatch (-want +got):\n%s", diff)
	}
}

func TestRealtimeChecksumWritten(t *testing.T) {
	buf := make([]byte, RTPacketBytes)
	if err := EncodeRealtimePacket(buf, RealtimeHeader(1, 1000, 0), makeRealtimeData()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var sum uint16
	for _, b := range buf[:RTPacketBytes-ChecksumLength] {
		sum += uint16(b)
	}
	got := uint16(buf[RTPacketBytes-2])<<8 | uint16(buf[RTPacketBytes-1])
	if got != sum {
		t.Errorf("trailing checksum = 0x%04X, want 0x%04X", got, sum)
	}
}

func TestRealtimeBestGuessTimesFromTicks(t *testing.T) {
	buf := make([]byte, RTPacketBytes)
	if err := EncodeRealtimePacket(buf, RealtimeHeader(1, 1000, 0), makeRealtimeData()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	rt, err := DecodeRealtimeData(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Ticks advance 50 per slice at 1 ms per tick, so consecutive slices are
	// 50 ms apart and the last one matches the packet time.
	last := rt.Slices[RTSlicesPerPacket-1]
	if math.Abs(last.BestGuessPoseTime-rt.PacketTimestamp) > 1e-9 {
		t.Errorf("last slice pose time = %f, want %f", last.BestGuessPoseTime, rt.PacketTimestamp)
	}
	for i := 1; i < RTSlicesPerPacket; i++ {
		dt := rt.Slices[i].BestGuessPoseTime - rt.Slices[i-1].BestGuessPoseTime
		if math.Abs(dt-0.050) > 1e-9 {
			t.Errorf("slice %d pose time step = %f, want 0.050", i, dt)
		}
		dt = rt.Slices[i].BestGuessAnalogTime - rt.Slices[i-1].BestGuessAnalogTime
		if math.Abs(dt-0.050) > 1e-9 {
			t.Errorf("slice %d analog time step = %f, want 0.050", i, dt)
		}
	}
}

func TestRealtimeBestGuessTimesZeroTicks(t *testing.T) {
	in := makeRealtimeData()
	for i := range in.Slices {
		in.Slices[i].PoseTick = 0
		in.Slices[i].AnalogTick = 0
	}
	buf := make([]byte, RTPacketBytes)
	if err := EncodeRealtimePacket(buf, RealtimeHeader(1, 2000, 0), in); err != nil {
		t.Fatalf("encode: %v", err)
	}
	rt, err := DecodeRealtimeData(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// With the counters stopped each slice falls back to the nominal period.
	for i := range rt.Slices {
		want := rt.PacketTimestamp - float64(RTSlicesPerPacket-1-i)*RTDefaultSecondsPerSlice
		if math.Abs(rt.Slices[i].BestGuessPoseTime-want) > 1e-9 {
			t.Errorf("slice %d pose time = %f, want %f", i, rt.Slices[i].BestGuessPoseTime, want)
		}
	}
}

func TestRealtimeRejectsHousekeeping(t *testing.T) {
	buf := make([]byte, RTPacketBytes)
	if err := EncodeRealtimePacket(buf, RealtimeHeader(1, 1000, 0), makeRealtimeData()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Rewrite the TMIdentifier to the housekeeping value in place.
	h, err := DecodeTelemetryHeader(buf)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	h.TMIdentifier = TMHousekeeping
	if err := EncodeTelemetryHeader(buf, h); err != nil {
		t.Fatalf("re-encode header: %v", err)
	}

	if _, err := DecodeRealtimeData(buf); !errors.Is(err, ErrUnexpectedTM) {
		t.Errorf("decode: err = %v, want ErrUnexpectedTM", err)
	}
}

func TestRealtimeTruncated(t *testing.T) {
	buf := make([]byte, RTPacketBytes)
	if err := EncodeRealtimePacket(buf, RealtimeHeader(1, 1000, 0), makeRealtimeData()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	rt, err := DecodeRealtimeData(buf[:RTPacketBytes-1])
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("decode short packet: err = %v, want ErrTruncated", err)
	}
	if rt != nil {
		t.Errorf("decode returned partial data alongside error")
	}
}

func TestManipulandumVisible(t *testing.T) {
	s := RealtimeSlice{Visibility: 0x01}
	if !s.ManipulandumVisible() {
		t.Error("bit 0 set: want visible")
	}
	s.Visibility = 0xFE
	if s.ManipulandumVisible() {
		t.Error("bit 0 clear: want not visible")
	}
}
