package epm

import (
	"errors"
	"math"
	"testing"
)

func encodeTestPacket(t *testing.T, h TelemetryHeader) []byte {
	t.Helper()
	buf := make([]byte, payloadOffset)
	tf := TransferFrameHeader{
		SyncMarker:     TransferFrameSyncValue,
		SoftwareUnitID: SoftwareUnitID,
		PacketType:     PacketTypeTelemetry,
		NumberOfWords:  payloadOffset / 2,
	}
	if err := EncodeTransferFrameHeader(buf, tf); err != nil {
		t.Fatalf("encode transfer frame: %v", err)
	}
	if err := EncodeTelemetryHeader(buf, h); err != nil {
		t.Fatalf("encode telemetry header: %v", err)
	}
	return buf
}

func TestTelemetryHeaderRoundTrip(t *testing.T) {
	in := TelemetryHeader{
		SyncMarker:              TelemetrySyncValue,
		SubsystemMode:           3,
		SubsystemID:             GripSubsystemID,
		Destination:             1,
		SubsystemUnitID:         7,
		TMIdentifier:            TMRealtimeScience,
		TMCounter:               4211,
		Model:                   2,
		TaskID:                  9,
		SubsystemUnitVersion:    0x0102,
		CoarseTime:              715000000,
		FineTime:                1234,
		TimerStatus:             1,
		ExperimentMode:          5,
		ChecksumIndicator:       1,
		ReceiverSubsystemID:     0x41,
		ReceiverSubsystemUnitID: 21,
		NumberOfWords:           RTPacketBytes / 2,
	}
	buf := encodeTestPacket(t, in)
	out, err := DecodeTelemetryHeader(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestTelemetryHeaderBadInnerSync(t *testing.T) {
	buf := encodeTestPacket(t, RealtimeHeader(1, 1000, 0))
	buf[TransferFrameHeaderLength] ^= 0xFF

	h, err := DecodeTelemetryHeader(buf)
	if !errors.Is(err, ErrBadSync) {
		t.Fatalf("decode corrupted inner sync: err = %v, want ErrBadSync", err)
	}
	if h != (TelemetryHeader{}) {
		t.Errorf("decode returned partial header alongside error: %+v", h)
	}
}

func TestTelemetryHeaderTruncated(t *testing.T) {
	buf := encodeTestPacket(t, HousekeepingHeader(1, 1000, 0))
	if _, err := DecodeTelemetryHeader(buf[:payloadOffset-1]); !errors.Is(err, ErrTruncated) {
		t.Errorf("decode short buffer: err = %v, want ErrTruncated", err)
	}
}

func TestSeconds(t *testing.T) {
	h := TelemetryHeader{CoarseTime: 715276800, FineTime: 5000}
	if got, want := h.Seconds(), 715276800.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("Seconds() = %f, want %f", got, want)
	}
	if got := (TelemetryHeader{}).Seconds(); got != 0 {
		t.Errorf("zero header Seconds() = %f, want 0", got)
	}
}

func TestHeaderTemplates(t *testing.T) {
	rt := RealtimeHeader(17, 1000, 2500)
	if rt.TMIdentifier != TMRealtimeScience || rt.TMCounter != 17 {
		t.Errorf("realtime template: %+v", rt)
	}
	hk := HousekeepingHeader(3, 1000, 0)
	if hk.TMIdentifier != TMHousekeeping || hk.TMCounter != 3 {
		t.Errorf("housekeeping template: %+v", hk)
	}
}
