package epm

import (
	"encoding/binary"
	"fmt"
)

// TelemetryHeader is the inner 30-byte header present inside telemetry-type
// transfer frames, carrying subsystem, identification and time fields.
// It begins at the fixed offset just after the transfer-frame header.
type TelemetryHeader struct {
	SyncMarker              uint32
	SubsystemMode           uint8
	SubsystemID             uint8
	Destination             uint8
	SubsystemUnitID         uint8
	TMIdentifier            TMIdentifier
	TMCounter               uint16
	Model                   uint8
	TaskID                  uint8
	SubsystemUnitVersion    uint16
	CoarseTime              uint32
	FineTime                uint16
	TimerStatus             uint8
	ExperimentMode          uint8
	ChecksumIndicator       uint16
	ReceiverSubsystemID     uint8
	ReceiverSubsystemUnitID uint8
	NumberOfWords           uint16
}

// Seconds returns the header time as seconds since the EPM epoch. Coarse
// time counts whole seconds; fine time counts 1/10000ths.
func (h TelemetryHeader) Seconds() float64 {
	return float64(h.CoarseTime) + float64(h.FineTime)/10000.0
}

// RealtimeHeader returns a telemetry header template for a realtime science
// packet with the given sequence counter and timestamp.
func RealtimeHeader(counter uint16, coarse uint32, fine uint16) TelemetryHeader {
	return TelemetryHeader{
		SyncMarker:   TelemetrySyncValue,
		SubsystemID:  GripSubsystemID,
		TMIdentifier: TMRealtimeScience,
		TMCounter:    counter,
		CoarseTime:   coarse,
		FineTime:     fine,
	}
}

// HousekeepingHeader returns a telemetry header template for a bulk
// housekeeping packet.
func HousekeepingHeader(counter uint16, coarse uint32, fine uint16) TelemetryHeader {
	return TelemetryHeader{
		SyncMarker:   TelemetrySyncValue,
		SubsystemID:  GripSubsystemID,
		TMIdentifier: TMHousekeeping,
		TMCounter:    counter,
		CoarseTime:   coarse,
		FineTime:     fine,
	}
}

// DecodeTelemetryHeader extracts the nested telemetry header from a packet
// buffer that starts with the transfer-frame header. Both sync markers are
// validated.
func DecodeTelemetryHeader(buf []byte) (TelemetryHeader, error) {
	var h TelemetryHeader
	if _, err := DecodeTransferFrameHeader(buf); err != nil {
		return h, err
	}
	if len(buf) < payloadOffset {
		return h, fmt.Errorf("%w: telemetry header needs %d bytes, have %d",
			ErrTruncated, payloadOffset, len(buf))
	}

	b := buf[TransferFrameHeaderLength:payloadOffset]
	h.SyncMarker = binary.BigEndian.Uint32(b[0:4])
	if h.SyncMarker != TelemetrySyncValue {
		return TelemetryHeader{}, fmt.Errorf("%w: telemetry sync 0x%08X, want 0x%08X",
			ErrBadSync, h.SyncMarker, uint32(TelemetrySyncValue))
	}
	h.SubsystemMode = b[4]
	h.SubsystemID = b[5]
	h.Destination = b[6]
	h.SubsystemUnitID = b[7]
	h.TMIdentifier = TMIdentifier(binary.BigEndian.Uint16(b[8:10]))
	h.TMCounter = binary.BigEndian.Uint16(b[10:12])
	h.Model = b[12]
	h.TaskID = b[13]
	h.SubsystemUnitVersion = binary.BigEndian.Uint16(b[14:16])
	h.CoarseTime = binary.BigEndian.Uint32(b[16:20])
	h.FineTime = binary.BigEndian.Uint16(b[20:22])
	h.TimerStatus = b[22]
	h.ExperimentMode = b[23]
	h.ChecksumIndicator = binary.BigEndian.Uint16(b[24:26])
	h.ReceiverSubsystemID = b[26]
	h.ReceiverSubsystemUnitID = b[27]
	h.NumberOfWords = binary.BigEndian.Uint16(b[28:30])
	return h, nil
}

// EncodeTelemetryHeader writes the nested telemetry header into a packet
// buffer at its fixed offset after the transfer-frame header. The full
// 30-byte layout is always written.
func EncodeTelemetryHeader(buf []byte, h TelemetryHeader) error {
	if len(buf) < payloadOffset {
		return fmt.Errorf("%w: telemetry header needs %d bytes, have %d",
			ErrTruncated, payloadOffset, len(buf))
	}
	b := buf[TransferFrameHeaderLength:payloadOffset]
	binary.BigEndian.PutUint32(b[0:4], h.SyncMarker)
	b[4] = h.SubsystemMode
	b[5] = h.SubsystemID
	b[6] = h.Destination
	b[7] = h.SubsystemUnitID
	binary.BigEndian.PutUint16(b[8:10], uint16(h.TMIdentifier))
	binary.BigEndian.PutUint16(b[10:12], h.TMCounter)
	b[12] = h.Model
	b[13] = h.TaskID
	binary.BigEndian.PutUint16(b[14:16], h.SubsystemUnitVersion)
	binary.BigEndian.PutUint32(b[16:20], h.CoarseTime)
	binary.BigEndian.PutUint16(b[20:22], h.FineTime)
	b[22] = h.TimerStatus
	b[23] = h.ExperimentMode
	binary.BigEndian.PutUint16(b[24:26], h.ChecksumIndicator)
	b[26] = h.ReceiverSubsystemID
	b[27] = h.ReceiverSubsystemUnitID
	binary.BigEndian.PutUint16(b[28:30], h.NumberOfWords)
	return nil
}
