// Package epm encodes and decodes the EPM telemetry wire format used by the
// GRIP experiment: an outer transfer-frame header wrapping every message,
// an inner telemetry header for telemetry-type frames, and the realtime
// science and housekeeping payloads.
//
// The layout is fixed by the EPM interface control documents and is not
// self-describing, so every field offset and width below must be preserved
// bit for bit. All multi-byte fields are big-endian (network byte order).
package epm

import "errors"

// Wire-format constants per EPM-OHB-SP-0005.
const (
	// DefaultPort is the TCP port for all EPM LAN connections.
	DefaultPort = 2345

	// BufferLength is the maximum packet size in octets.
	BufferLength = 1412

	TransferFrameHeaderLength = 12
	TelemetryHeaderLength     = 30
	ChecksumLength            = 2

	// TransferFrameSyncValue marks the start of every transfer frame.
	TransferFrameSyncValue = 0xAA49DBFF
	// TelemetrySyncValue marks the start of the nested telemetry header.
	TelemetrySyncValue = 0xFFDB544D
)

// PacketType identifies the kind of transfer frame.
type PacketType uint16

const (
	PacketTypeConnect     PacketType = 0x0001
	PacketTypeAlive       PacketType = 0x0002
	PacketTypeTelecommand PacketType = 0x1154
	PacketTypeTelemetry   PacketType = 0x1153
)

// TMIdentifier identifies the telemetry payload carried by a telemetry
// frame, per DEX-ICD-00383-QS.
type TMIdentifier uint16

const (
	// TMHousekeeping identifies a DATA_BULK_HK packet.
	TMHousekeeping TMIdentifier = 0x0301
	// TMRealtimeScience identifies a DATA_RT_SCIENCE packet.
	TMRealtimeScience TMIdentifier = 0x1001
)

// GRIP subsystem identifiers.
const (
	SoftwareUnitID    = 43
	AltSoftwareUnitID = 42
	GripSubsystemID   = 0x21
)

// Realtime science packet geometry and timing.
const (
	// RTSlicesPerPacket is the number of data slices in each realtime
	// science packet.
	RTSlicesPerPacket = 10
	// RTDefaultSecondsPerSlice is the nominal slice period, used to
	// back-date slices when the acquisition tick counters are not running.
	RTDefaultSecondsPerSlice = 0.050
	// RTSecondsPerTick converts acquisition tick counts to seconds.
	RTSecondsPerTick = 0.001

	// RTPacketBytes is the total length of a realtime science packet:
	// 758 payload bytes plus both headers and the trailing checksum.
	RTPacketBytes = 802
	// HKPacketBytes is the total length of a bulk housekeeping packet.
	HKPacketBytes = 158

	payloadOffset = TransferFrameHeaderLength + TelemetryHeaderLength
)

// Decode errors. A corrupted frame implies the remaining stream may be
// misaligned, so none of these are recovered internally; they are always
// surfaced to the caller.
var (
	// ErrBadSync reports a sync marker mismatch at a fixed offset.
	ErrBadSync = errors.New("epm: bad sync marker")
	// ErrTruncated reports fewer bytes than the declared packet length.
	// No partially populated result is ever returned alongside it.
	ErrTruncated = errors.New("epm: truncated packet")
	// ErrUnexpectedTM reports a TMIdentifier other than the one the
	// decoder was asked for.
	ErrUnexpectedTM = errors.New("epm: unexpected telemetry identifier")
)

// writeChecksum stores a 16-bit additive checksum of buf[:n-2] in the last
// two bytes of buf[:n]. The ground segment never verifies it on receipt;
// the ChecksumIndicator header field records whether it is meaningful.
func writeChecksum(buf []byte, n int) {
	var sum uint16
	for _, b := range buf[:n-ChecksumLength] {
		sum += uint16(b)
	}
	buf[n-2] = byte(sum >> 8)
	buf[n-1] = byte(sum)
}
