package epm

import (
	"encoding/binary"
	"fmt"
)

// TransferFrameHeader is the outer 12-byte header wrapping every EPM
// message. Constructed fresh per encode/decode call; no shared state.
type TransferFrameHeader struct {
	SyncMarker     uint32
	Spare1         uint8
	SoftwareUnitID uint8
	PacketType     PacketType
	Spare2         uint16
	NumberOfWords  uint16
}

// ConnectFrame returns the transfer-frame header for a connect request from
// the ground software to the EPM server.
func ConnectFrame() TransferFrameHeader {
	return TransferFrameHeader{
		SyncMarker:     TransferFrameSyncValue,
		SoftwareUnitID: SoftwareUnitID,
		PacketType:     PacketTypeConnect,
		NumberOfWords:  TransferFrameHeaderLength / 2,
	}
}

// AliveFrame returns the transfer-frame header for a keep-alive message.
func AliveFrame() TransferFrameHeader {
	return TransferFrameHeader{
		SyncMarker:     TransferFrameSyncValue,
		SoftwareUnitID: SoftwareUnitID,
		PacketType:     PacketTypeAlive,
		NumberOfWords:  TransferFrameHeaderLength / 2,
	}
}

// DecodeTransferFrameHeader extracts the outer header from the start of
// buf. The sync marker is validated at its fixed offset; a mismatch means
// the stream is misaligned and decoding must not continue.
func DecodeTransferFrameHeader(buf []byte) (TransferFrameHeader, error) {
	var h TransferFrameHeader
	if len(buf) < TransferFrameHeaderLength {
		return h, fmt.Errorf("%w: transfer frame header needs %d bytes, have %d",
			ErrTruncated, TransferFrameHeaderLength, len(buf))
	}
	h.SyncMarker = binary.BigEndian.Uint32(buf[0:4])
	if h.SyncMarker != TransferFrameSyncValue {
		return TransferFrameHeader{}, fmt.Errorf("%w: transfer frame sync 0x%08X, want 0x%08X",
			ErrBadSync, h.SyncMarker, uint32(TransferFrameSyncValue))
	}
	h.Spare1 = buf[4]
	h.SoftwareUnitID = buf[5]
	h.PacketType = PacketType(binary.BigEndian.Uint16(buf[6:8]))
	h.Spare2 = binary.BigEndian.Uint16(buf[8:10])
	h.NumberOfWords = binary.BigEndian.Uint16(buf[10:12])
	return h, nil
}

// EncodeTransferFrameHeader writes the full fixed-width header into the
// first 12 bytes of buf, regardless of the header's field values.
func EncodeTransferFrameHeader(buf []byte, h TransferFrameHeader) error {
	if len(buf) < TransferFrameHeaderLength {
		return fmt.Errorf("%w: transfer frame header needs %d bytes, have %d",
			ErrTruncated, TransferFrameHeaderLength, len(buf))
	}
	binary.BigEndian.PutUint32(buf[0:4], h.SyncMarker)
	buf[4] = h.Spare1
	buf[5] = h.SoftwareUnitID
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.PacketType))
	binary.BigEndian.PutUint16(buf[8:10], h.Spare2)
	binary.BigEndian.PutUint16(buf[10:12], h.NumberOfWords)
	return nil
}
