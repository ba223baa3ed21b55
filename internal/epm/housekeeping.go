package epm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Bulk housekeeping packet layout. The 158-byte DATA_BULK_HK packet carries
// a 114-byte payload between the headers and the trailing checksum. The
// first 70 payload bytes hold temperature, voltage and self-test words that
// the ground segment does not consume; the decoded status fields start at
// payload offset 70 and run to the end.
const (
	hkPayloadBytes  = HKPacketBytes - payloadOffset - ChecksumLength // 114
	hkStatusOffset  = 70
	hkHorizontalOff = hkStatusOffset + 0
	hkVerticalOff   = hkStatusOffset + 2
	hkToneOff       = hkStatusOffset + 4
	hkCradleOff     = hkStatusOffset + 5
	hkUserOff       = hkStatusOffset + 6
	hkProtocolOff   = hkStatusOffset + 8
	hkTaskOff       = hkStatusOffset + 10
	hkStepOff       = hkStatusOffset + 12
	hkScriptOff     = hkStatusOffset + 14
	hkIOChannelOff  = hkStatusOffset + 16
	hkTrackerOff    = hkStatusOffset + 18
	hkCameraOff     = hkStatusOffset + 20
	hkCameraRateOff = hkStatusOffset + 22
	hkRunningOff    = hkStatusOffset + 24
	hkCPUOff        = hkStatusOffset + 26
	hkMemoryOff     = hkStatusOffset + 28
	hkDiskCOff      = hkStatusOffset + 30
	hkDiskDOff      = hkStatusOffset + 34
	hkDiskEOff      = hkStatusOffset + 38
	hkCRCOff        = hkStatusOffset + 42
)

// HousekeepingRecord is the decoded status portion of a bulk housekeeping
// packet: one current value per field, no time series.
type HousekeepingRecord struct {
	Header TelemetryHeader

	HorizontalTargetFeedback uint16 // bitfield, one bit per LED
	VerticalTargetFeedback   uint16
	ToneFeedback             uint8
	CradleDetectors          uint8 // 2 bits per cradle

	User     uint16
	Protocol uint16
	Task     uint16
	Step     uint16

	ScriptEngineStatus  uint16
	IOChannelStatus     uint16
	MotionTrackerStatus uint16
	CrewCameraStatus    uint16

	CrewCameraRate uint16 // fps
	RunningBits    uint16 // bit 0: shell command, bit 1: acquiring
	CPUUsage       uint16 // percent
	MemoryUsage    uint16 // percent

	FreeDiskSpaceC uint32
	FreeDiskSpaceD uint32
	FreeDiskSpaceE uint32

	CRC uint16
}

// DecodeHousekeeping decodes a complete bulk housekeeping packet. Both sync
// markers are validated and the TMIdentifier must be TMHousekeeping.
func DecodeHousekeeping(buf []byte) (*HousekeepingRecord, error) {
	h, err := DecodeTelemetryHeader(buf)
	if err != nil {
		return nil, err
	}
	if h.TMIdentifier != TMHousekeeping {
		return nil, fmt.Errorf("%w: 0x%04X, want 0x%04X (housekeeping)",
			ErrUnexpectedTM, uint16(h.TMIdentifier), uint16(TMHousekeeping))
	}
	if len(buf) < HKPacketBytes {
		return nil, fmt.Errorf("%w: housekeeping packet needs %d bytes, have %d",
			ErrTruncated, HKPacketBytes, len(buf))
	}

	p := buf[payloadOffset : payloadOffset+hkPayloadBytes]
	hk := &HousekeepingRecord{
		Header:                   h,
		HorizontalTargetFeedback: binary.BigEndian.Uint16(p[hkHorizontalOff:]),
		VerticalTargetFeedback:   binary.BigEndian.Uint16(p[hkVerticalOff:]),
		ToneFeedback:             p[hkToneOff],
		CradleDetectors:          p[hkCradleOff],
		User:                     binary.BigEndian.Uint16(p[hkUserOff:]),
		Protocol:                 binary.BigEndian.Uint16(p[hkProtocolOff:]),
		Task:                     binary.BigEndian.Uint16(p[hkTaskOff:]),
		Step:                     binary.BigEndian.Uint16(p[hkStepOff:]),
		ScriptEngineStatus:       binary.BigEndian.Uint16(p[hkScriptOff:]),
		IOChannelStatus:          binary.BigEndian.Uint16(p[hkIOChannelOff:]),
		MotionTrackerStatus:      binary.BigEndian.Uint16(p[hkTrackerOff:]),
		CrewCameraStatus:         binary.BigEndian.Uint16(p[hkCameraOff:]),
		CrewCameraRate:           binary.BigEndian.Uint16(p[hkCameraRateOff:]),
		RunningBits:              binary.BigEndian.Uint16(p[hkRunningOff:]),
		CPUUsage:                 binary.BigEndian.Uint16(p[hkCPUOff:]),
		MemoryUsage:              binary.BigEndian.Uint16(p[hkMemoryOff:]),
		FreeDiskSpaceC:           binary.BigEndian.Uint32(p[hkDiskCOff:]),
		FreeDiskSpaceD:           binary.BigEndian.Uint32(p[hkDiskDOff:]),
		FreeDiskSpaceE:           binary.BigEndian.Uint32(p[hkDiskEOff:]),
		CRC:                      binary.BigEndian.Uint16(p[hkCRCOff:]),
	}
	return hk, nil
}

// EncodeHousekeepingPacket writes a complete 158-byte housekeeping packet
// into buf. Undecoded payload bytes are zeroed; the header's sync marker,
// TMIdentifier and word count are forced to the housekeeping values.
func EncodeHousekeepingPacket(buf []byte, h TelemetryHeader, hk *HousekeepingRecord) error {
	if len(buf) < HKPacketBytes {
		return fmt.Errorf("%w: housekeeping packet needs %d bytes, have %d",
			ErrTruncated, HKPacketBytes, len(buf))
	}

	tf := TransferFrameHeader{
		SyncMarker:     TransferFrameSyncValue,
		SoftwareUnitID: SoftwareUnitID,
		PacketType:     PacketTypeTelemetry,
		NumberOfWords:  HKPacketBytes / 2,
	}
	if err := EncodeTransferFrameHeader(buf, tf); err != nil {
		return err
	}
	h.SyncMarker = TelemetrySyncValue
	h.TMIdentifier = TMHousekeeping
	h.NumberOfWords = HKPacketBytes / 2
	if err := EncodeTelemetryHeader(buf, h); err != nil {
		return err
	}

	p := buf[payloadOffset : payloadOffset+hkPayloadBytes]
	for i := range p {
		p[i] = 0
	}
	binary.BigEndian.PutUint16(p[hkHorizontalOff:], hk.HorizontalTargetFeedback)
	binary.BigEndian.PutUint16(p[hkVerticalOff:], hk.VerticalTargetFeedback)
	p[hkToneOff] = hk.ToneFeedback
	p[hkCradleOff] = hk.CradleDetectors
	binary.BigEndian.PutUint16(p[hkUserOff:], hk.User)
	binary.BigEndian.PutUint16(p[hkProtocolOff:], hk.Protocol)
	binary.BigEndian.PutUint16(p[hkTaskOff:], hk.Task)
	binary.BigEndian.PutUint16(p[hkStepOff:], hk.Step)
	binary.BigEndian.PutUint16(p[hkScriptOff:], hk.ScriptEngineStatus)
	binary.BigEndian.PutUint16(p[hkIOChannelOff:], hk.IOChannelStatus)
	binary.BigEndian.PutUint16(p[hkTrackerOff:], hk.MotionTrackerStatus)
	binary.BigEndian.PutUint16(p[hkCameraOff:], hk.CrewCameraStatus)
	binary.BigEndian.PutUint16(p[hkCameraRateOff:], hk.CrewCameraRate)
	binary.BigEndian.PutUint16(p[hkRunningOff:], hk.RunningBits)
	binary.BigEndian.PutUint16(p[hkCPUOff:], hk.CPUUsage)
	binary.BigEndian.PutUint16(p[hkMemoryOff:], hk.MemoryUsage)
	binary.BigEndian.PutUint32(p[hkDiskCOff:], hk.FreeDiskSpaceC)
	binary.BigEndian.PutUint32(p[hkDiskDOff:], hk.FreeDiskSpaceD)
	binary.BigEndian.PutUint32(p[hkDiskEOff:], hk.FreeDiskSpaceE)
	binary.BigEndian.PutUint16(p[hkCRCOff:], hk.CRC)
	writeChecksum(buf, HKPacketBytes)
	return nil
}

// TargetFeedbackStrings renders the horizontal and vertical target LED
// bitfields as "u"/"m" runs for the status display, lit targets first row
// horizontal (10 LEDs), second row vertical (13 LEDs).
func (hk *HousekeepingRecord) TargetFeedbackStrings() (horizontal, vertical string) {
	var hb, vb strings.Builder
	for i := 0; i < 10; i++ {
		if hk.HorizontalTargetFeedback&(1<<i) != 0 {
			hb.WriteByte('u')
		} else {
			hb.WriteByte('m')
		}
	}
	for i := 0; i < 13; i++ {
		if hk.VerticalTargetFeedback&(1<<i) != 0 {
			vb.WriteByte('u')
		} else {
			vb.WriteByte('m')
		}
	}
	return hb.String(), vb.String()
}

// massDecoder translates the 2-bit cradle detector states.
var massDecoder = [4]string{"?", "4", "6", "8"}

// CradleStates decodes the three mass-cradle detector fields, 2 bits each.
func (hk *HousekeepingRecord) CradleStates() string {
	return massDecoder[hk.CradleDetectors>>0&0x03] + " " +
		massDecoder[hk.CradleDetectors>>2&0x03] + " " +
		massDecoder[hk.CradleDetectors>>4&0x03]
}

// ScriptEngineError reports whether the script engine is in its error
// state while a task is selected.
func (hk *HousekeepingRecord) ScriptEngineError() bool {
	return hk.Task != 0 && hk.ScriptEngineStatus == 0x1000
}

// AcquisitionFlags summarises the acquisition state: "A" when the motion
// tracker is acquiring, "F" when the crew camera is filming.
func (hk *HousekeepingRecord) AcquisitionFlags() string {
	var b strings.Builder
	if hk.MotionTrackerStatus == 2 {
		b.WriteString("A")
	}
	if hk.CrewCameraStatus == 2 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("F")
	}
	return b.String()
}
