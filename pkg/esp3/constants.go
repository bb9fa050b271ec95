// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package esp3 implements the EnOcean Serial Protocol v3 used between a host
// and an EnOcean radio gateway (TCM310/USB300 and compatibles).
//
// The package provides the CRC8 checksum, single packet encoding and decoding,
// a streaming framing decoder that resynchronizes after corrupted frames,
// RESPONSE payload parsing and builders for the common commands understood by
// the gateway module.
package esp3

// Framing
const (
	SyncByte = 0x55

	HeaderSize    = 4 // data length (2) + optional length (1) + packet type (1)
	headerEnd     = 1 + HeaderSize
	preambleSize  = headerEnd + 1 // sync + header + header CRC
	frameOverhead = preambleSize + 1

	MaxDataSize         = 0xFFFF
	MaxOptionalDataSize = 0xFF
	MaxFrameSize        = frameOverhead + MaxDataSize + MaxOptionalDataSize
)

// PacketType identifies the content of an ESP3 packet
type PacketType uint8

// Packet types
const (
	PacketTypeRadioERP1    PacketType = 0x01
	PacketTypeResponse     PacketType = 0x02
	PacketTypeRadioSubTel  PacketType = 0x03
	PacketTypeEvent        PacketType = 0x04
	PacketTypeCommonCmd    PacketType = 0x05
	PacketTypeSmartAckCmd  PacketType = 0x06
	PacketTypeRemoteManCmd PacketType = 0x07
	PacketTypeRadioMessage PacketType = 0x09
	PacketTypeRadioERP2    PacketType = 0x0A
	PacketTypeRadio802154  PacketType = 0x10
	PacketTypeCommand24    PacketType = 0x11
)

// Supported reports whether packets of this type can be interpreted beyond framing.
// Every other type still decodes, it just carries no further semantics.
func (t PacketType) Supported() bool {
	return t == PacketTypeRadioERP1 || t == PacketTypeResponse
}

// ReturnCode is the first data byte of a RESPONSE packet
type ReturnCode uint8

// Return codes
const (
	RetOK              ReturnCode = 0x00
	RetError           ReturnCode = 0x01
	RetNotSupported    ReturnCode = 0x02
	RetWrongParam      ReturnCode = 0x03
	RetOperationDenied ReturnCode = 0x04
	RetLockSet         ReturnCode = 0x05
	RetBufferTooSmall  ReturnCode = 0x06
	RetNoFreeBuffer    ReturnCode = 0x07
)

// Common command codes (packet type 0x05)
const (
	CmdWriteSleep        = 0x01
	CmdWriteReset        = 0x02
	CmdReadVersion       = 0x03
	CmdReadSysLog        = 0x04
	CmdWriteSysLog       = 0x05
	CmdWriteBIST         = 0x06
	CmdWriteIDBase       = 0x07
	CmdReadIDBase        = 0x08
	CmdWriteRepeater     = 0x09
	CmdReadRepeater      = 0x0A
	CmdWriteWaitMaturity = 0x10
)

// Repeater levels for CO_WR_REPEATER
const (
	RepeaterOff    = 0x00
	RepeaterLevel1 = 0x01
	RepeaterLevel2 = 0x02
)

// Version response layout
const (
	versionInfoSize     = 32
	versionDescription  = 16
	baseIDResponseSize  = 4
	baseIDWithRemaining = 5
)
