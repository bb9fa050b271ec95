// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package erp1 interprets EnOcean Radio Protocol 1 telegrams carried in
// RADIO_ERP1 packets: RORG, payload, sender ID, status and the optional
// data trailer added by the gateway.
package erp1

// RORG identifies the telegram choice (radio organization)
type RORG uint8

// Telegram types
const (
	RORGRPS       RORG = 0xF6 // repeated switch communication
	RORG1BS       RORG = 0xD5 // 1 byte communication
	RORG4BS       RORG = 0xA5 // 4 byte communication
	RORGVLD       RORG = 0xD2 // variable length data
	RORGMSC       RORG = 0xD1 // manufacturer specific
	RORGADT       RORG = 0xA6 // addressing destination telegram
	RORGSMLrnReq  RORG = 0xC6 // smart ack learn request
	RORGSMLrnAns  RORG = 0xC7 // smart ack learn answer
	RORGSMRec     RORG = 0xA7 // smart ack reclaim
	RORGSysEx     RORG = 0xC5 // remote management
	RORGSec       RORG = 0x30 // secure telegram
	RORGSecEncaps RORG = 0x31 // secure telegram with encapsulation
	RORGUTE       RORG = 0xD4 // universal teach-in
)

// Data section layout: RORG, payload, sender ID (4), status.
// The payload may be empty.
const (
	senderIDSize = 4
	MinDataSize  = 1 + senderIDSize + 1
)

// Optional data layout
const (
	optSubTelegram   = 0
	optDestination   = 1
	optRSSI          = 5
	optSecurityLevel = 6
	OptionalDataSize = 7
)

// Defaults written in the optional data of outgoing telegrams
const (
	SendSubTelegramCount = 0x03
	SendRSSI             = 0xFF
	SendSecurityLevel    = 0x00
)

// BroadcastID addresses all devices
const BroadcastID DeviceID = 0xFFFFFFFF

// Status byte fields
const (
	StatusT21          = 0x20 // RPS: PTM type 2
	StatusNU           = 0x10 // RPS: normal (N) or unassigned (U) message
	StatusRepeaterMask = 0x0F
)

// learnBit is DB0.3 of 1BS and 4BS telegrams; cleared for teach-in
const learnBit = 0x08

// maxRSSIAttenuation is the largest optional data RSSI value reported as dBm
const maxRSSIAttenuation = 128
