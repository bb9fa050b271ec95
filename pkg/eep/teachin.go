// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import (
	"fmt"

	"github.com/Thermoquad/enostat/pkg/erp1"
)

// UTERequest is the request type of a UTE teach-in query
type UTERequest uint8

const (
	UTETeachIn     UTERequest = 0x00
	UTEDeletion    UTERequest = 0x01
	UTENotSpecific UTERequest = 0x02
)

// UTEResult is the answer to a UTE teach-in query
type UTEResult uint8

const (
	UTERejected        UTEResult = 0x00
	UTEAccepted        UTEResult = 0x01
	UTEDeleted         UTEResult = 0x02
	UTEEEPNotSupported UTEResult = 0x03
)

// UTE command IDs (DB6 bits 3..0)
const (
	uteCmdQuery    = 0x00
	uteCmdResponse = 0x01
	utePayloadSize = 7
)

// TeachIn describes a device announcing its profile
type TeachIn struct {
	Sender       erp1.DeviceID
	Profile      ProfileID
	Manufacturer uint16

	// UTE only
	UTE              bool
	Bidirectional    bool
	ResponseExpected bool
	Request          UTERequest
	Channels         uint8
}

// ParseTeachIn extracts the profile announced by a teach-in telegram.
// 4BS telegrams must use teach-in variation 2 (LRN type bit set).
func ParseTeachIn(t *erp1.Telegram) (*TeachIn, error) {
	if !t.IsTeachIn() {
		return nil, ErrNotTeachIn
	}

	switch t.RORG {
	case erp1.RORG1BS:
		return &TeachIn{Sender: t.SenderID, Profile: ProfileD50001}, nil

	case erp1.RORG4BS:
		lrnType, _ := ExtractBits(t.Payload, 24, 1)
		if lrnType == 0 {
			return nil, fmt.Errorf("%w: 4BS teach-in without EEP", ErrNoProfileInfo)
		}
		fn, _ := ExtractBits(t.Payload, 0, 6)
		typ, _ := ExtractBits(t.Payload, 6, 7)
		manufacturer, _ := ExtractBits(t.Payload, 13, 11)
		return &TeachIn{
			Sender:       t.SenderID,
			Profile:      ProfileID{RORG: erp1.RORG4BS, Func: uint8(fn), Type: uint8(typ)},
			Manufacturer: uint16(manufacturer),
		}, nil

	case erp1.RORGUTE:
		if len(t.Payload) != utePayloadSize {
			return nil, fmt.Errorf("%w: UTE payload is %d bytes (expected %d)", erp1.ErrPayloadTooShort, len(t.Payload), utePayloadSize)
		}
		p := t.Payload
		if p[0]&0x0F != uteCmdQuery {
			return nil, fmt.Errorf("%w: UTE command 0x%X is not a query", ErrNotTeachIn, p[0]&0x0F)
		}
		return &TeachIn{
			Sender:           t.SenderID,
			Profile:          ProfileID{RORG: erp1.RORG(p[6]), Func: p[5], Type: p[4]},
			Manufacturer:     uint16(p[3]&0x07)<<8 | uint16(p[2]),
			UTE:              true,
			Bidirectional:    p[0]&0x80 != 0,
			ResponseExpected: p[0]&0x40 == 0,
			Request:          UTERequest((p[0] >> 4) & 0x03),
			Channels:         p[1],
		}, nil
	}

	return nil, ErrNotTeachIn
}
