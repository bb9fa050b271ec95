// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package erp1

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/enostat/pkg/esp3"
)

var (
	ErrWrongPacketType  = errors.New("erp1: wrong packet type")
	ErrPayloadTooShort  = errors.New("erp1: payload too short")
	ErrInvalidDeviceID  = errors.New("erp1: invalid device ID")
	ErrOptionalTooLarge = errors.New("erp1: optional data too large")
)

// DeviceID is a 32-bit EnOcean device address
type DeviceID uint32

// String formats the ID as colon separated hex bytes (05:11:72:F7)
func (id DeviceID) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X", byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
}

// ParseDeviceID accepts "05:11:72:F7", "051172F7" and "0x051172F7"
func ParseDeviceID(s string) (DeviceID, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	clean = strings.NewReplacer(":", "", "-", "").Replace(clean)
	if len(clean) != 8 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}
	v, err := strconv.ParseUint(clean, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}
	return DeviceID(v), nil
}

// Telegram is a decoded ERP1 radio telegram.
// Optional data fields are nil when the gateway did not supply them.
type Telegram struct {
	RORG     RORG
	Payload  []byte
	SenderID DeviceID
	Status   byte

	SubTelegramCount *uint8
	DestinationID    *DeviceID
	RSSI             *int8 // dBm
	SecurityLevel    *uint8
}

// NewTelegram creates an outgoing telegram without optional data
func NewTelegram(rorg RORG, payload []byte, sender DeviceID, status byte) *Telegram {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Telegram{
		RORG:     rorg,
		Payload:  p,
		SenderID: sender,
		Status:   status,
	}
}

// Addressed sets the destination and fills the remaining optional
// fields with the defaults used when sending
func (t *Telegram) Addressed(dest DeviceID) *Telegram {
	subTel := uint8(SendSubTelegramCount)
	security := uint8(SendSecurityLevel)
	t.SubTelegramCount = &subTel
	t.DestinationID = &dest
	t.RSSI = nil
	t.SecurityLevel = &security
	return t
}

// Decode extracts the telegram carried by a RADIO_ERP1 packet
func Decode(p *esp3.Packet) (*Telegram, error) {
	if p.Type() != esp3.PacketTypeRadioERP1 {
		return nil, fmt.Errorf("%w: %s", ErrWrongPacketType, p.Type())
	}
	data := p.Data()
	if len(data) < MinDataSize {
		return nil, fmt.Errorf("%w: %d data bytes (min %d)", ErrPayloadTooShort, len(data), MinDataSize)
	}

	senderStart := len(data) - senderIDSize - 1
	t := &Telegram{
		RORG:     RORG(data[0]),
		Payload:  data[1:senderStart],
		SenderID: DeviceID(binary.BigEndian.Uint32(data[senderStart : senderStart+senderIDSize])),
		Status:   data[len(data)-1],
	}

	opt := p.OptionalData()
	if len(opt) > optSubTelegram {
		v := opt[optSubTelegram]
		t.SubTelegramCount = &v
	}
	if len(opt) >= optDestination+4 {
		v := DeviceID(binary.BigEndian.Uint32(opt[optDestination : optDestination+4]))
		t.DestinationID = &v
	}
	if len(opt) > optRSSI && opt[optRSSI] <= maxRSSIAttenuation {
		v := int8(-int(opt[optRSSI]))
		t.RSSI = &v
	}
	if len(opt) > optSecurityLevel {
		v := opt[optSecurityLevel]
		t.SecurityLevel = &v
	}

	return t, nil
}

// Packet encodes the telegram as a RADIO_ERP1 packet.
// When any optional field is set, all optional fields are written and
// missing ones take their send defaults.
func (t *Telegram) Packet() *esp3.Packet {
	data := make([]byte, 0, MinDataSize+len(t.Payload))
	data = append(data, byte(t.RORG))
	data = append(data, t.Payload...)
	data = binary.BigEndian.AppendUint32(data, uint32(t.SenderID))
	data = append(data, t.Status)

	var opt []byte
	if t.hasOptional() {
		opt = []byte{SendSubTelegramCount, 0xFF, 0xFF, 0xFF, 0xFF, SendRSSI, SendSecurityLevel}
		if t.SubTelegramCount != nil {
			opt[optSubTelegram] = *t.SubTelegramCount
		}
		if t.DestinationID != nil {
			binary.BigEndian.PutUint32(opt[optDestination:], uint32(*t.DestinationID))
		}
		if t.RSSI != nil {
			opt[optRSSI] = byte(-int(*t.RSSI))
		}
		if t.SecurityLevel != nil {
			opt[optSecurityLevel] = *t.SecurityLevel
		}
	}

	return esp3.NewPacket(esp3.PacketTypeRadioERP1, data, opt)
}

func (t *Telegram) hasOptional() bool {
	return t.SubTelegramCount != nil || t.DestinationID != nil || t.RSSI != nil || t.SecurityLevel != nil
}

// RepeaterCount returns how often the telegram was repeated
func (t *Telegram) RepeaterCount() int {
	return int(t.Status & StatusRepeaterMask)
}

// IsTeachIn reports whether the telegram is a teach-in telegram.
// RPS has no teach-in bit; UTE telegrams always are.
func (t *Telegram) IsTeachIn() bool {
	switch t.RORG {
	case RORG1BS:
		return len(t.Payload) >= 1 && t.Payload[0]&learnBit == 0
	case RORG4BS:
		return len(t.Payload) >= 4 && t.Payload[3]&learnBit == 0
	case RORGUTE:
		return true
	default:
		return false
	}
}

// IsBroadcast reports whether the telegram was addressed to all devices.
// Telegrams without destination are broadcasts.
func (t *Telegram) IsBroadcast() bool {
	return t.DestinationID == nil || *t.DestinationID == BroadcastID
}
