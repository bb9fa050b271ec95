// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"fmt"
	"strings"
)

// String returns the ESP3 name of the packet type
func (t PacketType) String() string {
	switch t {
	case PacketTypeRadioERP1:
		return "RADIO_ERP1"
	case PacketTypeResponse:
		return "RESPONSE"
	case PacketTypeRadioSubTel:
		return "RADIO_SUB_TEL"
	case PacketTypeEvent:
		return "EVENT"
	case PacketTypeCommonCmd:
		return "COMMON_COMMAND"
	case PacketTypeSmartAckCmd:
		return "SMART_ACK_COMMAND"
	case PacketTypeRemoteManCmd:
		return "REMOTE_MAN_COMMAND"
	case PacketTypeRadioMessage:
		return "RADIO_MESSAGE"
	case PacketTypeRadioERP2:
		return "RADIO_ERP2"
	case PacketTypeRadio802154:
		return "RADIO_802_15_4"
	case PacketTypeCommand24:
		return "COMMAND_2_4"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", uint8(t))
	}
}

// String returns the ESP3 name of the return code
func (c ReturnCode) String() string {
	switch c {
	case RetOK:
		return "RET_OK"
	case RetError:
		return "RET_ERROR"
	case RetNotSupported:
		return "RET_NOT_SUPPORTED"
	case RetWrongParam:
		return "RET_WRONG_PARAM"
	case RetOperationDenied:
		return "RET_OPERATION_DENIED"
	case RetLockSet:
		return "RET_LOCK_SET"
	case RetBufferTooSmall:
		return "RET_BUFFER_TO_SMALL"
	case RetNoFreeBuffer:
		return "RET_NO_FREE_BUFFER"
	default:
		return fmt.Sprintf("RET_0x%02X", uint8(c))
	}
}

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.Timestamp().Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (0x%02X) data=%d opt=%d\n",
		timestamp, p.Type(), uint8(p.Type()), len(p.Data()), len(p.OptionalData()))

	switch p.Type() {
	case PacketTypeResponse:
		if r, err := DecodeResponse(p); err == nil {
			result += fmt.Sprintf("  Return: %s\n", r.Code)
			if len(r.Data) > 0 {
				result += fmt.Sprintf("  Payload: %s\n", FormatHex(r.Data))
			}
		}
	default:
		result += fmt.Sprintf("  Data: %s\n", FormatHex(p.Data()))
		if len(p.OptionalData()) > 0 {
			result += fmt.Sprintf("  Optional: %s\n", FormatHex(p.OptionalData()))
		}
		if !p.Supported() {
			result += "  (unsupported packet type)\n"
		}
	}

	return result
}

// FormatHex renders bytes as space separated hex pairs
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	var s strings.Builder
	for i, b := range data {
		if i > 0 {
			s.WriteByte(' ')
		}
		fmt.Fprintf(&s, "%02X", b)
	}
	return s.String()
}
