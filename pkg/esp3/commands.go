// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

// Common command builders create COMMON_COMMAND packets for the gateway
// module. The gateway answers each with a RESPONSE packet.

// NewCommonCommand creates a COMMON_COMMAND packet with the given command code and arguments
func NewCommonCommand(code byte, args ...byte) *Packet {
	data := make([]byte, 0, 1+len(args))
	data = append(data, code)
	data = append(data, args...)
	return NewPacket(PacketTypeCommonCmd, data, nil)
}

// NewReadVersion creates a CO_RD_VERSION packet.
// The response carries application/API versions, chip ID and description.
func NewReadVersion() *Packet {
	return NewCommonCommand(CmdReadVersion)
}

// NewReadIDBase creates a CO_RD_IDBASE packet
func NewReadIDBase() *Packet {
	return NewCommonCommand(CmdReadIDBase)
}

// NewReset creates a CO_WR_RESET packet
func NewReset() *Packet {
	return NewCommonCommand(CmdWriteReset)
}

// NewWriteRepeater creates a CO_WR_REPEATER packet.
// Level is RepeaterOff, RepeaterLevel1 or RepeaterLevel2.
func NewWriteRepeater(enable bool, level byte) *Packet {
	var enableByte byte
	if enable {
		enableByte = 0x01
	} else {
		level = RepeaterOff
	}
	return NewCommonCommand(CmdWriteRepeater, enableByte, level)
}

// NewWriteWaitMaturity creates a CO_WR_WAIT_MATURITY packet.
// When enabled the gateway forwards a telegram only after all its subtelegrams arrived.
func NewWriteWaitMaturity(wait bool) *Packet {
	if wait {
		return NewCommonCommand(CmdWriteWaitMaturity, 0x01)
	}
	return NewCommonCommand(CmdWriteWaitMaturity, 0x00)
}
