// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"encoding/binary"
	"fmt"
)

// Validate checks that the packet fits the ESP3 header length fields
func (p *Packet) Validate() error {
	if len(p.data) > MaxDataSize {
		return fmt.Errorf("data too large: %d bytes (max %d)", len(p.data), MaxDataSize)
	}
	if len(p.optionalData) > MaxOptionalDataSize {
		return fmt.Errorf("optional data too large: %d bytes (max %d)", len(p.optionalData), MaxOptionalDataSize)
	}
	return nil
}

// EncodePacket serializes a packet to wire format: sync byte, header,
// header CRC, data, optional data, data CRC.
// Panics if the packet does not pass Validate; packets built by this
// module always do.
func EncodePacket(p *Packet) []byte {
	return AppendPacket(make([]byte, 0, p.Len()), p)
}

// AppendPacket appends the wire format of p to dst
func AppendPacket(dst []byte, p *Packet) []byte {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("esp3: encode error: %v", err))
	}

	start := len(dst)
	dst = append(dst, SyncByte, 0, 0, byte(len(p.optionalData)), byte(p.packetType))
	binary.BigEndian.PutUint16(dst[start+1:start+3], uint16(len(p.data)))
	dst = append(dst, CalculateCRC8(dst[start+1:start+headerEnd]))

	body := len(dst)
	dst = append(dst, p.data...)
	dst = append(dst, p.optionalData...)
	dst = append(dst, CalculateCRC8(dst[body:]))

	return dst
}
