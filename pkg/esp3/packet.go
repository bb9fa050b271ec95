// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"bytes"
	"time"
)

// Packet represents a single ESP3 packet
type Packet struct {
	packetType   PacketType
	data         []byte
	optionalData []byte
	timestamp    time.Time
}

// NewPacket creates a new packet. The data and optional data slices are copied.
func NewPacket(packetType PacketType, data, optionalData []byte) *Packet {
	return &Packet{
		packetType:   packetType,
		data:         cloneBytes(data),
		optionalData: cloneBytes(optionalData),
		timestamp:    time.Now(),
	}
}

// Type returns the packet type
func (p *Packet) Type() PacketType {
	return p.packetType
}

// Data returns the data section
func (p *Packet) Data() []byte {
	return p.data
}

// OptionalData returns the optional data section (may be empty)
func (p *Packet) OptionalData() []byte {
	return p.optionalData
}

// Timestamp returns when the packet was decoded or created
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// Supported reports whether the packet type is interpretable
func (p *Packet) Supported() bool {
	return p.packetType.Supported()
}

// Len returns the size of the packet on the wire
func (p *Packet) Len() int {
	return frameOverhead + len(p.data) + len(p.optionalData)
}

// Equal compares type, data and optional data. Timestamps are ignored.
func (p *Packet) Equal(o *Packet) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.packetType == o.packetType &&
		bytes.Equal(p.data, o.data) &&
		bytes.Equal(p.optionalData, o.optionalData)
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
