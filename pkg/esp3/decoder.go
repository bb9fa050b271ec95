// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"bytes"
	"encoding/binary"
	"iter"
)

// header holds the fixed fields of a frame whose header CRC has been verified
type header struct {
	dataLen     int
	optionalLen int
	packetType  PacketType
}

func (h header) frameSize() int {
	return frameOverhead + h.dataLen + h.optionalLen
}

// parseHeader verifies the header CRC. frame must start with the sync byte
// and hold at least preambleSize bytes.
func parseHeader(frame []byte) (header, error) {
	crc := CalculateCRC8(frame[1:headerEnd])
	if crc != frame[headerEnd] {
		return header{}, &FrameError{Kind: HeaderCRCMismatch, Expected: int(crc), Actual: int(frame[headerEnd])}
	}
	return header{
		dataLen:     int(binary.BigEndian.Uint16(frame[1:3])),
		optionalLen: int(frame[3]),
		packetType:  PacketType(frame[4]),
	}, nil
}

// parseBody verifies the data CRC of a complete frame and splits it into a packet
func parseBody(frame []byte, h header) (*Packet, error) {
	end := h.frameSize() - 1
	crc := CalculateCRC8(frame[preambleSize:end])
	if crc != frame[end] {
		return nil, &FrameError{Kind: DataCRCMismatch, Expected: int(crc), Actual: int(frame[end])}
	}
	dataEnd := preambleSize + h.dataLen
	return NewPacket(h.packetType, frame[preambleSize:dataEnd], frame[dataEnd:end]), nil
}

// Decode decodes exactly one frame. Bytes beyond the declared frame size are ignored.
// Unknown packet types decode successfully; check Packet.Supported.
func Decode(frame []byte) (*Packet, error) {
	if len(frame) == 0 {
		return nil, &FrameError{Kind: TruncatedFrame, Expected: preambleSize, Actual: 0}
	}
	if frame[0] != SyncByte {
		return nil, &FrameError{Kind: SyncByteMismatch, Expected: SyncByte, Actual: int(frame[0])}
	}
	if len(frame) < preambleSize {
		return nil, &FrameError{Kind: TruncatedFrame, Expected: preambleSize, Actual: len(frame)}
	}

	h, err := parseHeader(frame)
	if err != nil {
		return nil, err
	}
	if len(frame) < h.frameSize() {
		return nil, &FrameError{Kind: TruncatedFrame, Expected: h.frameSize(), Actual: len(frame)}
	}

	return parseBody(frame, h)
}

type decoderState int

const (
	stateSeekingSync decoderState = iota
	stateAccumulatingBody
)

// Decoder turns an arbitrarily chunked byte stream into packets.
//
// Bytes are buffered across calls. After a CRC failure the byte at the
// sync position is dropped and the remaining buffer is scanned for the
// next sync byte, so one corrupted frame never desynchronizes the stream.
// Sync bytes inside a frame already reported for its data CRC are counted
// as skipped, not reported again.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	state   decoderState
	buffer  []byte
	header  header
	skipped uint64

	// bytes left of the last frame rejected for its data CRC
	rejected int
}

// NewDecoder creates a new stream decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:  stateSeekingSync,
		buffer: make([]byte, 0, 256),
	}
}

// Reset drops all buffered bytes and returns to sync search
func (d *Decoder) Reset() {
	d.state = stateSeekingSync
	d.buffer = d.buffer[:0]
	d.header = header{}
	d.rejected = 0
}

// Write buffers p for decoding. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buffer = append(d.buffer, p...)
	return len(p), nil
}

// Feed buffers chunk and returns the packets and framing errors it completes.
// The chunk is buffered immediately; unconsumed results stay available to
// the next Feed or Next call.
func (d *Decoder) Feed(chunk []byte) iter.Seq2[*Packet, error] {
	d.buffer = append(d.buffer, chunk...)
	return d.All()
}

// All yields every packet or framing error decodable from the current buffer
func (d *Decoder) All() iter.Seq2[*Packet, error] {
	return func(yield func(*Packet, error) bool) {
		for {
			packet, err := d.Next()
			if packet == nil && err == nil {
				return
			}
			if !yield(packet, err) {
				return
			}
		}
	}
}

// Next decodes the next result from the buffer.
// Returns nil, nil when more bytes are needed.
func (d *Decoder) Next() (*Packet, error) {
	for {
		switch d.state {
		case stateSeekingSync:
			idx := bytes.IndexByte(d.buffer, SyncByte)
			if idx < 0 {
				d.skip(len(d.buffer))
				return nil, nil
			}
			d.skip(idx)
			if len(d.buffer) < preambleSize {
				return nil, nil
			}

			h, err := parseHeader(d.buffer)
			if err != nil {
				inRejected := d.rejected > 0
				d.skip(1)
				if inRejected {
					continue
				}
				return nil, err
			}
			d.header = h
			d.state = stateAccumulatingBody

		case stateAccumulatingBody:
			size := d.header.frameSize()
			if len(d.buffer) < size {
				return nil, nil
			}

			d.state = stateSeekingSync
			packet, err := parseBody(d.buffer[:size], d.header)
			if err != nil {
				d.skip(1)
				d.rejected = size - 1
				return nil, err
			}
			d.consume(size)
			return packet, nil
		}
	}
}

// Flush abandons a partially received frame.
// Returns a TruncatedFrame error if the buffer held the start of a frame.
func (d *Decoder) Flush() error {
	defer d.Reset()

	idx := bytes.IndexByte(d.buffer, SyncByte)
	if idx < 0 {
		return nil
	}
	need := preambleSize
	if d.state == stateAccumulatingBody {
		need = d.header.frameSize()
	}
	return &FrameError{Kind: TruncatedFrame, Expected: need, Actual: len(d.buffer) - idx}
}

// Buffered returns the number of bytes waiting to be decoded
func (d *Decoder) Buffered() int {
	return len(d.buffer)
}

// Skipped returns the number of bytes discarded while searching for sync,
// including the bytes of frames that failed their CRC
func (d *Decoder) Skipped() uint64 {
	return d.skipped
}

func (d *Decoder) skip(n int) {
	d.skipped += uint64(n)
	d.consume(n)
}

// consume removes n bytes from the front of the buffer
func (d *Decoder) consume(n int) {
	if n == 0 {
		return
	}
	remaining := copy(d.buffer, d.buffer[n:])
	d.buffer = d.buffer[:remaining]
	d.rejected = max(d.rejected-n, 0)
}
