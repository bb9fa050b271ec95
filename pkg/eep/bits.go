// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package eep

import "fmt"

// ExtractBits reads size bits starting at offset. Bit offset 0 is the most
// significant bit of payload[0] (DB_n.7 in EEP notation), and ranges may
// cross byte boundaries.
func ExtractBits(payload []byte, offset, size int) (uint64, error) {
	if offset < 0 || size <= 0 || size > 64 || offset+size > len(payload)*8 {
		return 0, fmt.Errorf("%w: offset %d size %d over %d bytes", ErrBitRangeOutOfBounds, offset, size, len(payload))
	}

	var value uint64
	for i := offset; i < offset+size; i++ {
		bit := (payload[i/8] >> (7 - uint(i%8))) & 0x01
		value = value<<1 | uint64(bit)
	}
	return value, nil
}

// InsertBits writes the low size bits of value at offset, using the same bit
// order as ExtractBits
func InsertBits(payload []byte, offset, size int, value uint64) error {
	if offset < 0 || size <= 0 || size > 64 || offset+size > len(payload)*8 {
		return fmt.Errorf("%w: offset %d size %d over %d bytes", ErrBitRangeOutOfBounds, offset, size, len(payload))
	}

	for i := offset + size - 1; i >= offset; i-- {
		mask := byte(0x80) >> uint(i%8)
		if value&0x01 != 0 {
			payload[i/8] |= mask
		} else {
			payload[i/8] &^= mask
		}
		value >>= 1
	}
	return nil
}
