// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

// CRC8 configuration (polynomial x^8 + x^2 + x + 1)
const (
	crcPolynomial = 0x07
	crcInitial    = 0x00
)

var crcTable = func() (table [256]byte) {
	for i := range table {
		crc := byte(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// CalculateCRC8 computes the ESP3 CRC8 checksum for the given data
func CalculateCRC8(data []byte) byte {
	crc := byte(crcInitial)
	for _, b := range data {
		crc = crcTable[crc^b]
	}
	return crc
}
