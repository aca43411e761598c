// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functionality shared by multiple sensor packages:
// the CRC8 checksum used by Sensirion and Vishay style parts, masked
// register read-modify-write, and the auto-ranging loop used by the optical
// sensors.
package common

// CRC8Func computes the CRC8 of data, starting from seed. The polynomial is
// 0x131 (x⁸+x⁵+x⁴+1), most-significant-bit first. The seed depends on the
// device family: Sensirion SHT2x uses 0x00, SHT3x and most TI parts use
// 0xFF.
//
// When data ends with the checksum byte of the preceding payload, the
// result is 0. That property is how transfers are validated.
type CRC8Func func(data []byte, seed byte) byte

// CRC8Bitwise is the bit-exact reference implementation: every input byte
// is folded into the state, then shifted out one bit at a time against the
// 9-bit polynomial.
func CRC8Bitwise(data []byte, seed byte) byte {
	crc := seed
	for _, d := range data {
		crc ^= d
		for n := 0; n < 8; n++ {
			if crc&0x80 == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ 0x31
			}
		}
	}
	return crc
}

// CRC8Math is an algebraic form of CRC8Bitwise, roughly 3x faster since the
// inner bit loop is collapsed into a few shifts. It produces identical
// output for every input and seed.
func CRC8Math(data []byte, seed byte) byte {
	crc := seed
	for _, d := range data {
		crc ^= d
		crc ^= (crc >> 3) ^ (crc >> 4) ^ (crc >> 6)
		crc ^= (crc << 4) ^ (crc << 5)
	}
	return crc
}

// CRC8 calculates the 8-bit CRC of the byte slice parameter with the fixed
// seed 0xFF and returns the calculated value. CRC bytes are used in sensors
// from TI and Sensirion.
func CRC8(bytes []byte) byte {
	return CRC8Math(bytes, 0xff)
}
