// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmxx80

import (
	"encoding/binary"
	"math"
)

// Binary exponents applied element-wise to the decoded integer
// coefficients. Pre-scaling here keeps the compensation formulas free of
// the datasheet's power-of-two divisors.
var (
	temperatureExponents = [3]int{-10, 0, -6}
	pressureExponents    = [9]int{0, -34, -53, 4, -13, -29, -4, -19, -35}
	humidityExponents    = [6]int{-19, -16, -26, 6, -14, -26}
)

// calibration holds the pre-scaled factory coefficient sets. Immutable once
// decoded; the humidity set stays zero on a BMP280.
type calibration struct {
	t [3]float64
	p [9]float64
	h [6]float64
}

// newCalibration decodes the 24 byte block at 0x88: unsigned 16-bit T1,
// signed 16-bit T2 T3, unsigned 16-bit P1, signed 16-bit P2..P9, all
// little-endian.
func newCalibration(tp []byte) calibration {
	var c calibration
	u16 := func(i int) uint16 { return binary.LittleEndian.Uint16(tp[2*i:]) }

	c.t[0] = float64(u16(0))
	c.t[1] = float64(int16(u16(1)))
	c.t[2] = float64(int16(u16(2)))
	for i := range c.t {
		c.t[i] *= math.Exp2(float64(temperatureExponents[i]))
	}

	c.p[0] = float64(u16(3))
	for i := 1; i < 9; i++ {
		c.p[i] = float64(int16(u16(3 + i)))
	}
	for i := range c.p {
		c.p[i] *= math.Exp2(float64(pressureExponents[i]))
	}
	return c
}

// decodeHumidity fills in the BME280 humidity coefficients from the byte at
// 0xa1 (unsigned H1) and the 7 byte block at 0xe1 (signed 16-bit H2,
// unsigned H3, nibble-packed 12-bit H4 and H5, signed H6).
//
// H4 and H5 each spread over 1.5 register bytes: e1[3] holds the 8 MSBs of
// H4, e1[5] the 8 MSBs of H5 and e1[4] carries one low nibble of each.
func (c *calibration) decodeHumidity(h1 byte, e1 []byte) {
	raw := [6]float64{
		float64(h1),
		float64(int16(binary.LittleEndian.Uint16(e1[0:]))),
		float64(e1[2]),
		float64(signExtend12(uint16(e1[3])<<4 | uint16(e1[4])&0xf)),
		float64(signExtend12(uint16(e1[5])<<4 | uint16(e1[4])>>4)),
		float64(int8(e1[6])),
	}
	for i, v := range raw {
		c.h[i] = v * math.Exp2(float64(humidityExponents[i]))
	}
}

// signExtend12 interprets v as a 12-bit two's complement value.
func signExtend12(v uint16) int {
	if v&0x800 != 0 {
		return int(v) - 4096
	}
	return int(v)
}

// compensate converts the raw 20-bit temperature and pressure transfers
// into °C and hPa. The raw values carry 4 padding bits which are shifted
// out first.
//
// The fine resolution temperature tFine is returned for the humidity
// compensation which consumes it within the same measurement cycle.
func (c *calibration) compensate(rawT, rawP uint32) (tC, pHPa, tFine float64) {
	adcT := math.Exp2(-14) * float64(rawT>>4)
	delta := adcT - c.t[0]
	tFine = delta * (c.t[1] + delta*c.t[2])
	// The chip operates from -40 to +85°C; out of range results saturate.
	tC = clamp(tFine/5120.0, -40.0, 85.0)

	adcP := float64(1<<20 - rawP>>4)
	tPress := 0.5*tFine - 64000.0

	p1 := c.p[0] * (1.0 + tPress*(c.p[1]+tPress*c.p[2]))
	p2 := c.p[3] + tPress*(c.p[4]+tPress*c.p[5])

	// p1 is legitimately zero on an unconfigured part with an all-zero
	// coefficient set; report zero pressure instead of dividing.
	if p1 == 0 {
		return tC, 0, tFine
	}
	p3 := (adcP - p2) * 6250.0 / p1
	p3 += p3*(c.p[7]+p3*c.p[8]) + c.p[6]
	return tC, clamp(p3, 300.0e2, 1100.0e2) / 100.0, tFine
}

// compensateHumidity converts the raw 16-bit humidity transfer into %RH.
// Must run after compensate() of the same cycle since it consumes tFine.
func (c *calibration) compensateHumidity(rawH uint16, tFine float64) float64 {
	h1 := tFine - 76800.0
	h2 := c.h[3] + c.h[4]*h1
	h5 := 1.0 + c.h[2]*h1
	h6 := 1.0 + c.h[5]*h1*h5
	v := (float64(rawH) - h2) * c.h[1] * h5 * h6
	v *= 1.0 - c.h[0]*v
	return clamp(v, 0.0, 100.0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
