// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmxx80

import (
	"math"
	"testing"
)

// Datasheet example coefficients: T1=27504, T2=26435, T3=-1000, P1=36477,
// P2=-10685, P3=3024, P4=2855, P5=140, P6=-7, P7=15500, P8=-14600, P9=6000.
var datasheetCalibration = []byte{
	0x70, 0x6b, 0x43, 0x67, 0x18, 0xfc,
	0x7d, 0x8e, 0x45, 0xd6, 0xd0, 0x0b, 0x27, 0x0b, 0x8c, 0x00,
	0xf9, 0xff, 0x8c, 0x3c, 0xf8, 0xc6, 0x70, 0x17,
}

// Synthetic humidity set: H2=655, everything else zero. The compensation
// then collapses to rawH*H2/65536 which is easy to verify.
const (
	humH1 = 0x00
)

var humE1 = []byte{0x8f, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00}

func TestNewCalibrationScaling(t *testing.T) {
	c := newCalibration(datasheetCalibration)

	// Element-wise binary exponent scaling, spot checked per set.
	if c.t[0] != 27504.0/1024.0 {
		t.Errorf("t1=%g expected %g", c.t[0], 27504.0/1024.0)
	}
	if c.t[1] != 26435.0 {
		t.Errorf("t2=%g expected 26435", c.t[1])
	}
	if c.t[2] != -1000.0/64.0 {
		t.Errorf("t3=%g expected %g", c.t[2], -1000.0/64.0)
	}
	if c.p[0] != 36477.0 {
		t.Errorf("p1=%g expected 36477", c.p[0])
	}
	if c.p[3] != 2855.0*16.0 {
		t.Errorf("p4=%g expected %g", c.p[3], 2855.0*16.0)
	}
	if c.p[8] != 6000.0*math.Exp2(-35) {
		t.Errorf("p9=%g expected %g", c.p[8], 6000.0*math.Exp2(-35))
	}
}

// Datasheet example conversion: adc_T=519888, adc_P=415148 must land at
// 25.08°C and roughly 1006.53hPa. The raw transfers carry 4 padding bits.
func TestCompensateDatasheetExample(t *testing.T) {
	c := newCalibration(datasheetCalibration)

	tC, pHPa, tFine := c.compensate(519888<<4, 415148<<4)
	if math.Abs(tC-25.08) > 0.01 {
		t.Errorf("temperature=%g expected 25.08", tC)
	}
	if math.Abs(pHPa-1006.53) > 0.5 {
		t.Errorf("pressure=%g expected ~1006.53", pHPa)
	}
	if math.Abs(tC-tFine/5120.0) > 1e-9 {
		t.Errorf("temperature=%g inconsistent with tFine=%g", tC, tFine)
	}
}

// Temperature saturates at the documented operating range instead of
// reporting out of range values.
func TestCompensateTemperatureClamp(t *testing.T) {
	c := newCalibration(datasheetCalibration)

	if tC, _, _ := c.compensate(0xffffff, 415148<<4); tC != 85.0 {
		t.Errorf("hot saturation=%g expected 85", tC)
	}
	if tC, _, _ := c.compensate(0, 415148<<4); tC != -40.0 {
		t.Errorf("cold saturation=%g expected -40", tC)
	}
}

// An unconfigured part returns an all-zero coefficient set; the pressure
// denominator is then legitimately zero and the output degenerates to the
// zero sentinel instead of a division fault.
func TestCompensateZeroCoefficients(t *testing.T) {
	c := newCalibration(make([]byte, 24))

	tC, pHPa, _ := c.compensate(519888<<4, 415148<<4)
	if pHPa != 0 {
		t.Errorf("pressure=%g expected sentinel 0", pHPa)
	}
	if tC != 0 {
		t.Errorf("temperature=%g expected 0", tC)
	}
}

func TestCompensatePressureClamp(t *testing.T) {
	c := newCalibration(datasheetCalibration)

	// A raw count of zero maps to an absurdly high pressure; the output
	// must saturate at 1100hPa.
	if _, pHPa, _ := c.compensate(519888<<4, 0); pHPa != 1100.0 {
		t.Errorf("pressure=%g expected clamp at 1100", pHPa)
	}
}

func TestSignExtend12(t *testing.T) {
	var tests = []struct {
		in   uint16
		want int
	}{
		{0x000, 0},
		{0x7ff, 2047},
		{0x800, -2048},
		{0xfff, -1},
	}
	for _, test := range tests {
		if got := signExtend12(test.in); got != test.want {
			t.Errorf("signExtend12(0x%03x)=%d expected %d", test.in, got, test.want)
		}
	}
}

// H4 and H5 are 12-bit values nibble-packed across three register bytes.
func TestDecodeHumidityNibblePacking(t *testing.T) {
	var c calibration
	c.decodeHumidity(0x00, []byte{0x00, 0x00, 0x00, 0x12, 0x34, 0x56, 0x00})

	// H4 = 0x12<<4 | 0x34&0xf = 0x124, H5 = 0x56<<4 | 0x34>>4 = 0x563.
	if want := float64(0x124) * 64.0; c.h[3] != want {
		t.Errorf("h4=%g expected %g", c.h[3], want)
	}
	if want := float64(0x563) * math.Exp2(-14); c.h[4] != want {
		t.Errorf("h5=%g expected %g", c.h[4], want)
	}

	// Bit 11 set: sign extension subtracts 4096.
	c.decodeHumidity(0x00, []byte{0x00, 0x00, 0x00, 0x80, 0x00, 0x00, 0x00})
	if want := -2048.0 * 64.0; c.h[3] != want {
		t.Errorf("h4=%g expected %g", c.h[3], want)
	}
}

func TestCompensateHumidity(t *testing.T) {
	var c calibration
	c.decodeHumidity(humH1, humE1)

	// tFine=76800 zeroes the temperature dependent terms.
	h := c.compensateHumidity(5000, 76800.0)
	if math.Abs(h-49.97) > 0.1 {
		t.Errorf("humidity=%g expected ~49.97", h)
	}

	if h := c.compensateHumidity(0xffff, 76800.0); h != 100.0 {
		t.Errorf("humidity=%g expected clamp at 100", h)
	}
	if h := c.compensateHumidity(0, 76800.0); h != 0.0 {
		t.Errorf("humidity=%g expected clamp at 0", h)
	}
}
