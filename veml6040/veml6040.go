// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package veml6040 drives the Vishay VEML6040 red/green/blue/white light
// sensor.
//
// The sensor exposes four 16-bit channels whose counts depend on the
// programmed integration time. Update() runs an auto-ranging loop that
// steps the integration time until all channels fit the usable dynamic
// range; the exported channel values are normalized to the longest
// integration time so they stay comparable across range changes.
//
// # Datasheet
//
// https://www.vishay.com/docs/84276/veml6040.pdf
package veml6040

import (
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/kungpfui/i2cmod/common"
)

// DefaultAddress is the fixed I2C address of the VEML6040.
const DefaultAddress i2c.Addr = 0x10

const (
	regControl byte = 0x00
	regRed     byte = 0x08
	regGreen   byte = 0x09
	regBlue    byte = 0x0a
	regWhite   byte = 0x0b

	// MaxIntegration is the highest integration-time index; each step
	// doubles the exposure starting at 40ms.
	MaxIntegration = 5

	// Integration-time bits inside the control word.
	integrationShift = 4
	integrationMask  = 0x7

	// Settle delay after a range change, scales with 2^index.
	settleBase = 50 * time.Millisecond

	overflowCount = 0xffff
	// 80% of half the full scale leaves headroom for the next doubling.
	underflowCount = 1 << 15 * 4 / 5
)

// Location selects the RGB to XYZ correlation matrix; artificial light
// needs different coefficients than daylight.
type Location int

const (
	Indoor Location = iota
	Outdoor
)

var colorCorrelation = [...]*mat.Dense{
	Indoor: mat.NewDense(3, 3, []float64{
		-0.023249, 0.291014, -0.364880,
		-0.042799, 0.272148, -0.279591,
		-0.155901, 0.251534, -0.076240,
	}),
	Outdoor: mat.NewDense(3, 3, []float64{
		0.048403, 0.183633, -0.253589,
		0.022916, 0.176388, -0.183205,
		-0.077436, 0.124541, 0.032081,
	}),
}

// Dev is a handle to a VEML6040 sensor.
//
// The integration-time index survives between Update calls so a
// measurement starts from the last known good setting.
type Dev struct {
	d  *i2c.Dev
	mu sync.Mutex

	integration int
	rgbw        [4]uint16
}

// New returns a handle to a VEML6040 sensor. The current device
// integration time is adopted as the starting point for auto-ranging.
func New(b i2c.Bus, addr i2c.Addr) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: uint16(addr)}}

	control, err := dev.readWord(regControl)
	if err != nil {
		return nil, err
	}
	dev.integration = min(int(control>>integrationShift)&integrationMask, MaxIntegration)
	if err := dev.setIntegration(dev.integration); err != nil {
		return nil, err
	}
	return dev, nil
}

// readWord reads a 16-bit SMBus word register, little-endian.
func (dev *Dev) readWord(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := dev.d.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("veml6040: read reg 0x%02x: %w", reg, err)
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

func (dev *Dev) writeWord(reg byte, value uint16) error {
	if err := dev.d.Tx([]byte{reg, byte(value), byte(value >> 8)}, nil); err != nil {
		return fmt.Errorf("veml6040: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// setIntegration programs the integration time and waits the settle delay,
// skipped entirely when the device already holds the requested index. The
// written control word also selects auto mode with the color sensor
// enabled.
func (dev *Dev) setIntegration(index int) error {
	control, err := dev.readWord(regControl)
	if err != nil {
		return err
	}
	if int(control>>integrationShift)&integrationMask == index {
		return nil
	}
	if err := dev.writeWord(regControl, uint16(index)<<integrationShift); err != nil {
		return err
	}
	time.Sleep(settleBase << index)
	return nil
}

func (dev *Dev) readChannels() ([]uint16, error) {
	channels := make([]uint16, 4)
	for i, reg := range []byte{regRed, regGreen, regBlue, regWhite} {
		v, err := dev.readWord(reg)
		if err != nil {
			return nil, err
		}
		channels[i] = v
	}
	return channels, nil
}

// Update measures all four channels, auto-ranging the integration time as
// needed. The channel accessors are valid after the first successful
// Update.
func (dev *Dev) Update() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	ranger := common.Ranger{
		MaxIndex:  MaxIntegration,
		Overflow:  overflowCount,
		Underflow: underflowCount,
		Apply:     dev.setIntegration,
		Measure:   dev.readChannels,
	}
	index, channels, err := ranger.Run(dev.integration)
	if err != nil {
		return err
	}
	dev.integration = index
	copy(dev.rgbw[:], channels)
	return nil
}

// normalize scales a raw count to the longest integration time so values
// from different range settings stay comparable; up to 21 significant
// bits.
func (dev *Dev) normalize(channel int) uint32 {
	return uint32(dev.rgbw[channel]) << (MaxIntegration - dev.integration)
}

// Red returns the normalized count of the red channel.
func (dev *Dev) Red() uint32 { return dev.normalize(0) }

// Green returns the normalized count of the green channel.
func (dev *Dev) Green() uint32 { return dev.normalize(1) }

// Blue returns the normalized count of the blue channel.
func (dev *Dev) Blue() uint32 { return dev.normalize(2) }

// White returns the normalized count of the white channel.
func (dev *Dev) White() uint32 { return dev.normalize(3) }

// Luminance returns the ambient luminance in lux, derived from the green
// channel's sensitivity of 0.25168 lx/count at the longest integration
// time.
func (dev *Dev) Luminance() float64 {
	const scale = 16496.0 / (1 << MaxIntegration) / 65535.0
	return scale * float64(dev.Green())
}

// ColorTemperature estimates the correlated color temperature using the
// McCamy approximation on the CIE chromaticity of the last measurement.
// Degenerate chromaticities (a dark or single-color scene) report the
// nominal 6500K daylight point. The result is saturated to the usable
// 500..10000K range.
func (dev *Dev) ColorTemperature(location Location) physic.Temperature {
	rgb := mat.NewVecDense(3, []float64{
		float64(dev.rgbw[0]),
		float64(dev.rgbw[1]),
		float64(dev.rgbw[2]),
	})
	var xyz mat.VecDense
	xyz.MulVec(colorCorrelation[location], rgb)

	cct := 6500.0
	sum := xyz.AtVec(0) + xyz.AtVec(1) + xyz.AtVec(2)
	if sum != 0 {
		x := xyz.AtVec(0) / sum
		y := xyz.AtVec(1) / sum

		// McCamy: epicenter (0.3320, 0.1858).
		if denom := y - 0.1858; denom != 0 {
			n := (x - 0.3320) / denom
			cct = -449.0*n*n*n + 3525.0*n*n - 6823.3*n + 5520.33
			cct = min(max(cct, 500.0), 10000.0)
		}
	}
	return physic.Temperature(cct * float64(physic.Kelvin))
}

// Integration returns the current integration-time index, 0..5.
func (dev *Dev) Integration() int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.integration
}

// Halt implements conn.Resource; the device has no continuous mode to
// stop.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("veml6040: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
