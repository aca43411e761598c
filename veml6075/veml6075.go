// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package veml6075 drives the Vishay VEML6075 UV-A/UV-B light sensor.
//
// Besides the two UV channels the device measures two compensation
// channels for visible and infrared noise. Update() auto-ranges the
// integration time; the compensated channel values feed the standard
// UV index and irradiance conversions from the application note.
//
// # Datasheet
//
// https://www.vishay.com/docs/84304/veml6075.pdf
package veml6075

import (
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"

	"github.com/kungpfui/i2cmod/common"
)

// DefaultAddress is the fixed I2C address of the VEML6075.
const DefaultAddress i2c.Addr = 0x10

const (
	regControl byte = 0x00
	regUVA     byte = 0x07
	regUVB     byte = 0x09
	regUVComp1 byte = 0x0a
	regUVComp2 byte = 0x0b
	regID      byte = 0x0c

	// MaxIntegration is the highest integration-time index; each step
	// doubles the exposure starting at 50ms.
	MaxIntegration = 4

	integrationShift = 4
	integrationMask  = 0x7

	settleBase = 55 * time.Millisecond

	overflowCount = 0xffff
	// 80% of half the full scale leaves headroom for the next doubling.
	underflowCount = 1 << 15 * 4 / 5
)

// Visible and infrared compensation coefficients from the application
// note, for the uncoated sensor in open air.
const (
	uvaVisibleComp  = 2.22
	uvaInfraredComp = 1.33
	uvbVisibleComp  = 2.95
	uvbInfraredComp = 1.74
)

// Channel responsivities. The index values are specified at 100ms
// integration, the irradiances at 50ms; both are rescaled to the
// normalized counts at the longest integration time.
const (
	uvaIndexScale = 0.001461 / (1 << (MaxIntegration - 1))
	uvbIndexScale = 0.002591 / (1 << (MaxIntegration - 1))
	uvaPowerScale = 0.93e-2 / (1 << MaxIntegration)
	uvbPowerScale = 2.1e-2 / (1 << MaxIntegration)
)

// Dev is a handle to a VEML6075 sensor.
type Dev struct {
	d  *i2c.Dev
	mu sync.Mutex

	integration int
	// uva, uvb, comp1, comp2 raw counts of the last accepted measurement.
	uv [4]uint16
}

// New returns a handle to a VEML6075 sensor. The current device
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

func (dev *Dev) readWord(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := dev.d.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("veml6075: read reg 0x%02x: %w", reg, err)
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

func (dev *Dev) writeWord(reg byte, value uint16) error {
	if err := dev.d.Tx([]byte{reg, byte(value), byte(value >> 8)}, nil); err != nil {
		return fmt.Errorf("veml6075: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// setIntegration programs the integration time and waits the settle
// delay, skipped when the device already holds the requested index.
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
	for i, reg := range []byte{regUVA, regUVB, regUVComp1, regUVComp2} {
		v, err := dev.readWord(reg)
		if err != nil {
			return nil, err
		}
		channels[i] = v
	}
	return channels, nil
}

// Update measures all four channels, auto-ranging the integration time
// as needed. The channel accessors are valid after the first successful
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
	copy(dev.uv[:], channels)
	return nil
}

// normalize scales a raw count to the longest integration time; up to
// 20 significant bits.
func (dev *Dev) normalize(channel int) uint32 {
	return uint32(dev.uv[channel]) << (MaxIntegration - dev.integration)
}

// UVA returns the normalized count of the UV-A channel.
func (dev *Dev) UVA() uint32 { return dev.normalize(0) }

// UVB returns the normalized count of the UV-B channel.
func (dev *Dev) UVB() uint32 { return dev.normalize(1) }

// UVComp1 returns the normalized count of the visible compensation
// channel.
func (dev *Dev) UVComp1() uint32 { return dev.normalize(2) }

// UVComp2 returns the normalized count of the infrared compensation
// channel.
func (dev *Dev) UVComp2() uint32 { return dev.normalize(3) }

// uvaCalc is the compensated UV-A count, floored at zero.
func (dev *Dev) uvaCalc() float64 {
	c := float64(dev.UVA()) - uvaVisibleComp*float64(dev.UVComp1()) - uvaInfraredComp*float64(dev.UVComp2())
	return max(math.Round(c), 0.0)
}

func (dev *Dev) uvbCalc() float64 {
	c := float64(dev.UVB()) - uvbVisibleComp*float64(dev.UVComp1()) - uvbInfraredComp*float64(dev.UVComp2())
	return max(math.Round(c), 0.0)
}

// UVAIndex returns the UV index contribution of the UV-A channel.
func (dev *Dev) UVAIndex() float64 {
	return uvaIndexScale * dev.uvaCalc()
}

// UVBIndex returns the UV index contribution of the UV-B channel.
func (dev *Dev) UVBIndex() float64 {
	return uvbIndexScale * dev.uvbCalc()
}

// UVIndex returns the UV index, the mean of the UV-A and UV-B
// contributions.
func (dev *Dev) UVIndex() float64 {
	return (dev.UVAIndex() + dev.UVBIndex()) / 2.0
}

// UVAIrradiance returns the UV-A irradiance in W/m².
func (dev *Dev) UVAIrradiance() float64 {
	return uvaPowerScale * dev.uvaCalc()
}

// UVBIrradiance returns the UV-B irradiance in W/m².
func (dev *Dev) UVBIrradiance() float64 {
	return uvbPowerScale * dev.uvbCalc()
}

// ID returns the device identification word, 0x0026.
func (dev *Dev) ID() (uint16, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.readWord(regID)
}

// Integration returns the current integration-time index, 0..4.
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
	return fmt.Sprintf("veml6075: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
