// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package max44009 drives the Maxim Integrated MAX44009 ambient light
// sensor.
//
// The device converts continuously with automatic ranging and exposes
// the luminance as an 8-bit mantissa with a 4-bit exponent spread over
// two registers. The two registers cannot be read atomically over SMBus,
// so the readout re-reads the exponent register until a consistent pair
// is seen.
//
// # Datasheet
//
// https://datasheets.maximintegrated.com/en/ds/MAX44009.pdf
package max44009

import (
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"

	"github.com/kungpfui/i2cmod/common"
)

// DefaultAddress is the default I2C address, 0x4b is the alternative.
const DefaultAddress i2c.Addr = 0x4a

const (
	regInterruptStatus byte = 0x00
	regInterruptEnable byte = 0x01
	regConfiguration   byte = 0x02
	regLuminanceMSB    byte = 0x03
	regLuminanceLSB    byte = 0x04
	regUpperThreshold  byte = 0x05
	regLowerThreshold  byte = 0x06
	regThresholdTimer  byte = 0x07

	// Continuous mode on, manual ranging off.
	configSet   byte = 0x80
	configClear byte = 0xc0

	// A read torn by concurrent conversions is retried; the conversion
	// time is 100ms so a handful of attempts is plenty.
	readAttempts = 5
)

// Dev is a handle to a MAX44009 sensor.
type Dev struct {
	d  *i2c.Dev
	mu sync.Mutex
}

// New returns a handle to a MAX44009 sensor, configured for continuous
// conversions with automatic ranging. The configuration register is only
// written when it does not hold that mode already.
func New(b i2c.Bus, addr i2c.Addr) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: b, Addr: uint16(addr)}}
	if _, err := common.ModifyReg(dev.d, regConfiguration, []byte{configSet}, []byte{configClear}); err != nil {
		return nil, fmt.Errorf("max44009: %w", err)
	}
	return dev, nil
}

// Luminance returns the ambient luminance in lux, 0.045 to 188006 lx
// with a resolution of 0.045 lx at the low end.
func (dev *Dev) Luminance() (float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	buf := make([]byte, 1)
	var msb, lsb byte
	for attempt := 0; ; attempt++ {
		if err := common.ReadReg(dev.d, regLuminanceMSB, buf); err != nil {
			return 0, fmt.Errorf("max44009: %w", err)
		}
		msb = buf[0]
		if err := common.ReadReg(dev.d, regLuminanceLSB, buf); err != nil {
			return 0, fmt.Errorf("max44009: %w", err)
		}
		lsb = buf[0]
		if err := common.ReadReg(dev.d, regLuminanceMSB, buf); err != nil {
			return 0, fmt.Errorf("max44009: %w", err)
		}
		if buf[0] == msb {
			break
		}
		if attempt >= readAttempts {
			return 0, fmt.Errorf("max44009: no stable reading after %d attempts", readAttempts)
		}
	}

	exponent := msb >> 4
	mantissa := msb&0x0f<<4 | lsb&0x0f
	return math.Exp2(float64(exponent)) * float64(mantissa) * 0.045, nil
}

// Halt implements conn.Resource; the device free-runs at 1µA, there is
// nothing worth stopping.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("max44009: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
