// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmxx80

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/kungpfui/i2cmod/common"
)

const (
	// DefaultAddress is the default I2C address, 0x77 is the alternative.
	DefaultAddress i2c.Addr = 0x76

	// settleDelay is the wait after the first configuration of a pristine
	// device before readings are valid.
	settleDelay = 4 * time.Second
)

// Opts holds the configuration options.
type Opts struct {
	// Altitude above sea level, used for the sea-level pressure
	// normalization. Must stay below 11km, the upper bound of the
	// barometric formula's troposphere layer.
	Altitude physic.Distance
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Altitude: 500 * physic.Metre}

// Dev is a handle to a BMP280 or BME280 connected over I2C.
//
// The humidity channel is a capability of the device, not a separate type:
// a Dev created with NewBME280 additionally decodes the humidity
// coefficient set and fills physic.Env.Humidity on Sense.
type Dev struct {
	d           *i2c.Dev
	hasHumidity bool
	name        string
	cal         calibration
	seaLevel    float64 // pressure ratio precomputed from Opts.Altitude

	mu       sync.Mutex
	shutdown chan struct{}
}

// NewBMP280 returns a handle to a BMP280 pressure/temperature sensor. The
// device is configured for continuous measurement; when any configuration
// register had to be changed the call blocks for the settle delay.
func NewBMP280(b i2c.Bus, addr i2c.Addr, opts *Opts) (*Dev, error) {
	return newDev(b, addr, opts, false)
}

// NewBME280 returns a handle to a BME280 pressure/temperature/humidity
// sensor.
func NewBME280(b i2c.Bus, addr i2c.Addr, opts *Opts) (*Dev, error) {
	return newDev(b, addr, opts, true)
}

func newDev(b i2c.Bus, addr i2c.Addr, opts *Opts, hasHumidity bool) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev := &Dev{
		d:           &i2c.Dev{Bus: b, Addr: uint16(addr)},
		hasHumidity: hasHumidity,
		name:        "bmp280",
	}
	if hasHumidity {
		dev.name = "bme280"
	}
	if err := dev.setAltitude(opts.Altitude); err != nil {
		return nil, err
	}
	if err := dev.configure(); err != nil {
		return nil, err
	}
	return dev, nil
}

// setAltitude precomputes the measured-to-sea-level pressure ratio from the
// international standard atmosphere model.
func (dev *Dev) setAltitude(altitude physic.Distance) error {
	const (
		g0 = 9.80665    // gravitational acceleration, m/s²
		mM = 0.0289644  // molar mass of air, kg/mol
		r0 = 8.3144598  // universal gas constant, J/(mol·K)
		t0 = 288.15     // sea level standard temperature, K
		l0 = -0.0065    // temperature lapse rate, K/m
	)
	m := float64(altitude) / float64(physic.Metre)
	if m >= 11000.0 {
		return fmt.Errorf("%s: altitude %s outside the troposphere model", dev.name, altitude)
	}
	exponent := g0 * mM / (r0 * l0)
	dev.seaLevel = math.Pow(t0/(t0+l0*m), -exponent)
	return nil
}

// configure verifies the chip identity, decodes the factory calibration and
// writes the sampling configuration. Calibration decoding is all-or-nothing:
// any bus failure aborts construction without a partial coefficient set.
func (dev *Dev) configure() error {
	id := make([]byte, 1)
	if err := common.ReadReg(dev.d, regChipID, id); err != nil {
		return fmt.Errorf("%s: %w", dev.name, err)
	}
	want := chipIDBMP280
	if dev.hasHumidity {
		want = chipIDBME280
	}
	if id[0] != want {
		return fmt.Errorf("%s: unexpected chip ID 0x%02x, want 0x%02x", dev.name, id[0], want)
	}

	tp := make([]byte, 24)
	if err := common.ReadReg(dev.d, regCalibration, tp); err != nil {
		return fmt.Errorf("%s: calibration: %w", dev.name, err)
	}
	dev.cal = newCalibration(tp)

	modified := 0
	if dev.hasHumidity {
		h1 := make([]byte, 1)
		if err := common.ReadReg(dev.d, regCalibrationH1, h1); err != nil {
			return fmt.Errorf("%s: calibration: %w", dev.name, err)
		}
		e1 := make([]byte, 7)
		if err := common.ReadReg(dev.d, regCalibrationH2, e1); err != nil {
			return fmt.Errorf("%s: calibration: %w", dev.name, err)
		}
		dev.cal.decodeHumidity(h1[0], e1)

		// Humidity oversampling only latches on the next write to the
		// control register, so set it first.
		n, err := common.ModifyReg(dev.d, regControlHumidity, []byte{controlHumidityValue}, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", dev.name, err)
		}
		modified += n
	}

	n, err := common.ModifyReg(dev.d, regConfig, []byte{configValue}, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", dev.name, err)
	}
	modified += n
	n, err = common.ModifyReg(dev.d, regControl, []byte{controlValue}, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", dev.name, err)
	}
	modified += n

	// A device that was already configured produces valid data right away.
	if modified > 0 {
		time.Sleep(settleDelay)
	}
	return nil
}

// ChipID returns the chip identification register, 0x58 for a BMP280 and
// 0x60 for a BME280.
func (dev *Dev) ChipID() (byte, error) {
	id := make([]byte, 1)
	if err := common.ReadReg(dev.d, regChipID, id); err != nil {
		return 0, fmt.Errorf("%s: %w", dev.name, err)
	}
	return id[0], nil
}

// Status returns the measurement status register. Bit 3 is set while a
// conversion is running, bit 0 while calibration data is being copied.
func (dev *Dev) Status() (byte, error) {
	s := make([]byte, 1)
	if err := common.ReadReg(dev.d, regStatus, s); err != nil {
		return 0, fmt.Errorf("%s: %w", dev.name, err)
	}
	return s[0], nil
}

// Reset issues a soft reset. The device comes back with its power-on
// defaults, so a new handle is needed afterwards.
func (dev *Dev) Reset() error {
	if err := dev.d.Tx([]byte{regReset, softResetMagic}, nil); err != nil {
		return fmt.Errorf("%s: reset: %w", dev.name, err)
	}
	return nil
}

// Sense reads all channels once and converts them into physical units.
// Implements physic.SenseEnv. Pressure compensation degenerates to zero on
// an all-zero coefficient set instead of failing.
func (dev *Dev) Sense(e *physic.Env) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.sense(e)
}

func (dev *Dev) sense(e *physic.Env) error {
	// Pressure, temperature and (for the BME280) humidity registers are
	// adjacent and read in a single pass so one cycle's values belong to
	// one conversion.
	buf := make([]byte, 8)
	b := buf
	if !dev.hasHumidity {
		b = buf[:6]
	}
	if err := common.ReadReg(dev.d, regPressure, b); err != nil {
		return fmt.Errorf("%s: %w", dev.name, err)
	}
	rawP := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	rawT := uint32(buf[3])<<16 | uint32(buf[4])<<8 | uint32(buf[5])

	tC, pHPa, tFine := dev.cal.compensate(rawT, rawP)
	e.Temperature = physic.Temperature(tC*float64(physic.Kelvin)) + physic.ZeroCelsius
	e.Pressure = physic.Pressure(pHPa * 100.0 * float64(physic.Pascal))

	if dev.hasHumidity {
		rawH := binary.BigEndian.Uint16(buf[6:])
		h := dev.cal.compensateHumidity(rawH, tFine)
		e.Humidity = physic.RelativeHumidity(h * float64(physic.PercentRH))
	} else {
		e.Humidity = 0
	}
	return nil
}

// SenseContinuous reads from the device at the given interval and writes
// the values to the returned channel. Implements physic.SenseEnv. Call
// Halt() to terminate.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < 10*time.Millisecond {
		return nil, errors.New(dev.name + ": invalid interval, minimum 10ms")
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, errors.New(dev.name + ": SenseContinuous already running")
	}
	dev.shutdown = make(chan struct{})
	channel := make(chan physic.Env, 16)
	go func(shutdown <-chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-shutdown:
				close(channel)
				return
			case <-ticker.C:
				e := physic.Env{}
				dev.mu.Lock()
				err := dev.sense(&e)
				dev.mu.Unlock()
				if err == nil && len(channel) < cap(channel) {
					channel <- e
				}
			}
		}
	}(dev.shutdown)
	return channel, nil
}

// SeaLevelPressure normalizes a measured pressure to sea level using the
// altitude given at construction.
func (dev *Dev) SeaLevelPressure(measured physic.Pressure) physic.Pressure {
	return physic.Pressure(float64(measured) * dev.seaLevel)
}

// Precision returns the smallest change in readings the device can
// produce. Implements physic.SenseEnv.
func (dev *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = 180 * physic.MilliPascal
	if dev.hasHumidity {
		e.Humidity = 10 * physic.MilliRH
	} else {
		e.Humidity = 0
	}
}

// Halt terminates a running SenseContinuous. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		close(dev.shutdown)
		dev.shutdown = nil
	}
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s: %s", dev.name, dev.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
