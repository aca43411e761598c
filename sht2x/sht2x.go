// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sht2x drives the Sensirion SHT20, SHT21 and SHT25 humidity and
// temperature sensors.
//
// The devices speak a command byte protocol instead of addressable
// registers: a measurement command is written, the bus is released for the
// conversion time, then the 3 byte result (16-bit big-endian count plus
// CRC8) is read back. A reading whose checksum does not verify is
// discarded and reported as ChecksumError; no value is produced for that
// cycle.
//
// # Datasheet
//
// https://www.sensirion.com/en/environmental-sensors/humidity-sensors/humidity-temperature-sensor-sht2x-digital-i2c-accurate/
package sht2x

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/kungpfui/i2cmod/common"
)

// DefaultAddress is the fixed I2C address of the SHT2x family.
const DefaultAddress i2c.Addr = 0x40

const (
	cmdMeasureTemperature byte = 0xf3 // no hold master
	cmdMeasureHumidity    byte = 0xf5 // no hold master
	cmdWriteUserRegister  byte = 0xe6
	cmdReadUserRegister   byte = 0xe7
	cmdSoftReset          byte = 0xfe

	// crcSeed is the CRC8 starting value of this family. The SHT3x
	// generation changed it to 0xff.
	crcSeed byte = 0x00

	// Conversion times at the highest resolution, datasheet maximums.
	temperatureDelay = 86 * time.Millisecond // 14 bit
	humidityDelay    = 30 * time.Millisecond // 12 bit
	softResetDelay   = 50 * time.Millisecond

	// The user register's reserved bits 3..5 must not be changed.
	userRegisterReserved byte = 0x38
)

// Serial number read sequence, both halves checksum protected.
var (
	cmdSerialNumber1 = []byte{0xfa, 0x0f}
	cmdSerialNumber2 = []byte{0xfc, 0xc9}
)

// Resolution selects the ADC resolution pair (humidity/temperature bits)
// via the user register.
type Resolution byte

const (
	// RH12T14 is the power-on default.
	RH12T14 Resolution = 0x02
	RH8T12  Resolution = 0x03
	RH10T13 Resolution = 0x82
	RH11T11 Resolution = 0x83
)

// ChecksumError is returned when a measurement transfer fails its CRC
// check. The reading is discarded; there is no measurement for this cycle.
type ChecksumError struct{}

func (e *ChecksumError) Error() string {
	return "sht2x: checksum mismatch, no measurement available"
}

// Dev is a handle to an SHT2x sensor.
type Dev struct {
	d        *i2c.Dev
	crc8     common.CRC8Func
	mu       sync.Mutex
	shutdown chan struct{}
}

// New returns a handle to an SHT2x sensor. The device is soft-reset which
// restores the highest measurement resolution.
func New(b i2c.Bus, addr i2c.Addr) (*Dev, error) {
	dev := &Dev{
		d:    &i2c.Dev{Bus: b, Addr: uint16(addr)},
		crc8: common.CRC8Math,
	}
	if err := dev.Reset(); err != nil {
		return nil, err
	}
	return dev, nil
}

// command writes w, optionally waits delay with the bus released, then
// reads into r when r is not empty.
func (dev *Dev) command(w []byte, r []byte, delay time.Duration) error {
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("sht2x: %w", err)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if len(r) == 0 {
		return nil
	}
	if err := dev.d.Tx(nil, r); err != nil {
		return fmt.Errorf("sht2x: %w", err)
	}
	return nil
}

// measure triggers one no-hold conversion and returns the checksum-gated
// 16-bit count with the status bits zeroed.
func (dev *Dev) measure(cmd byte, delay time.Duration) (uint16, error) {
	r := make([]byte, 3)
	if err := dev.command([]byte{cmd}, r, delay); err != nil {
		return 0, err
	}
	if dev.crc8(r, crcSeed) != 0 {
		return 0, &ChecksumError{}
	}
	// The two LSBs carry status, not measurement data.
	return binary.BigEndian.Uint16(r) & 0xfffc, nil
}

// Temperature runs a single temperature conversion, blocking for up to
// 85ms at 14 bit resolution.
func (dev *Dev) Temperature() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.temperature()
}

func (dev *Dev) temperature() (physic.Temperature, error) {
	count, err := dev.measure(cmdMeasureTemperature, temperatureDelay)
	if err != nil {
		return 0, err
	}
	// T = -46.82 + 175.72 * count / 2^16
	tC := -46.82 + 175.72*float64(count)/65536.0
	return physic.Temperature(tC*float64(physic.Kelvin)) + physic.ZeroCelsius, nil
}

// Humidity runs a single relative humidity conversion, blocking for up to
// 29ms at 12 bit resolution.
func (dev *Dev) Humidity() (physic.RelativeHumidity, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.humidity()
}

func (dev *Dev) humidity() (physic.RelativeHumidity, error) {
	count, err := dev.measure(cmdMeasureHumidity, humidityDelay)
	if err != nil {
		return 0, err
	}
	// RH = -6 + 125 * count / 2^16, saturated to the physical range.
	rh := -6.0 + 125.0*float64(count)/65536.0
	rh = min(max(rh, 0.0), 100.0)
	return physic.RelativeHumidity(rh * float64(physic.PercentRH)), nil
}

// Sense runs one temperature and one humidity conversion. Implements
// physic.SenseEnv. Pressure is always 0.
func (dev *Dev) Sense(e *physic.Env) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.sense(e)
}

func (dev *Dev) sense(e *physic.Env) error {
	e.Pressure = 0
	t, err := dev.temperature()
	if err != nil {
		return err
	}
	h, err := dev.humidity()
	if err != nil {
		return err
	}
	e.Temperature = t
	e.Humidity = h
	return nil
}

// SenseContinuous triggers measurements at the given interval and writes
// them to the returned channel. Implements physic.SenseEnv. Call Halt() to
// terminate.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < temperatureDelay+humidityDelay {
		return nil, fmt.Errorf("sht2x: interval below the %s conversion time", temperatureDelay+humidityDelay)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, fmt.Errorf("sht2x: SenseContinuous already running")
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

// UserRegister returns the content of the user register.
func (dev *Dev) UserRegister() (byte, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.userRegister()
}

func (dev *Dev) userRegister() (byte, error) {
	r := make([]byte, 1)
	if err := dev.command([]byte{cmdReadUserRegister}, r, 0); err != nil {
		return 0, err
	}
	return r[0], nil
}

// SetResolution selects the ADC resolution pair via the user register,
// preserving the reserved bits as required by the datasheet.
func (dev *Dev) SetResolution(res Resolution) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	old, err := dev.userRegister()
	if err != nil {
		return err
	}
	value := old&userRegisterReserved | byte(res)
	if err := dev.command([]byte{cmdWriteUserRegister, value}, nil, 0); err != nil {
		return err
	}
	return nil
}

// SerialNumber reads the factory programmed serial number. Every sub-word
// of the two command transfer carries its own CRC; the result is only
// returned when all of them verify.
func (dev *Dev) SerialNumber() (uint64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	b1 := make([]byte, 8)
	if err := dev.command(cmdSerialNumber1, b1, 0); err != nil {
		return 0, err
	}
	b2 := make([]byte, 6)
	if err := dev.command(cmdSerialNumber2, b2, 0); err != nil {
		return 0, err
	}
	for _, group := range [][]byte{b1[:2], b1[2:4], b1[4:6], b1[6:], b2[:3], b2[3:]} {
		if dev.crc8(group, crcSeed) != 0 {
			return 0, &ChecksumError{}
		}
	}
	sn := []byte{b2[3], b2[4], b1[0], b1[2], b1[4], b1[6], b2[0], b2[1]}
	return binary.BigEndian.Uint64(sn), nil
}

// Reset issues a soft reset and waits until the device is responsive
// again. Measurement resolution falls back to the 12/14 bit default.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command([]byte{cmdSoftReset}, nil, softResetDelay)
}

// Precision returns the smallest change in readings the device can produce
// at the default resolution. Implements physic.SenseEnv.
func (dev *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Humidity = 40 * physic.MilliRH
	e.Pressure = 0
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
	return fmt.Sprintf("sht2x: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
