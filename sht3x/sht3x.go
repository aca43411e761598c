// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sht3x drives the Sensirion SHT30, SHT31 and SHT35 humidity and
// temperature sensors.
//
// Commands are 16-bit words; measurement results come back as two 3 byte
// groups (16-bit big-endian count plus CRC8, seed 0xff). A group that
// fails its checksum discards the whole reading for that cycle.
//
// # Datasheet
//
// https://www.sensirion.com/en/environmental-sensors/humidity-sensors/humidity-temperature-sensor-sht3x-digital-i2c-accurate/
package sht3x

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

// DefaultAddress is the default I2C address, 0x45 is the alternative.
const DefaultAddress i2c.Addr = 0x44

type devCommand []byte

var (
	measureHigh   = devCommand{0x24, 0x00}
	measureMedium = devCommand{0x24, 0x0b}
	measureLow    = devCommand{0x24, 0x16}

	softReset     = devCommand{0x30, 0xa2}
	heaterEnable  = devCommand{0x30, 0x6d}
	heaterDisable = devCommand{0x30, 0x66}
	readStatus    = devCommand{0xf3, 0x2d}
	clearStatus   = devCommand{0x30, 0x41}
)

const crcSeed byte = 0xff

// Repeatability trades conversion time against measurement noise.
type Repeatability int

const (
	High Repeatability = iota
	Medium
	Low
)

var measureCommands = []devCommand{measureHigh, measureMedium, measureLow}

// Datasheet maximum conversion times per repeatability.
var measureDelays = []time.Duration{
	15500 * time.Microsecond,
	6500 * time.Microsecond,
	4500 * time.Microsecond,
}

// StatusWord is the device status register content.
type StatusWord uint16

const (
	StatusAlertPending      StatusWord = 1 << 15
	StatusHeaterEnabled     StatusWord = 1 << 13
	StatusRHTrackingAlert   StatusWord = 1 << 11
	StatusTempTrackingAlert StatusWord = 1 << 10
	StatusSystemReset       StatusWord = 1 << 4
	StatusCommandFailed     StatusWord = 1 << 1
	StatusWriteCRCFailed    StatusWord = 1 << 0
)

// ChecksumError is returned when a transfer fails its CRC check. The
// reading is discarded; there is no measurement for this cycle.
type ChecksumError struct{}

func (e *ChecksumError) Error() string {
	return "sht3x: checksum mismatch, no measurement available"
}

// Opts holds the configuration options.
type Opts struct {
	Repeatability Repeatability
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Repeatability: Medium}

// Dev is a handle to an SHT3x sensor.
type Dev struct {
	d        *i2c.Dev
	opts     Opts
	crc8     common.CRC8Func
	mu       sync.Mutex
	shutdown chan struct{}
}

// New returns a handle to an SHT3x sensor. The device is soft-reset and
// pending status flags are cleared. The Opts can be nil.
func New(b i2c.Bus, addr i2c.Addr, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Repeatability < High || opts.Repeatability > Low {
		return nil, fmt.Errorf("sht3x: invalid repeatability %d", opts.Repeatability)
	}
	dev := &Dev{
		d:    &i2c.Dev{Bus: b, Addr: uint16(addr)},
		opts: *opts,
		crc8: common.CRC8Math,
	}
	if err := dev.Reset(); err != nil {
		return nil, err
	}
	if err := dev.ClearStatus(); err != nil {
		return nil, err
	}
	return dev, nil
}

func (dev *Dev) command(cmd devCommand, r []byte, delay time.Duration) error {
	if err := dev.d.Tx(cmd, nil); err != nil {
		return fmt.Errorf("sht3x: %w", err)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if len(r) == 0 {
		return nil
	}
	if err := dev.d.Tx(nil, r); err != nil {
		return fmt.Errorf("sht3x: %w", err)
	}
	return nil
}

// Sense runs one single-shot conversion at the configured repeatability.
// Implements physic.SenseEnv. Pressure is always 0.
func (dev *Dev) Sense(e *physic.Env) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.sense(e)
}

func (dev *Dev) sense(e *physic.Env) error {
	e.Pressure = 0
	r := make([]byte, 6)
	if err := dev.command(measureCommands[dev.opts.Repeatability], r, measureDelays[dev.opts.Repeatability]); err != nil {
		return err
	}
	if dev.crc8(r[0:3], crcSeed) != 0 || dev.crc8(r[3:6], crcSeed) != 0 {
		return &ChecksumError{}
	}
	rawT := binary.BigEndian.Uint16(r[0:2])
	rawH := binary.BigEndian.Uint16(r[3:5])

	// T = -45 + 175 * count / (2^16 - 1)
	tC := -45.0 + 175.0*float64(rawT)/65535.0
	e.Temperature = physic.Temperature(tC*float64(physic.Kelvin)) + physic.ZeroCelsius

	// RH = 100 * count / (2^16 - 1), saturated to the physical range.
	rh := 100.0 * float64(rawH) / 65535.0
	rh = min(max(rh, 0.0), 100.0)
	e.Humidity = physic.RelativeHumidity(rh * float64(physic.PercentRH))
	return nil
}

// SenseContinuous triggers single-shot measurements at the given interval
// and writes them to the returned channel. Implements physic.SenseEnv.
// Call Halt() to terminate.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < measureDelays[High] {
		return nil, fmt.Errorf("sht3x: interval below the %s conversion time", measureDelays[High])
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.shutdown != nil {
		return nil, fmt.Errorf("sht3x: SenseContinuous already running")
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

// Status returns the checksum-gated device status word.
func (dev *Dev) Status() (StatusWord, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	r := make([]byte, 3)
	if err := dev.command(readStatus, r, 0); err != nil {
		return 0, err
	}
	if dev.crc8(r, crcSeed) != 0 {
		return 0, &ChecksumError{}
	}
	return StatusWord(binary.BigEndian.Uint16(r)), nil
}

// ClearStatus resets the alert and reset tracking flags in the status
// word.
func (dev *Dev) ClearStatus() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command(clearStatus, nil, 0)
}

// SetHeater switches the built-in heater, usable to check the sensor's
// plausibility or to recover from a condensing environment.
func (dev *Dev) SetHeater(on bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	cmd := heaterDisable
	if on {
		cmd = heaterEnable
	}
	return dev.command(cmd, nil, 0)
}

// Reset issues a soft reset.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.command(softReset, nil, 2*time.Millisecond)
}

// Precision returns the smallest change in readings the device can
// produce. Implements physic.SenseEnv.
func (dev *Dev) Precision(e *physic.Env) {
	e.Temperature = 3 * physic.MilliKelvin
	e.Humidity = 2 * physic.MilliRH
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
	return fmt.Sprintf("sht3x: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
