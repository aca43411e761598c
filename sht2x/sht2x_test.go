// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht2x

import (
	"errors"
	"math"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const testAddr = uint16(DefaultAddress)

// Playback payloads are chosen so their seed 0x00 CRC bytes are easy to
// derive: crc8(0x00)=0x00, crc8(0xbe)=0xa0, crc8(0x01)=0x31, and feeding
// the checksum byte back always returns the state to zero.
var (
	opReset       = i2ctest.IO{Addr: testAddr, W: []byte{0xfe}}
	opTemperature = []i2ctest.IO{
		{Addr: testAddr, W: []byte{0xf3}},
		{Addr: testAddr, R: []byte{0x00, 0xbe, 0xa0}},
	}
	opHumidity = []i2ctest.IO{
		{Addr: testAddr, W: []byte{0xf5}},
		{Addr: testAddr, R: []byte{0x00, 0x01, 0x31}},
	}
)

func getDev(t *testing.T, ops ...i2ctest.IO) (*Dev, *i2ctest.Playback) {
	bus := &i2ctest.Playback{
		Ops:       append([]i2ctest.IO{opReset}, ops...),
		DontPanic: true,
	}
	dev, err := New(bus, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	return dev, bus
}

func TestTemperature(t *testing.T) {
	dev, bus := getDev(t, opTemperature...)

	temp, err := dev.Temperature()
	if err != nil {
		t.Fatal(err)
	}
	// count = 0x00be & 0xfffc = 188 -> -46.82 + 175.72*188/65536
	want := -46.82 + 175.72*188.0/65536.0
	if got := temp.Celsius(); math.Abs(got-want) > 0.01 {
		t.Errorf("temperature=%g expected %g", got, want)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// A humidity count of ~0 converts to -6%RH which must saturate at the
// physical bound instead of being reported.
func TestHumidityClamp(t *testing.T) {
	dev, bus := getDev(t, opHumidity...)

	rh, err := dev.Humidity()
	if err != nil {
		t.Fatal(err)
	}
	if rh != 0 {
		t.Errorf("humidity=%s expected clamp at 0%%", rh)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// A corrupted transfer is discarded: the call reports ChecksumError and no
// measurement value exists for the cycle.
func TestChecksumMismatch(t *testing.T) {
	dev, _ := getDev(t,
		i2ctest.IO{Addr: testAddr, W: []byte{0xf3}},
		i2ctest.IO{Addr: testAddr, R: []byte{0x00, 0xbe, 0xa1}},
	)

	_, err := dev.Temperature()
	var cerr *ChecksumError
	if !errors.As(err, &cerr) {
		t.Errorf("expected ChecksumError, got %v", err)
	}
}

func TestSense(t *testing.T) {
	ops := append(append([]i2ctest.IO{}, opTemperature...), opHumidity...)
	dev, bus := getDev(t, ops...)

	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if e.Temperature == 0 {
		t.Error("temperature not set")
	}
	if e.Pressure != 0 {
		t.Errorf("pressure=%s expected 0", e.Pressure)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// The reserved user register bits 3..5 must survive a resolution change.
func TestSetResolutionPreservesReservedBits(t *testing.T) {
	dev, bus := getDev(t,
		i2ctest.IO{Addr: testAddr, W: []byte{0xe7}},
		i2ctest.IO{Addr: testAddr, R: []byte{0x3a}},
		// 0x3a&0x38 | 0x83 = 0xbb
		i2ctest.IO{Addr: testAddr, W: []byte{0xe6, 0xbb}},
	)

	if err := dev.SetResolution(RH11T11); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSerialNumber(t *testing.T) {
	dev, bus := getDev(t,
		i2ctest.IO{Addr: testAddr, W: []byte{0xfa, 0x0f}},
		i2ctest.IO{Addr: testAddr, R: []byte{0xbe, 0xa0, 0xbe, 0xa0, 0xbe, 0xa0, 0xbe, 0xa0}},
		i2ctest.IO{Addr: testAddr, W: []byte{0xfc, 0xc9}},
		i2ctest.IO{Addr: testAddr, R: []byte{0x00, 0xbe, 0xa0, 0x00, 0xbe, 0xa0}},
	)

	sn, err := dev.SerialNumber()
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(0x00bebebebebe00be); sn != want {
		t.Errorf("serial=0x%016x expected 0x%016x", sn, want)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSerialNumberChecksum(t *testing.T) {
	dev, _ := getDev(t,
		i2ctest.IO{Addr: testAddr, W: []byte{0xfa, 0x0f}},
		i2ctest.IO{Addr: testAddr, R: []byte{0xbe, 0xa1, 0xbe, 0xa0, 0xbe, 0xa0, 0xbe, 0xa0}},
		i2ctest.IO{Addr: testAddr, W: []byte{0xfc, 0xc9}},
		i2ctest.IO{Addr: testAddr, R: []byte{0x00, 0xbe, 0xa0, 0x00, 0xbe, 0xa0}},
	)

	_, err := dev.SerialNumber()
	var cerr *ChecksumError
	if !errors.As(err, &cerr) {
		t.Errorf("expected ChecksumError, got %v", err)
	}
}

func TestString(t *testing.T) {
	dev, _ := getDev(t)
	if len(dev.String()) == 0 {
		t.Error("string returned empty")
	}
}
