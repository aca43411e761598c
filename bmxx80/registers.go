// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmxx80

const (
	regChipID      byte = 0xd0
	regReset       byte = 0xe0
	regStatus      byte = 0xf3
	regControl     byte = 0xf4
	regConfig      byte = 0xf5
	regPressure    byte = 0xf7 // ..0xf9, 20-bit big-endian
	regTemperature byte = 0xfa // ..0xfc, 20-bit big-endian
	regCalibration byte = 0x88 // ..0x9f, little-endian coefficient block

	// BME280 only.
	regControlHumidity byte = 0xf2
	regCalibrationH1   byte = 0xa1
	regCalibrationH2   byte = 0xe1 // ..0xe7
	regHumidity        byte = 0xfd // ..0xfe, 16-bit big-endian

	chipIDBMP280 byte = 0x58
	chipIDBME280 byte = 0x60

	softResetMagic byte = 0xb6

	// config: standby 1000ms, IIR filter coefficient 4.
	configValue byte = 5<<5 | 2<<2
	// control: temperature oversampling x1, pressure oversampling x4,
	// normal mode.
	controlValue byte = 1<<5 | 3<<2 | 3
	// humidity control: oversampling x4.
	controlHumidityValue byte = 3
)
