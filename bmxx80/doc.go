// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bmxx80 drives the Bosch Sensortec BMP280 pressure/temperature
// sensor and the BME280 which adds a relative humidity channel.
//
// Raw ADC counts are converted with the floating point transfer functions
// from the datasheets, using the factory calibration coefficients stored in
// the chip's non-volatile memory. The coefficients are read once at
// construction and pre-scaled by their binary exponents so the per-sample
// math stays small.
//
// # Datasheets
//
// https://ae-bst.resource.bosch.com/media/_tech/media/datasheets/BST-BMP280-DS001-19.pdf
//
// https://ae-bst.resource.bosch.com/media/_tech/media/datasheets/BST-BME280_DS001-12.pdf
package bmxx80
