// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cmod is a collection of drivers for I2C connected sensor ICs:
// humidity/temperature (SHT2x, SHT3x), pressure/temperature (BMP280, BME280),
// daylight (MAX44009, VEML6040) and UV (VEML6075) sensors.
package i2cmod
