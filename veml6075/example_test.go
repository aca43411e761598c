// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package veml6075_test

import (
	"log"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/kungpfui/i2cmod/veml6075"
)

// Example shows creating a VEML6075 sensor and reading the UV index
// from it.
func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := veml6075.New(bus, veml6075.DefaultAddress)
	if err != nil {
		log.Fatal(err)
	}

	id, err := dev.ID()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("ID: 0x%04x", id)

	for n := 0; n < 10; n++ {
		if err := dev.Update(); err != nil {
			log.Println(err)
			continue
		}
		log.Printf("UV index: %.2f   UV-A: %.2f W/m²   UV-B: %.2f W/m²",
			dev.UVIndex(), dev.UVAIrradiance(), dev.UVBIrradiance())
		time.Sleep(time.Second)
	}
}
