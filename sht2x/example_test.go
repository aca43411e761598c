// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht2x_test

import (
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/kungpfui/i2cmod/sht2x"
)

// Example shows creating an SHT21 sensor and reading from it at each
// supported resolution.
func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := sht2x.New(bus, sht2x.DefaultAddress)
	if err != nil {
		log.Fatal(err)
	}

	sn, err := dev.SerialNumber()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Identification: 0x%016x", sn)

	env := &physic.Env{}
	for _, res := range []sht2x.Resolution{sht2x.RH12T14, sht2x.RH8T12, sht2x.RH10T13, sht2x.RH11T11} {
		if err := dev.SetResolution(res); err != nil {
			log.Fatal(err)
		}
		if err := dev.Sense(env); err != nil {
			log.Println(err)
			continue
		}
		log.Printf("Temperature: %s   Humidity: %s", env.Temperature, env.Humidity)
	}
}
