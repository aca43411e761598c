// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmxx80_test

import (
	"log"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/kungpfui/i2cmod/bmxx80"
)

// Example shows creating a BME280 sensor and reading from it.
func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := bmxx80.NewBME280(bus, bmxx80.DefaultAddress, &bmxx80.Opts{Altitude: 414 * physic.Metre})
	if err != nil {
		log.Fatal(err)
	}

	env := &physic.Env{}
	for n := 0; n < 10; n++ {
		if err := dev.Sense(env); err != nil {
			log.Println(err)
		} else {
			log.Printf("Temperature: %s   Pressure: %s (%s at sea level)   Humidity: %s\n",
				env.Temperature, env.Pressure, dev.SeaLevelPressure(env.Pressure), env.Humidity)
		}
		time.Sleep(time.Second)
	}
}
