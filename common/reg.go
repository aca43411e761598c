// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// ReadReg fills buf from consecutive device registers starting at reg.
func ReadReg(d *i2c.Dev, reg byte, buf []byte) error {
	if err := d.Tx([]byte{reg}, buf); err != nil {
		return fmt.Errorf("read reg 0x%02x: %w", reg, err)
	}
	return nil
}

// ModifyReg performs a masked read-modify-write of len(set) consecutive
// registers starting at reg. Per byte the new value is old&^clear|set. A
// nil clear mask clears all bits, replacing the register content with set.
//
// The write is only issued when the computed value differs from the current
// register content. It returns the number of bytes written, 0 meaning the
// register already held the requested value and no bus write happened.
// Callers use a non-zero result to decide whether a post-configuration
// settle delay is required.
func ModifyReg(d *i2c.Dev, reg byte, set, clear []byte) (int, error) {
	old := make([]byte, len(set))
	if err := ReadReg(d, reg, old); err != nil {
		return 0, err
	}

	w := make([]byte, len(set)+1)
	w[0] = reg
	dirty := false
	for i, s := range set {
		c := byte(0xff)
		if clear != nil {
			c = clear[i]
		}
		w[i+1] = old[i]&^c | s
		if w[i+1] != old[i] {
			dirty = true
		}
	}
	if !dirty {
		return 0, nil
	}
	if err := d.Tx(w, nil); err != nil {
		return 0, fmt.Errorf("write reg 0x%02x: %w", reg, err)
	}
	return len(set), nil
}
