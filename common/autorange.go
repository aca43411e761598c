// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

// Ranger keeps an optical sensor's raw channel readings inside the usable
// dynamic range by stepping an integration-time index between 0 and
// MaxIndex. A higher index means a longer exposure and therefore larger
// counts.
type Ranger struct {
	// MaxIndex is the highest integration-time index the device supports.
	MaxIndex int
	// Overflow is the saturated raw value. A reading at this value cannot
	// be trusted and forces a shorter integration time.
	Overflow uint16
	// Underflow is the acceptance threshold: when the largest channel stays
	// below it, a longer integration time is tried. 80% of half the full
	// scale leaves headroom for the next doubling.
	Underflow uint16

	// Apply reconfigures the device for the given index and waits the
	// settle delay. Implementations skip the delay when the device already
	// holds the requested index.
	Apply func(index int) error
	// Measure reads all raw channels once.
	Measure func() ([]uint16, error)
}

// Run drives the adjustment loop starting from index start and returns the
// final index together with the accepted raw channel readings.
//
// Per cycle: an overflowed channel steps the index down, a too small
// maximum steps it up, anything else is accepted. The direction is locked
// after the first step so the index moves monotonically; the loop therefore
// measures at most MaxIndex+1 times before a bound stops it, and the index
// never leaves [0, MaxIndex].
func (r *Ranger) Run(start int) (int, []uint16, error) {
	index := min(max(start, 0), r.MaxIndex)
	dir := 0
	for {
		if err := r.Apply(index); err != nil {
			return index, nil, err
		}
		channels, err := r.Measure()
		if err != nil {
			return index, nil, err
		}

		peak := uint16(0)
		for _, c := range channels {
			peak = max(peak, c)
		}

		switch {
		case peak == r.Overflow && dir <= 0 && index > 0:
			dir = -1
			index--
		case peak < r.Underflow && dir >= 0 && index < r.MaxIndex:
			dir = 1
			index++
		default:
			return index, channels, nil
		}
	}
}
