package dht

import (
	"errors"
	"time"
)

// Frame and capture geometry of the single wire protocol. A reading is 40
// bits; each bit occupies two timed slots, the low lead-in and the high
// data phase.
const (
	frameBits  = 40
	frameBytes = 5
	cycleSlots = 2 * frameBits
)

// errSlotTimeout reports a timed slot that never saw its level transition
// within the per-slot budget.
var errSlotTimeout = errors.New("dht: bit slot timed out")

// errChecksum reports a frame whose checksum byte disagrees with the sum
// of the data bytes.
var errChecksum = errors.New("dht: checksum mismatch")

// decodeCycles turns the 80 timed slots of a capture into the 5 frame
// bytes. Each slot pair carries one bit: the low lead-in is the timing
// reference, and a high phase outlasting it reads as 1. A zero duration
// in either slot marks a timeout and fails the whole frame; no partial
// data is returned.
func decodeCycles(cycles *[cycleSlots]time.Duration) ([frameBytes]byte, error) {
	var data [frameBytes]byte
	for i := 0; i < frameBits; i++ {
		low := cycles[2*i]
		high := cycles[2*i+1]
		if low == 0 || high == 0 {
			return [frameBytes]byte{}, errSlotTimeout
		}
		data[i/8] <<= 1
		if high > low {
			data[i/8] |= 1
		}
	}
	return data, nil
}

// checkFrame validates the checksum byte. Byte addition wraps, matching
// the sensor's own 8-bit sum.
func checkFrame(data [frameBytes]byte) error {
	if data[4] != data[0]+data[1]+data[2]+data[3] {
		return errChecksum
	}
	return nil
}
