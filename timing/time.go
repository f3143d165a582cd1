// Package timing defines the virtual clock shared by the transport emulator,
// the session managers and the interpolator.
package timing

import (
	"log"
	"math"
)

// VTimeInSec is a point on the virtual timeline, in seconds. The embedding
// application supplies it; nothing in this module reads a wall clock.
type VTimeInSec float64

// Freq is a rate in ticks per virtual second.
type Freq float64

// Units of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
)

// Period returns the time between two consecutive ticks.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("timing: frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// ThisTick returns the tick time at or right after now.
//
//	               Input
//	               (          ]
//	    |----------|----------|----------|----->
//	                          |
//	                          Output
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	mustBeValidTime(now)

	count := math.Ceil(math.Round(float64(now)*10*float64(f)) / 10)

	return VTimeInSec(count / float64(f))
}

// NextTick returns the first tick time strictly after now.
//
//	               Input
//	               [          )
//	    |----------|----------|----------|----->
//	                          |
//	                          Output
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	mustBeValidTime(now)

	count := math.Floor(math.Round(float64(now)*10*float64(f)) / 10)

	return VTimeInSec((count + 1) / float64(f))
}

func mustBeValidTime(t VTimeInSec) {
	if math.IsNaN(float64(t)) {
		log.Panic("timing: invalid time")
	}
}
