package simulation

import (
	"math"

	"github.com/sarchlab/netsync/payload"
	"github.com/sarchlab/netsync/timing"
)

// world is the authoritative state the host replicates. Entities move on a
// circle, evenly spaced, so the true position at any time is known and
// clients can be scored against it.
type world struct {
	entities int
	radius   float64
	speed    float64
}

func (w world) transform(entity uint16, t timing.VTimeInSec) payload.Transform {
	phase := 2 * math.Pi * float64(entity) / float64(w.entities)
	angle := w.speed*float64(t) + phase

	return payload.Transform{
		Entity:   entity,
		X:        w.radius * math.Cos(angle),
		Y:        w.radius * math.Sin(angle),
		Rotation: angle,
	}
}
