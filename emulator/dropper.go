package emulator

import "math/rand"

// A Dropper decides, once per sent packet, whether the packet is lost.
type Dropper interface {
	ShouldDrop(pkt *Packet, probability float64) bool
}

// DropperFunc adapts a function to the Dropper interface.
type DropperFunc func(pkt *Packet, probability float64) bool

// ShouldDrop calls f.
func (f DropperFunc) ShouldDrop(pkt *Packet, probability float64) bool {
	return f(pkt, probability)
}

// RandomDropper drops packets with the requested probability using a
// seedable pseudo-random source. A probability of 0 never drops and a
// probability of 1 always drops.
type RandomDropper struct {
	rng *rand.Rand
}

// NewRandomDropper creates a RandomDropper. The same seed reproduces the same
// sequence of decisions.
func NewRandomDropper(seed int64) *RandomDropper {
	return &RandomDropper{rng: rand.New(rand.NewSource(seed))}
}

// ShouldDrop implements Dropper.
func (d *RandomDropper) ShouldDrop(_ *Packet, probability float64) bool {
	if probability <= 0 {
		return false
	}

	if probability >= 1 {
		return true
	}

	return d.rng.Float64() < probability
}

// ScriptedDropper replays a fixed sequence of decisions, one per packet, and
// then defers to Fallback. A nil Fallback never drops once the script is
// exhausted.
type ScriptedDropper struct {
	Script   []bool
	Fallback Dropper

	next int
}

// ShouldDrop implements Dropper.
func (d *ScriptedDropper) ShouldDrop(pkt *Packet, probability float64) bool {
	if d.next < len(d.Script) {
		drop := d.Script[d.next]
		d.next++

		return drop
	}

	if d.Fallback == nil {
		return false
	}

	return d.Fallback.ShouldDrop(pkt, probability)
}

// Remaining returns the number of scripted decisions not yet used.
func (d *ScriptedDropper) Remaining() int {
	return len(d.Script) - d.next
}
