package timing

// TickGate limits how often a periodic step runs when the caller's update
// loop is faster than the step's frequency. A zero Freq opens the gate on
// every call.
type TickGate struct {
	Freq Freq

	started  bool
	nextTick VTimeInSec
}

// NewTickGate creates a gate that opens at most once per period of freq.
func NewTickGate(freq Freq) *TickGate {
	return &TickGate{Freq: freq}
}

// Due reports whether a tick is due at now. When it is, the gate advances to
// the next tick boundary.
func (g *TickGate) Due(now VTimeInSec) bool {
	if g.Freq <= 0 {
		return true
	}

	if g.started && now < g.nextTick {
		return false
	}

	g.started = true
	g.nextTick = g.Freq.NextTick(now)

	return true
}

// Reset makes the next Due call open the gate unconditionally.
func (g *TickGate) Reset() {
	g.started = false
	g.nextTick = 0
}
