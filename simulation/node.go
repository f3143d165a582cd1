package simulation

import (
	"math"

	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/interp"
	"github.com/sarchlab/netsync/payload"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/timing"
)

// Node is one simulated player: a client session feeding one interpolator
// per replicated entity.
type Node struct {
	Session *session.Client
	Interps []*interp.Interpolator

	player uint8

	// lastSeq holds the newest envelope sequence accepted per entity. The
	// session's Obsolete flag covers every stream from the host, not one
	// entity.
	lastSeq []uint16
	hasSeq  []bool

	transforms   int
	obsolete     int
	commandsSent int
	scores       int
	points       int32

	errorSum float64
	samples  int
}

func (n *Node) handleMessage(m *session.MessageReceived) {
	switch msg := m.Message.(type) {
	case *payload.Transform:
		if int(msg.Entity) >= len(n.Interps) {
			return
		}

		if !n.acceptSeq(msg.Entity, m.Envelope.Sequence) {
			n.obsolete++
			return
		}

		n.transforms++
		n.Interps[msg.Entity].AcceptUpdate(msg.Record(timing.VTimeInSec(m.Envelope.Timestamp)))
	case *payload.Score:
		n.scores++
		n.points = msg.Points
	}
}

// acceptSeq reports whether seq is newer than every sequence already accepted
// for entity, and records it if so.
func (n *Node) acceptSeq(entity uint16, seq uint16) bool {
	if len(n.lastSeq) < len(n.Interps) {
		n.lastSeq = make([]uint16, len(n.Interps))
		n.hasSeq = make([]bool, len(n.Interps))
	}

	if n.hasSeq[entity] && !codec.SeqNewer(seq, n.lastSeq[entity]) {
		return false
	}

	n.lastSeq[entity] = seq
	n.hasSeq[entity] = true

	return true
}

func (n *Node) sendCommand(now timing.VTimeInSec, reliable bool) {
	n.commandsSent++
	n.Session.PushMessageForSending(session.Outgoing{
		Action: payload.ActionCommand,
		Time:   now,
		Payload: &payload.Command{
			Code:   1,
			Target: uint16(n.player),
			Amount: 1,
		},
		Reliable: reliable,
	})
}

func (n *Node) advance(dt timing.VTimeInSec) {
	for _, ip := range n.Interps {
		ip.Update(dt)
	}
}

// measure compares the interpolated positions at the cursor with the true
// positions at the same time.
func (n *Node) measure(w world) {
	for e, ip := range n.Interps {
		if !ip.Started() {
			continue
		}

		entity := uint16(e)
		view := ip.CurrentUpdate()

		x, okX := view.Lookup(payload.Channel(entity, payload.AxisX))
		y, okY := view.Lookup(payload.Channel(entity, payload.AxisY))
		if !okX || !okY {
			continue
		}

		truth := w.transform(entity, view.Time())
		n.errorSum += math.Hypot(x-truth.X, y-truth.Y)
		n.samples++
	}
}

func (n *Node) result() ClientResult {
	r := ClientResult{
		Name:               n.Session.Name(),
		State:              n.Session.ConnectionState(),
		TransformsReceived: n.transforms,
		ObsoleteDiscarded:  n.obsolete,
		CommandsSent:       n.commandsSent,
		ScoresReceived:     n.scores,
		Points:             n.points,
		Outstanding:        n.Session.Outstanding(),
		Samples:            n.samples,
	}

	if n.samples > 0 {
		r.MeanError = n.errorSum / float64(n.samples)
	}

	return r
}
