package session

import (
	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/timing"
)

// pendingReliable is a reliable message waiting for its acknowledgment.
type pendingReliable struct {
	seq       uint16
	packet    []byte
	firstSent timing.VTimeInSec
	lastSent  timing.VTimeInSec
	retries   int
}

// ReliableInfo describes a pending reliable message to hooks.
type ReliableInfo struct {
	Peer      *Peer
	Sequence  uint16
	FirstSent timing.VTimeInSec
	Retries   int
}

// Peer is the record a session manager keeps about a remote endpoint. It is
// owned by the manager that created it.
type Peer struct {
	Address emulator.Port

	state       ConnectionState
	epoch       uint16
	connectedAt timing.VTimeInSec
	lastSeen    timing.VTimeInSec
	lastSent    timing.VTimeInSec

	outstanding []*pendingReliable
	seen        map[uint16]timing.VTimeInSec

	lastDataSeq uint16
	hasDataSeq  bool
}

func newPeer(addr emulator.Port, state ConnectionState, now timing.VTimeInSec) *Peer {
	return &Peer{
		Address:     addr,
		state:       state,
		connectedAt: now,
		lastSeen:    now,
		lastSent:    now,
		seen:        make(map[uint16]timing.VTimeInSec),
	}
}

// State returns the connection state of the peer.
func (p *Peer) State() ConnectionState {
	return p.state
}

// LastSeen returns when traffic from the peer was last received.
func (p *Peer) LastSeen() timing.VTimeInSec {
	return p.lastSeen
}

// Epoch returns the value naming the connection attempt the peer record
// belongs to. It is carried in the sequence field of handshakes.
func (p *Peer) Epoch() uint16 {
	return p.epoch
}

// ConnectedAt returns when the peer record was created.
func (p *Peer) ConnectedAt() timing.VTimeInSec {
	return p.connectedAt
}

// Outstanding returns the number of reliable messages to the peer that are
// still waiting for an acknowledgment.
func (p *Peer) Outstanding() int {
	return len(p.outstanding)
}

// OutstandingSequences returns the sequence numbers of the unacknowledged
// reliable messages, oldest first.
func (p *Peer) OutstandingSequences() []uint16 {
	out := make([]uint16, 0, len(p.outstanding))
	for _, m := range p.outstanding {
		out = append(out, m.seq)
	}

	return out
}

func (p *Peer) touch(now timing.VTimeInSec) {
	if now > p.lastSeen {
		p.lastSeen = now
	}
}

func (p *Peer) inactiveFor(now timing.VTimeInSec) timing.VTimeInSec {
	return now - p.lastSeen
}

func (p *Peer) track(m *pendingReliable) {
	p.outstanding = append(p.outstanding, m)
}

// acknowledge forgets the pending message with sequence seq. It reports
// whether one was found.
func (p *Peer) acknowledge(seq uint16) (*pendingReliable, bool) {
	for i, m := range p.outstanding {
		if m.seq != seq {
			continue
		}

		copy(p.outstanding[i:], p.outstanding[i+1:])
		p.outstanding[len(p.outstanding)-1] = nil
		p.outstanding = p.outstanding[:len(p.outstanding)-1]

		return m, true
	}

	return nil, false
}

func (p *Peer) clearOutstanding() {
	p.outstanding = nil
}

// markSeen records a received reliable sequence number and reports whether
// it had already been received.
func (p *Peer) markSeen(seq uint16, now timing.VTimeInSec) bool {
	if _, dup := p.seen[seq]; dup {
		return true
	}

	p.seen[seq] = now

	return false
}

func (p *Peer) forgetSeenBefore(t timing.VTimeInSec) {
	for seq, at := range p.seen {
		if at < t {
			delete(p.seen, seq)
		}
	}
}

// observeDataSeq tracks the newest data sequence number and reports whether
// seq is older than one already received.
func (p *Peer) observeDataSeq(seq uint16) bool {
	if p.hasDataSeq && !codec.SeqNewer(seq, p.lastDataSeq) {
		return true
	}

	p.lastDataSeq = seq
	p.hasDataSeq = true

	return false
}

func (p *Peer) info(m *pendingReliable) ReliableInfo {
	return ReliableInfo{
		Peer:      p,
		Sequence:  m.seq,
		FirstSent: m.firstSent,
		Retries:   m.retries,
	}
}
