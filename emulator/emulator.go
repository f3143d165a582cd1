// Package emulator stands in for an unreliable datagram network inside a
// single process. Packets are scheduled with a per-packet lag and may be
// dropped at send time; they are only delivered when the embedding
// application calls Poll.
//
// An Emulator is not safe for concurrent use. It is meant to be driven from
// one update loop.
package emulator

import (
	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/timing"
)

// HookPosPacketSend marks a packet accepted for delivery.
var HookPosPacketSend = &hooking.HookPos{Name: "Packet Send"}

// HookPosPacketDrop marks a packet lost at send time.
var HookPosPacketDrop = &hooking.HookPos{Name: "Packet Drop"}

// HookPosPacketDeliver marks a packet handed to its destination.
var HookPosPacketDeliver = &hooking.HookPos{Name: "Packet Deliver"}

// HookPosPacketDiscard marks a packet that came due for a port nobody
// listens on, or that was cancelled while in flight.
var HookPosPacketDiscard = &hooking.HookPos{Name: "Packet Discard"}

// Stats counts what happened to packets since the last Reset.
type Stats struct {
	Sent      uint64
	Dropped   uint64
	Delivered uint64
	Discarded uint64
}

// Emulator is the virtual network.
type Emulator struct {
	*hooking.HookableBase

	name    string
	ports   map[Port]ReceiveFunc
	queue   *packetQueue
	dropper Dropper

	nextOrder uint64
	now       timing.VTimeInSec
	stats     Stats
}

// Name returns the name of the emulator.
func (e *Emulator) Name() string {
	return e.name
}

// Reset clears every scheduled delivery and port registration.
func (e *Emulator) Reset() {
	e.ports = make(map[Port]ReceiveFunc)
	e.queue = newPacketQueue()
	e.nextOrder = 0
	e.now = 0
	e.stats = Stats{}
}

// RegisterPort binds port to fn. Registering a port again replaces its
// callback.
func (e *Emulator) RegisterPort(port Port, fn ReceiveFunc) {
	if fn == nil {
		panic("emulator: nil receive func")
	}

	e.ports[port] = fn
}

// UnregisterPort unbinds port. Packets still in flight to it are discarded
// when they come due.
func (e *Emulator) UnregisterPort(port Port) {
	delete(e.ports, port)
}

// IsRegistered reports whether a callback is bound to port.
func (e *Emulator) IsRegistered(port Port) bool {
	_, ok := e.ports[port]
	return ok
}

// Send schedules payload from src to dst for delivery at now+lag, unless the
// dropper decides the packet is lost. It reports whether the packet was
// scheduled; the sender of a real datagram would not know, so callers must
// not use the result for protocol decisions. A negative lag is treated as 0.
func (e *Emulator) Send(
	src, dst Port,
	payload []byte,
	lag timing.VTimeInSec,
	dropProbability float64,
	now timing.VTimeInSec,
) bool {
	if lag < 0 {
		lag = 0
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	pkt := &Packet{
		Src:          src,
		Dst:          dst,
		Payload:      data,
		SendTime:     now,
		DeliveryTime: now + lag,
		order:        e.nextOrder,
	}
	e.nextOrder++

	if e.dropper.ShouldDrop(pkt, dropProbability) {
		e.stats.Dropped++
		e.invoke(HookPosPacketDrop, now, pkt)

		return false
	}

	e.stats.Sent++
	e.queue.Push(pkt)
	e.invoke(HookPosPacketSend, now, pkt)

	return true
}

// Poll delivers every packet due at or before now, in delivery time order
// with ties broken by send order. Packets sent from inside a receive callback
// that are already due are delivered by the same call. It returns the number
// of packets handed to receivers.
func (e *Emulator) Poll(now timing.VTimeInSec) int {
	if now > e.now {
		e.now = now
	}

	delivered := 0

	for {
		head := e.queue.Peek()
		if head == nil || head.DeliveryTime > now {
			return delivered
		}

		pkt := e.queue.Pop()

		fn, ok := e.ports[pkt.Dst]
		if !ok {
			e.stats.Discarded++
			e.invoke(HookPosPacketDiscard, pkt.DeliveryTime, pkt)

			continue
		}

		e.stats.Delivered++
		delivered++
		e.invoke(HookPosPacketDeliver, pkt.DeliveryTime, pkt)
		fn(pkt)
	}
}

// CancelBetween drops every in-flight packet travelling between a and b in
// either direction.
func (e *Emulator) CancelBetween(a, b Port) {
	e.cancel(func(p *Packet) bool { return p.between(a, b) })
}

// CancelPort drops every in-flight packet to or from port.
func (e *Emulator) CancelPort(port Port) {
	e.cancel(func(p *Packet) bool { return p.Src == port || p.Dst == port })
}

func (e *Emulator) cancel(match func(*Packet) bool) {
	var cancelled []*Packet

	e.queue.RemoveIf(func(p *Packet) bool {
		if match(p) {
			cancelled = append(cancelled, p)
			return true
		}

		return false
	})

	for _, p := range cancelled {
		e.stats.Discarded++
		e.invoke(HookPosPacketDiscard, e.now, p)
	}
}

// InFlight returns the number of scheduled packets not yet delivered.
func (e *Emulator) InFlight() int {
	return e.queue.Len()
}

// Stats returns the packet counters.
func (e *Emulator) Stats() Stats {
	return e.stats
}

func (e *Emulator) invoke(pos *hooking.HookPos, now timing.VTimeInSec, pkt *Packet) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e,
		Pos:    pos,
		Now:    now,
		Item:   pkt,
	})
}
