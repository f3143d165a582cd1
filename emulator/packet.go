package emulator

import "github.com/sarchlab/netsync/timing"

// Port is a logical endpoint address on the virtual network.
type Port uint16

// ReceiveFunc is invoked when a packet is delivered to a registered port.
// The packet must not be modified or retained past the call.
type ReceiveFunc func(pkt *Packet)

// Packet is a datagram in flight. It is immutable once scheduled.
type Packet struct {
	Src, Dst     Port
	Payload      []byte
	SendTime     timing.VTimeInSec
	DeliveryTime timing.VTimeInSec

	// order is the send order, used to break ties between packets that share
	// a delivery time.
	order uint64
}

// Order returns the position of the packet in the emulator's send order.
func (p *Packet) Order() uint64 {
	return p.order
}

// Lag returns the delay applied to the packet.
func (p *Packet) Lag() timing.VTimeInSec {
	return p.DeliveryTime - p.SendTime
}

func (p *Packet) between(a, b Port) bool {
	return (p.Src == a && p.Dst == b) || (p.Src == b && p.Dst == a)
}
