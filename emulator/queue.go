package emulator

import "container/heap"

// packetQueue orders in-flight packets by delivery time, then by send order.
type packetQueue struct {
	packets packetHeap
}

func newPacketQueue() *packetQueue {
	q := &packetQueue{packets: make(packetHeap, 0)}
	heap.Init(&q.packets)

	return q
}

func (q *packetQueue) Push(p *Packet) {
	heap.Push(&q.packets, p)
}

func (q *packetQueue) Pop() *Packet {
	if q.packets.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.packets).(*Packet)
}

func (q *packetQueue) Peek() *Packet {
	if q.packets.Len() == 0 {
		return nil
	}

	return q.packets[0]
}

func (q *packetQueue) Len() int {
	return q.packets.Len()
}

// RemoveIf drops every packet for which drop returns true and returns how
// many were removed.
func (q *packetQueue) RemoveIf(drop func(*Packet) bool) int {
	kept := q.packets[:0]
	removed := 0

	for _, p := range q.packets {
		if drop(p) {
			removed++
			continue
		}

		kept = append(kept, p)
	}

	for i := len(kept); i < len(q.packets); i++ {
		q.packets[i] = nil
	}

	q.packets = kept
	heap.Init(&q.packets)

	return removed
}

type packetHeap []*Packet

func (h packetHeap) Len() int { return len(h) }

func (h packetHeap) Less(i, j int) bool {
	if h[i].DeliveryTime != h[j].DeliveryTime {
		return h[i].DeliveryTime < h[j].DeliveryTime
	}

	return h[i].order < h[j].order
}

func (h packetHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *packetHeap) Push(x any) {
	*h = append(*h, x.(*Packet))
}

func (h *packetHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return p
}
