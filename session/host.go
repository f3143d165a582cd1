package session

import (
	"log/slog"
	"sort"

	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/timing"
)

// Host is the session manager of an endpoint that accepts connections from
// any number of clients.
type Host struct {
	endpoint

	peers map[emulator.Port]*Peer

	connectedListeners []func(*Peer)
	removedListeners   []func(*Peer, RemovalReason)
}

// NewHost creates a host. InitHost must be called before use.
func NewHost(
	name string,
	transport Transport,
	registry *codec.Registry,
	cfg Config,
	logger *slog.Logger,
) *Host {
	h := &Host{
		endpoint: newEndpoint(name, transport, registry, cfg, logger),
		peers:    make(map[emulator.Port]*Peer),
	}
	h.domain = h

	return h
}

// InitHost binds the host to localPort. Calling it again rebinds and forgets
// every peer.
func (h *Host) InitHost(freq timing.Freq, localPort emulator.Port) {
	for _, p := range h.peers {
		h.transport.CancelBetween(h.port, p.Address)
	}

	h.bind(freq, localPort, h.receive)
	h.peers = make(map[emulator.Port]*Peer)
}

// Peers returns the connected peers ordered by address.
func (h *Host) Peers() []*Peer {
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Address < peers[j].Address
	})

	return peers
}

// PeerCount returns the number of connected peers.
func (h *Host) PeerCount() int {
	return len(h.peers)
}

// Peer returns the peer at addr, or nil.
func (h *Host) Peer(addr emulator.Port) *Peer {
	return h.peers[addr]
}

// Outstanding returns the number of unacknowledged reliable messages over
// all peers.
func (h *Host) Outstanding() int {
	n := 0
	for _, p := range h.peers {
		n += p.Outstanding()
	}

	return n
}

// OnPeerConnected registers a listener called when a new peer completes its
// first handshake.
func (h *Host) OnPeerConnected(fn func(*Peer)) {
	h.connectedListeners = append(h.connectedListeners, fn)
}

// OnPeerRemoved registers a listener called when a peer is dropped.
func (h *Host) OnPeerRemoved(fn func(*Peer, RemovalReason)) {
	h.removedListeners = append(h.removedListeners, fn)
}

// RemovePeer drops the peer at addr, telling it so. Packets still in flight
// between the host and the peer are cancelled. It reports whether the peer
// existed.
func (h *Host) RemovePeer(addr emulator.Port, now timing.VTimeInSec) bool {
	h.mustBeInitialized()

	p, ok := h.peers[addr]
	if !ok {
		return false
	}

	h.removePeer(p, RemovedByHost, now)
	h.sendControl(p, actionDisconnect, 0, now)

	return true
}

// PushMessageForSending queues out for the next network tick. The message
// must name a target or be a broadcast.
func (h *Host) PushMessageForSending(out Outgoing) {
	h.mustBeInitialized()
	h.outgoingMustBeValid(out)

	if !out.Broadcast && out.Target == nil {
		panic("session: host message has neither a target nor broadcast")
	}

	h.queue = append(h.queue, out)
}

// Update polls the transport and, on network ticks, runs resends, peer
// timeouts, the send queue and keep-alives.
func (h *Host) Update(_ timing.VTimeInSec, now timing.VTimeInSec) {
	h.mustBeInitialized()

	h.transport.Poll(now)

	if !h.gate.Due(now) {
		return
	}

	peers := h.Peers()

	for _, p := range peers {
		h.retryReliable(p, now)
	}

	for _, p := range peers {
		if p.inactiveFor(now) <= h.cfg.InactivityTimeout {
			continue
		}

		h.logger.Info("Peer timed out",
			slog.Int("peer", int(p.Address)),
			slog.Float64("last_seen", float64(p.lastSeen)),
		)
		p.state = StateTimedOut
		h.invoke(HookPosPeerTimedOut, now, p, nil)
		h.removePeer(p, RemovedTimedOut, now)
	}

	h.drainQueue(now)

	for _, p := range h.Peers() {
		p.forgetSeenBefore(now - h.cfg.dedupWindow())
		h.keepAlive(p, now)
	}
}

func (h *Host) drainQueue(now timing.VTimeInSec) {
	queue := h.queue
	h.queue = nil

	for _, out := range queue {
		if out.Broadcast {
			for _, p := range h.Peers() {
				h.sendData(p, out, now)
			}

			continue
		}

		if h.peers[out.Target.Address] != out.Target {
			h.logger.Debug("Dropping message for removed peer",
				slog.Int("peer", int(out.Target.Address)),
				slog.Int("action", int(out.Action)),
			)

			continue
		}

		h.sendData(out.Target, out, now)
	}
}

func (h *Host) removePeer(p *Peer, reason RemovalReason, now timing.VTimeInSec) {
	delete(h.peers, p.Address)
	h.transport.CancelBetween(h.port, p.Address)
	p.clearOutstanding()

	if p.state != StateTimedOut {
		p.state = StateDisconnected
	}

	h.logger.Debug("Peer removed",
		slog.Int("peer", int(p.Address)),
		slog.String("reason", reason.String()),
	)
	h.invoke(HookPosPeerRemoved, now, p, reason)

	for _, fn := range h.removedListeners {
		fn(p, reason)
	}
}

func (h *Host) receive(pkt *emulator.Packet) {
	env, body, ok := h.decode(pkt)
	if !ok {
		return
	}

	now := pkt.DeliveryTime
	peer := h.peers[pkt.Src]

	if env.Class == codec.ClassControl && env.Action == actionHandshake {
		h.acceptHandshake(peer, pkt.Src, env.Sequence, now)
		return
	}

	if peer == nil {
		h.reject(pkt, errUnknownPeer)
		return
	}

	peer.touch(now)

	if !h.isSessionControl(env) {
		h.deliverData(peer, env, body, pkt)
		return
	}

	switch env.Action {
	case actionAck:
		h.handleAck(peer, env.Sequence, now)
	case actionKeepAlive, actionHandshakeAck:
	case actionDisconnect:
		h.logger.Info("Peer disconnected", slog.Int("peer", int(peer.Address)))
		h.removePeer(peer, RemovedDisconnected, now)
	default:
		h.reject(pkt, errUnknownControl)
	}
}

func (h *Host) acceptHandshake(
	peer *Peer,
	addr emulator.Port,
	epoch uint16,
	now timing.VTimeInSec,
) {
	if peer != nil && peer.epoch == epoch {
		peer.touch(now)
		h.sendControl(peer, actionHandshakeAck, epoch, now)

		return
	}

	// A new epoch from a known address is a new connection attempt. The old
	// record holds sequence numbers the new sender will reuse.
	if peer != nil {
		h.logger.Info("Peer reconnected",
			slog.Int("peer", int(addr)),
			slog.Int("old_epoch", int(peer.epoch)),
			slog.Int("epoch", int(epoch)),
		)
		h.removePeer(peer, RemovedReconnected, now)
	}

	peer = newPeer(addr, StateConnected, now)
	peer.epoch = epoch
	h.peers[addr] = peer
	h.sendControl(peer, actionHandshakeAck, epoch, now)

	h.logger.Info("Peer connected", slog.Int("peer", int(addr)))
	h.invoke(HookPosPeerConnected, now, peer, nil)

	for _, fn := range h.connectedListeners {
		fn(peer)
	}
}
