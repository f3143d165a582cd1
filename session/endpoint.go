package session

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/idgen"
	"github.com/sarchlab/netsync/timing"
)

// endpoint holds what Host and Client share: the bound port, the outgoing
// queue, the sequence counter and the reliable delivery bookkeeping.
type endpoint struct {
	*hooking.HookableBase
	domain hooking.Hookable

	name      string
	transport Transport
	registry  *codec.Registry
	cfg       Config
	logger    *slog.Logger

	initialized bool
	port        emulator.Port
	gate        *timing.TickGate
	seq         idgen.Sequence
	queue       []Outgoing

	msgListeners []func(*MessageReceived)
}

func newEndpoint(
	name string,
	transport Transport,
	registry *codec.Registry,
	cfg Config,
	logger *slog.Logger,
) endpoint {
	if transport == nil {
		panic("session: transport is required")
	}

	if registry == nil {
		registry = codec.NewRegistry()
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return endpoint{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		transport:    transport,
		registry:     registry,
		cfg:          cfg,
		logger:       logger.With(slog.String("session", name)),
		gate:         timing.NewTickGate(cfg.UpdateFrequency),
	}
}

// Name returns the name of the session manager.
func (e *endpoint) Name() string {
	return e.name
}

// LocalPort returns the port the manager is bound to.
func (e *endpoint) LocalPort() emulator.Port {
	return e.port
}

// Config returns the configuration in use.
func (e *endpoint) Config() Config {
	return e.cfg
}

// Registry returns the message registry used to decode data.
func (e *endpoint) Registry() *codec.Registry {
	return e.registry
}

// Queued returns the number of messages waiting in the send queue.
func (e *endpoint) Queued() int {
	return len(e.queue)
}

// OnMessage registers a listener for decoded data messages. Listeners run
// synchronously during the transport poll, in registration order.
func (e *endpoint) OnMessage(fn func(*MessageReceived)) {
	e.msgListeners = append(e.msgListeners, fn)
}

func (e *endpoint) bind(
	freq timing.Freq,
	port emulator.Port,
	receive emulator.ReceiveFunc,
) {
	if e.initialized {
		e.transport.UnregisterPort(e.port)
	}

	e.cfg.UpdateFrequency = freq
	e.gate = timing.NewTickGate(freq)
	e.port = port
	e.queue = nil
	e.transport.RegisterPort(port, receive)
	e.initialized = true
}

func (e *endpoint) mustBeInitialized() {
	if !e.initialized {
		panic(fmt.Sprintf("session: %s is used before it is initialized", e.name))
	}
}

func (e *endpoint) outgoingMustBeValid(out Outgoing) {
	if out.Class == codec.ClassControl && out.Action < firstApplicationControl {
		panic(fmt.Sprintf(
			"session: control action %d is reserved for the session protocol",
			out.Action,
		))
	}
}

func (e *endpoint) invoke(
	pos *hooking.HookPos,
	now timing.VTimeInSec,
	item, detail any,
) {
	if e.NumHooks() == 0 {
		return
	}

	e.InvokeHook(hooking.HookCtx{
		Domain: e.domain,
		Pos:    pos,
		Now:    now,
		Item:   item,
		Detail: detail,
	})
}

func (e *endpoint) transmit(peer *Peer, pkt []byte, now timing.VTimeInSec) {
	e.transport.Send(e.port, peer.Address, pkt, e.cfg.Lag, e.cfg.DropProbability, now)
	peer.lastSent = now
}

func (e *endpoint) sendControl(
	peer *Peer,
	action uint8,
	seq uint16,
	now timing.VTimeInSec,
) {
	env := codec.Envelope{
		Class:     codec.ClassControl,
		Action:    action,
		Sequence:  seq,
		Timestamp: float64(now),
	}

	e.transmit(peer, codec.Encode(env, nil), now)
}

// sendData stamps out with a fresh sequence number and sends it to peer.
// Reliable messages are retained for resending.
func (e *endpoint) sendData(peer *Peer, out Outgoing, now timing.VTimeInSec) {
	env := codec.Envelope{
		Class:     out.Class,
		Action:    out.Action,
		Sequence:  e.seq.Next(),
		Reliable:  out.Reliable,
		Timestamp: float64(out.Time),
	}
	pkt := codec.Encode(env, out.Payload)

	if out.Reliable {
		peer.track(&pendingReliable{
			seq:       env.Sequence,
			packet:    pkt,
			firstSent: now,
			lastSent:  now,
		})
	}

	e.transmit(peer, pkt, now)
}

// retryReliable resends every reliable message to peer whose retry interval
// has passed and drops the ones that ran out of retries.
func (e *endpoint) retryReliable(peer *Peer, now timing.VTimeInSec) {
	kept := peer.outstanding[:0]

	for _, m := range peer.outstanding {
		if now-m.lastSent < e.cfg.RetryInterval {
			kept = append(kept, m)
			continue
		}

		if m.retries >= e.cfg.MaxRetries {
			e.logger.Debug("Reliable message expired",
				slog.Int("peer", int(peer.Address)),
				slog.Int("seq", int(m.seq)),
				slog.Int("retries", m.retries),
			)
			e.invoke(HookPosReliableExpired, now, peer.info(m), nil)

			continue
		}

		m.retries++
		m.lastSent = now
		e.transmit(peer, m.packet, now)
		e.invoke(HookPosReliableResend, now, peer.info(m), nil)

		kept = append(kept, m)
	}

	for i := len(kept); i < len(peer.outstanding); i++ {
		peer.outstanding[i] = nil
	}

	peer.outstanding = kept
}

func (e *endpoint) keepAlive(peer *Peer, now timing.VTimeInSec) {
	if e.cfg.KeepAliveInterval <= 0 {
		return
	}

	if now-peer.lastSent < e.cfg.KeepAliveInterval {
		return
	}

	e.sendControl(peer, actionKeepAlive, 0, now)
}

func (e *endpoint) handleAck(peer *Peer, seq uint16, now timing.VTimeInSec) {
	m, ok := peer.acknowledge(seq)
	if !ok {
		return
	}

	e.invoke(HookPosReliableAcked, now, peer.info(m), nil)
}

func (e *endpoint) decode(pkt *emulator.Packet) (codec.Envelope, []byte, bool) {
	env, body, err := codec.DecodeEnvelope(pkt.Payload)
	if err != nil {
		e.reject(pkt, err)
		return codec.Envelope{}, nil, false
	}

	return env, body, true
}

func (e *endpoint) reject(pkt *emulator.Packet, err error) {
	e.logger.Debug("Dropping packet",
		slog.Int("src", int(pkt.Src)),
		slog.Int("bytes", len(pkt.Payload)),
		slog.Any("error", err),
	)
	e.invoke(HookPosPacketRejected, pkt.DeliveryTime, pkt, err)
}

// deliverData decodes a data message from peer and hands it to the
// listeners. Reliable messages are acknowledged every time they arrive but
// delivered only once.
func (e *endpoint) deliverData(
	peer *Peer,
	env codec.Envelope,
	body []byte,
	pkt *emulator.Packet,
) {
	msg, err := e.registry.Decode(env, body)
	if err != nil {
		e.reject(pkt, err)
		return
	}

	now := pkt.DeliveryTime

	if env.Reliable {
		e.sendControl(peer, actionAck, env.Sequence, now)

		if peer.markSeen(env.Sequence, now) {
			return
		}
	}

	evt := &MessageReceived{
		Envelope:   env,
		From:       peer,
		ReceivedAt: now,
		Message:    msg,
		Obsolete:   peer.observeDataSeq(env.Sequence),
		body:       body,
	}

	e.invoke(HookPosMessageReceived, now, evt, nil)

	for _, fn := range e.msgListeners {
		fn(evt)
	}
}

func (e *endpoint) isSessionControl(env codec.Envelope) bool {
	return env.Class == codec.ClassControl && env.Action < firstApplicationControl
}
