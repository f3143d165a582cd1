package session

import (
	"log/slog"

	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/idgen"
	"github.com/sarchlab/netsync/timing"
)

// Client is the session manager of an endpoint that connects to one host.
type Client struct {
	endpoint

	remote emulator.Port
	host   *Peer
	state  ConnectionState

	started           bool
	epoch             uint16
	handshakeAttempts int
	lastHandshake     timing.VTimeInSec

	stateListeners []func(StateChange)
}

// NewClient creates a client. InitClient must be called before use. A nil
// registry decodes nothing and a nil logger discards.
func NewClient(
	name string,
	transport Transport,
	registry *codec.Registry,
	cfg Config,
	logger *slog.Logger,
) *Client {
	c := &Client{
		endpoint: newEndpoint(name, transport, registry, cfg, logger),
	}
	c.domain = c

	return c
}

// InitClient binds the client to localPort and points it at the host on
// remotePort. Calling it again rebinds and resets the connection.
func (c *Client) InitClient(
	freq timing.Freq,
	localPort, remotePort emulator.Port,
) {
	c.bind(freq, localPort, c.receive)

	c.remote = remotePort
	c.host = nil
	c.state = StateDisconnected
	c.started = false
	c.handshakeAttempts = 0
}

// ConnectionState returns the state of the connection to the host.
func (c *Client) ConnectionState() ConnectionState {
	return c.state
}

// Host returns the peer record of the host, or nil before Connect.
func (c *Client) Host() *Peer {
	return c.host
}

// RemotePort returns the port of the host.
func (c *Client) RemotePort() emulator.Port {
	return c.remote
}

// Outstanding returns the number of reliable messages waiting for an
// acknowledgment from the host.
func (c *Client) Outstanding() int {
	if c.host == nil {
		return 0
	}

	return c.host.Outstanding()
}

// OnStateChange registers a listener for connection state transitions.
func (c *Client) OnStateChange(fn func(StateChange)) {
	c.stateListeners = append(c.stateListeners, fn)
}

// Connect starts the handshake. It does nothing while connecting or
// connected. A timed out connection must be closed with Disconnect first.
func (c *Client) Connect(now timing.VTimeInSec) {
	c.mustBeInitialized()

	switch c.state {
	case StateConnecting, StateConnected, StateTimedOut:
		return
	}

	c.started = true
	c.epoch = idgen.Epoch()
	c.host = newPeer(c.remote, StateConnecting, now)
	c.host.epoch = c.epoch
	c.handshakeAttempts = 0
	c.setState(StateConnecting, now)
	c.sendHandshake(now)
}

// Disconnect closes the connection, telling the host if it was connected.
// Queued and unacknowledged messages are discarded.
func (c *Client) Disconnect(now timing.VTimeInSec) {
	c.mustBeInitialized()

	if c.host == nil {
		return
	}

	c.transport.CancelBetween(c.port, c.remote)

	if c.state == StateConnected {
		c.sendControl(c.host, actionDisconnect, 0, now)
	}

	c.close(StateDisconnected, now)
}

// PushMessageForSending queues out. It is sent on the first network tick at
// which the client is connected. Messages pushed after the connection failed
// or timed out are dropped.
func (c *Client) PushMessageForSending(out Outgoing) {
	c.mustBeInitialized()
	c.outgoingMustBeValid(out)

	if c.state == StateConnectionFailed || c.state == StateTimedOut {
		c.logger.Debug("Dropping message, connection is closed",
			slog.String("state", c.state.String()),
			slog.Int("action", int(out.Action)),
		)

		return
	}

	c.queue = append(c.queue, out)
}

// Update polls the transport and, on network ticks, runs resends,
// timeouts, the send queue and keep-alives.
func (c *Client) Update(_ timing.VTimeInSec, now timing.VTimeInSec) {
	c.mustBeInitialized()

	if c.cfg.AutoConnect && !c.started {
		c.Connect(now)
	}

	c.transport.Poll(now)

	if !c.gate.Due(now) {
		return
	}

	switch c.state {
	case StateConnecting:
		c.tickConnecting(now)
	case StateConnected:
		c.tickConnected(now)
	}
}

func (c *Client) tickConnecting(now timing.VTimeInSec) {
	if now-c.lastHandshake < c.cfg.HandshakeInterval {
		return
	}

	if c.handshakeAttempts >= c.cfg.MaxHandshakeAttempts {
		c.logger.Warn("Connection failed",
			slog.Int("host", int(c.remote)),
			slog.Int("attempts", c.handshakeAttempts),
		)
		c.transport.CancelBetween(c.port, c.remote)
		c.close(StateConnectionFailed, now)

		return
	}

	c.sendHandshake(now)
}

func (c *Client) tickConnected(now timing.VTimeInSec) {
	c.retryReliable(c.host, now)

	if c.host.inactiveFor(now) > c.cfg.InactivityTimeout {
		c.logger.Info("Host timed out",
			slog.Int("host", int(c.remote)),
			slog.Float64("last_seen", float64(c.host.lastSeen)),
		)
		c.host.state = StateTimedOut
		c.invoke(HookPosPeerTimedOut, now, c.host, nil)
		c.transport.CancelBetween(c.port, c.remote)
		c.close(StateTimedOut, now)

		return
	}

	c.host.forgetSeenBefore(now - c.cfg.dedupWindow())

	for _, out := range c.queue {
		c.sendData(c.host, out, now)
	}
	c.queue = nil

	c.keepAlive(c.host, now)
}

func (c *Client) sendHandshake(now timing.VTimeInSec) {
	c.handshakeAttempts++
	c.lastHandshake = now
	c.sendControl(c.host, actionHandshake, c.epoch, now)
}

// close ends the connection in state. The host record survives a timeout or
// a failure so that it can be inspected.
func (c *Client) close(state ConnectionState, now timing.VTimeInSec) {
	c.queue = nil

	if c.host != nil {
		c.host.clearOutstanding()

		if c.host.state != StateTimedOut {
			c.host.state = StateDisconnected
		}
	}

	if state == StateDisconnected {
		c.host = nil
	}

	c.setState(state, now)
}

func (c *Client) setState(state ConnectionState, now timing.VTimeInSec) {
	if c.state == state {
		return
	}

	change := StateChange{From: c.state, To: state, At: now}
	c.state = state

	c.logger.Debug("Connection state changed",
		slog.String("from", change.From.String()),
		slog.String("to", change.To.String()),
	)
	c.invoke(HookPosStateChange, now, change, nil)

	for _, fn := range c.stateListeners {
		fn(change)
	}
}

func (c *Client) receive(pkt *emulator.Packet) {
	if c.host == nil || pkt.Src != c.remote {
		c.reject(pkt, errUnexpectedSrc)
		return
	}

	env, body, ok := c.decode(pkt)
	if !ok {
		return
	}

	if c.state != StateConnecting && c.state != StateConnected {
		return
	}

	now := pkt.DeliveryTime
	c.host.touch(now)

	if c.isSessionControl(env) {
		c.handleControl(env, pkt)
		return
	}

	if c.state != StateConnected {
		return
	}

	c.deliverData(c.host, env, body, pkt)
}

func (c *Client) handleControl(env codec.Envelope, pkt *emulator.Packet) {
	now := pkt.DeliveryTime

	switch env.Action {
	case actionHandshakeAck:
		if c.state != StateConnecting || env.Sequence != c.epoch {
			return
		}

		c.host.state = StateConnected
		c.host.connectedAt = now
		c.logger.Info("Connected", slog.Int("host", int(c.remote)))
		c.invoke(HookPosPeerConnected, now, c.host, nil)
		c.setState(StateConnected, now)
	case actionAck:
		c.handleAck(c.host, env.Sequence, now)
	case actionKeepAlive:
	case actionDisconnect:
		c.logger.Info("Host closed the connection", slog.Int("host", int(c.remote)))
		c.close(StateDisconnected, now)
	default:
		c.reject(pkt, errUnknownControl)
	}
}
