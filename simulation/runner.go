// Package simulation runs a host and a set of clients over the emulated
// network in one cooperative loop.
package simulation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/payload"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/timing"
)

// Runner advances a scenario step by step. Step and Run may be paused from
// another goroutine, such as the monitoring server.
type Runner struct {
	id string

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	stateLock sync.Mutex

	nowLock sync.RWMutex
	now     timing.VTimeInSec

	dt    timing.VTimeInSec
	steps int

	net   *emulator.Emulator
	host  *session.Host
	nodes []*Node
	world world

	sendGate    *timing.TickGate
	commandGate *timing.TickGate
	reliable    bool

	commandsReceived int
	hostPoints       map[emulator.Port]int32
	round            uint16

	stepListeners []func(now timing.VTimeInSec)

	logger *slog.Logger
}

// ID returns the unique id of the run.
func (r *Runner) ID() string {
	return r.id
}

// Network returns the emulator.
func (r *Runner) Network() *emulator.Emulator {
	return r.net
}

// Host returns the host session.
func (r *Runner) Host() *session.Host {
	return r.host
}

// Nodes returns the clients.
func (r *Runner) Nodes() []*Node {
	return r.nodes
}

// Now returns the virtual time of the next step.
func (r *Runner) Now() timing.VTimeInSec {
	r.nowLock.RLock()
	defer r.nowLock.RUnlock()

	return r.now
}

func (r *Runner) setNow(t timing.VTimeInSec) {
	r.nowLock.Lock()
	r.now = t
	r.nowLock.Unlock()
}

// OnStep registers a function called after every step.
func (r *Runner) OnStep(fn func(now timing.VTimeInSec)) {
	r.stepListeners = append(r.stepListeners, fn)
}

// Pause blocks further steps until Continue is called.
func (r *Runner) Pause() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if r.isPaused {
		return
	}

	r.pauseLock.Lock()
	r.isPaused = true
}

// Continue lets paused steps proceed.
func (r *Runner) Continue() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if !r.isPaused {
		return
	}

	r.pauseLock.Unlock()
	r.isPaused = false
}

// Paused reports whether the runner is paused.
func (r *Runner) Paused() bool {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	return r.isPaused
}

// Step runs one frame: the host broadcasts the world when its send rate
// allows, then the host and every client update and the clients'
// interpolators advance.
func (r *Runner) Step() {
	r.pauseLock.Lock()
	defer r.pauseLock.Unlock()

	r.stateLock.Lock()
	now := r.Now()

	if r.sendGate.Due(now) && r.host.PeerCount() > 0 {
		r.broadcastWorld(now)
	}

	r.host.Update(r.dt, now)

	sendCommands := r.commandGate != nil && r.commandGate.Due(now)

	for _, n := range r.nodes {
		if sendCommands && n.Session.ConnectionState() == session.StateConnected {
			n.sendCommand(now, r.reliable)
		}

		n.Session.Update(r.dt, now)
		n.advance(r.dt)
		n.measure(r.world)
	}

	r.steps++
	r.setNow(timing.VTimeInSec(r.steps) * r.dt)
	r.stateLock.Unlock()

	for _, fn := range r.stepListeners {
		fn(now)
	}
}

// Run steps until the virtual time reaches duration or ctx is done.
func (r *Runner) Run(ctx context.Context, duration timing.VTimeInSec) error {
	r.logger.Info("Simulation started",
		slog.String("id", r.id),
		slog.Float64("duration", float64(duration)),
		slog.Int("clients", len(r.nodes)),
	)

	for r.Now() < duration {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.Step()
	}

	r.logger.Info("Simulation finished",
		slog.String("id", r.id),
		slog.Int("steps", r.steps),
	)

	return nil
}

// StepsFor returns the number of steps Run takes to reach duration.
func (r *Runner) StepsFor(duration timing.VTimeInSec) int {
	n := 0
	for timing.VTimeInSec(n)*r.dt < duration {
		n++
	}

	return n
}

func (r *Runner) broadcastWorld(now timing.VTimeInSec) {
	for e := 0; e < r.world.entities; e++ {
		t := r.world.transform(uint16(e), now)

		r.host.PushMessageForSending(session.Outgoing{
			Action:    payload.ActionTransform,
			Time:      now,
			Payload:   &t,
			Broadcast: true,
		})
	}
}

func (r *Runner) handleHostMessage(m *session.MessageReceived) {
	cmd, ok := m.Message.(*payload.Command)
	if !ok {
		return
	}

	if r.hostPoints == nil {
		r.hostPoints = make(map[emulator.Port]int32)
	}

	r.commandsReceived++
	r.hostPoints[m.From.Address] += cmd.Amount
	r.round++

	r.host.PushMessageForSending(session.Outgoing{
		Action: payload.ActionScore,
		Time:   m.ReceivedAt,
		Payload: &payload.Score{
			Player: uint8(cmd.Target),
			Round:  r.round,
			Points: r.hostPoints[m.From.Address],
		},
		Reliable: r.reliable,
		Target:   m.From,
	})
}

// Result summarizes the run so far.
func (r *Runner) Result() Result {
	r.stateLock.Lock()
	defer r.stateLock.Unlock()

	res := Result{
		ID:               r.id,
		Duration:         r.Now(),
		Steps:            r.steps,
		Network:          r.net.Stats(),
		Peers:            r.host.PeerCount(),
		CommandsReceived: r.commandsReceived,
	}

	for _, n := range r.nodes {
		res.Clients = append(res.Clients, n.result())
	}

	return res
}

// SessionNames lists the host and clients by name.
func (r *Runner) SessionNames() []string {
	names := []string{r.host.Name()}
	for _, n := range r.nodes {
		names = append(names, n.Session.Name())
	}

	return names
}

// Inspect calls fn with the named session while no step is running. It
// reports whether the session exists.
func (r *Runner) Inspect(name string, fn func(any)) bool {
	r.stateLock.Lock()
	defer r.stateLock.Unlock()

	if name == r.host.Name() {
		fn(r.host)
		return true
	}

	for _, n := range r.nodes {
		if n.Session.Name() == name {
			fn(n.Session)
			return true
		}
	}

	return false
}
