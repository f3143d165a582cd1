// Package tracing records hook events of a run into a SQLite database so
// that packet flows and session lifecycles can be inspected afterwards.
package tracing

import (
	"fmt"

	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/timing"
)

// Event is one traced hook invocation.
type Event struct {
	Time   timing.VTimeInSec
	Domain string
	Pos    string

	// Src and Dst are ports. Dst is 0 for events that do not have one.
	Src, Dst emulator.Port
	Bytes    int
	Detail   string
}

// EventWriter is where a Tracer sends its events.
type EventWriter interface {
	Write(e Event)
}

// Tracer is a hook that turns hook invocations into events.
type Tracer struct {
	w EventWriter
}

// NewTracer creates a tracer writing into w.
func NewTracer(w EventWriter) *Tracer {
	return &Tracer{w: w}
}

// Func traces one hook invocation.
func (t *Tracer) Func(ctx hooking.HookCtx) {
	e := Event{
		Time: ctx.Now,
		Pos:  ctx.Pos.Name,
	}

	if named, ok := ctx.Domain.(hooking.Named); ok {
		e.Domain = named.Name()
	}

	describe(&e, ctx.Item, ctx.Detail)
	t.w.Write(e)
}

func describe(e *Event, item, detail any) {
	switch it := item.(type) {
	case *emulator.Packet:
		e.Src, e.Dst = it.Src, it.Dst
		e.Bytes = len(it.Payload)

		if err, ok := detail.(error); ok {
			e.Detail = err.Error()
		}
	case *session.MessageReceived:
		e.Src = it.From.Address
		e.Bytes = len(it.Body())
		e.Detail = fmt.Sprintf("action=%d seq=%d reliable=%t",
			it.Envelope.Action, it.Envelope.Sequence, it.Envelope.Reliable)
	case *session.Peer:
		e.Src = it.Address
		e.Detail = fmt.Sprintf("%s since=%g", it.State(), float64(it.ConnectedAt()))

		if reason, ok := detail.(session.RemovalReason); ok {
			e.Detail = reason.String()
		}
	case session.ReliableInfo:
		e.Dst = it.Peer.Address
		e.Detail = fmt.Sprintf("seq=%d retries=%d", it.Sequence, it.Retries)
	case session.StateChange:
		e.Detail = it.From.String() + " -> " + it.To.String()
	}
}
