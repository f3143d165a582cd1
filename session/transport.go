package session

import (
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/timing"
)

// Transport moves datagrams between ports. *emulator.Emulator satisfies it.
type Transport interface {
	Send(
		src, dst emulator.Port,
		payload []byte,
		lag timing.VTimeInSec,
		dropProbability float64,
		now timing.VTimeInSec,
	) bool
	Poll(now timing.VTimeInSec) int
	RegisterPort(port emulator.Port, fn emulator.ReceiveFunc)
	UnregisterPort(port emulator.Port)
	CancelBetween(a, b emulator.Port)
}

var _ Transport = (*emulator.Emulator)(nil)
