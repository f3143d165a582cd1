package simulation

import (
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/timing"
)

// Result summarizes a run.
type Result struct {
	ID       string
	Duration timing.VTimeInSec
	Steps    int
	Network  emulator.Stats
	Peers    int

	CommandsReceived int
	Clients          []ClientResult
}

// ClientResult summarizes one client of a run.
type ClientResult struct {
	Name  string
	State session.ConnectionState

	TransformsReceived int
	ObsoleteDiscarded  int
	CommandsSent       int
	ScoresReceived     int
	Points             int32
	Outstanding        int

	// MeanError is the average distance between interpolated and true
	// entity positions over Samples measurements.
	MeanError float64
	Samples   int
}
