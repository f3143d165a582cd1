package session

import "github.com/sarchlab/netsync/timing"

// Config holds the tunables of a session manager. Times are virtual seconds.
type Config struct {
	// UpdateFrequency limits how often retries, timeouts, keep-alives and the
	// send queue are processed. Zero processes them on every Update. The
	// transport is polled on every Update regardless.
	UpdateFrequency timing.Freq

	// Lag and DropProbability are the link conditions applied to every packet
	// this endpoint sends.
	Lag             timing.VTimeInSec
	DropProbability float64

	// RetryInterval is the time between resends of an unacknowledged
	// reliable message. MaxRetries bounds the number of resends; the original
	// send is not counted.
	RetryInterval timing.VTimeInSec
	MaxRetries    int

	// InactivityTimeout is how long a connected peer may stay silent.
	InactivityTimeout timing.VTimeInSec

	// HandshakeInterval is the time between client handshake attempts and
	// MaxHandshakeAttempts is the number of attempts, the first included.
	HandshakeInterval    timing.VTimeInSec
	MaxHandshakeAttempts int

	// KeepAliveInterval makes an idle endpoint send a keep-alive after this
	// much time without sending anything to a peer. Zero disables it.
	KeepAliveInterval timing.VTimeInSec

	// AutoConnect makes a client start its handshake on the first Update.
	AutoConnect bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		RetryInterval:        0.2,
		MaxRetries:           5,
		InactivityTimeout:    5,
		HandshakeInterval:    0.5,
		MaxHandshakeAttempts: 10,
		KeepAliveInterval:    1,
		AutoConnect:          true,
	}
}

// dedupWindow is how long received reliable sequence numbers are
// remembered. It covers the full resend schedule of a sender using the same
// configuration, plus a round trip.
func (c Config) dedupWindow() timing.VTimeInSec {
	return c.RetryInterval*timing.VTimeInSec(c.MaxRetries+2) + 2*c.Lag
}
