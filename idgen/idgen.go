// Package idgen provides the sequence numbers stamped on outgoing packets and
// the identifiers used to name simulation runs.
package idgen

import "github.com/rs/xid"

// Sequence hands out 16-bit wire sequence numbers. The first value is 1 and
// the counter wraps from 65535 back to 0, so receivers must compare sequence
// numbers with serial arithmetic rather than plain ordering.
type Sequence struct {
	next uint16
}

// Next returns the next sequence number.
func (s *Sequence) Next() uint16 {
	s.next++
	return s.next
}

// Peek returns the number the next call to Next will return.
func (s *Sequence) Peek() uint16 {
	return s.next + 1
}

// RunID returns a globally unique, sortable identifier for a simulation run.
// Unlike Sequence it is not deterministic.
func RunID() string {
	return xid.New().String()
}

// Epoch returns a nonzero 16-bit value naming one connection attempt.
// Successive calls in a process return different values until the counter
// wraps, and the starting point is random, so a restarted process is
// unlikely to repeat the epoch of its predecessor.
func Epoch() uint16 {
	for {
		if e := uint16(xid.New().Counter()); e != 0 {
			return e
		}
	}
}
