// Package interp turns timestamped snapshots of numeric channels into a
// signal that can be sampled at any render time.
package interp

import (
	"maps"

	"github.com/sarchlab/netsync/timing"
)

// Channel identifies one scalar quantity, such as one coordinate of one
// entity.
type Channel int

// UpdateRecord is a snapshot of some channels at one point in time. Channels
// absent from Values are unchanged by the record. Records are not modified
// after they are accepted.
type UpdateRecord struct {
	Timestamp timing.VTimeInSec
	Values    map[Channel]float64
}

// FromValues creates a record holding a copy of values.
func FromValues(ts timing.VTimeInSec, values map[Channel]float64) UpdateRecord {
	return UpdateRecord{
		Timestamp: ts,
		Values:    maps.Clone(values),
	}
}

// Has reports whether the record defines ch.
func (r UpdateRecord) Has(ch Channel) bool {
	_, ok := r.Values[ch]
	return ok
}
