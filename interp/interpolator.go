package interp

import (
	"maps"
	"sort"

	"github.com/sarchlab/netsync/timing"
)

// Options configures an Interpolator.
type Options struct {
	// Delay is how far the render cursor trails the newest record.
	Delay timing.VTimeInSec

	// SnapThreshold, when positive, makes the cursor jump forward once it
	// falls more than this far behind its target of newest minus Delay.
	SnapThreshold timing.VTimeInSec
}

// Interpolator buffers update records in timestamp order and samples them
// at a render cursor.
type Interpolator struct {
	opts Options

	records  []UpdateRecord
	baseline map[Channel]float64

	started bool
	cursor  timing.VTimeInSec
}

// New creates an empty interpolator.
func New(opts Options) *Interpolator {
	return &Interpolator{
		opts:     opts,
		baseline: make(map[Channel]float64),
	}
}

// AcceptUpdate inserts rec at its timestamp position. Records with equal
// timestamps keep their arrival order. Once the cursor has reached the
// oldest retained record, anything older than it is discarded. It reports
// whether the record was kept.
func (ip *Interpolator) AcceptUpdate(rec UpdateRecord) bool {
	if ip.isStale(rec.Timestamp) {
		return false
	}

	i := sort.Search(len(ip.records), func(i int) bool {
		return ip.records[i].Timestamp > rec.Timestamp
	})

	ip.records = append(ip.records, UpdateRecord{})
	copy(ip.records[i+1:], ip.records[i:])
	ip.records[i] = rec

	return true
}

func (ip *Interpolator) isStale(ts timing.VTimeInSec) bool {
	if !ip.started || len(ip.records) == 0 {
		return false
	}

	oldest := ip.records[0].Timestamp

	return ts < oldest && oldest <= ip.cursor
}

// Update advances the render cursor by deltaTime. The first Update after a
// record arrives places the cursor Delay behind the newest record instead.
// Records no longer needed to bracket the cursor are folded into the held
// baseline.
func (ip *Interpolator) Update(deltaTime timing.VTimeInSec) {
	if !ip.started {
		if len(ip.records) == 0 {
			return
		}

		ip.started = true
		ip.cursor = ip.target()
	} else {
		ip.cursor += deltaTime
	}

	if ip.opts.SnapThreshold > 0 && len(ip.records) > 0 {
		if ip.target()-ip.cursor > ip.opts.SnapThreshold {
			ip.cursor = ip.target()
		}
	}

	ip.evict()
}

func (ip *Interpolator) target() timing.VTimeInSec {
	return ip.records[len(ip.records)-1].Timestamp - ip.opts.Delay
}

// evict drops every record before the last one at or before the cursor.
func (ip *Interpolator) evict() {
	n := sort.Search(len(ip.records), func(i int) bool {
		return ip.records[i].Timestamp > ip.cursor
	}) - 1
	if n <= 0 {
		return
	}

	for _, rec := range ip.records[:n] {
		maps.Copy(ip.baseline, rec.Values)
	}

	remaining := copy(ip.records, ip.records[n:])
	clear(ip.records[remaining:])
	ip.records = ip.records[:remaining]
}

// Cursor returns the render time.
func (ip *Interpolator) Cursor() timing.VTimeInSec {
	return ip.cursor
}

// SetCursor moves the render time to t and marks the interpolator started.
func (ip *Interpolator) SetCursor(t timing.VTimeInSec) {
	ip.started = true
	ip.cursor = t
	ip.evict()
}

// Started reports whether the cursor has been placed.
func (ip *Interpolator) Started() bool {
	return ip.started
}

// Len returns the number of buffered records.
func (ip *Interpolator) Len() int {
	return len(ip.records)
}

// Records returns a copy of the buffered records in timestamp order.
func (ip *Interpolator) Records() []UpdateRecord {
	out := make([]UpdateRecord, len(ip.records))
	copy(out, ip.records)

	return out
}

// CurrentUpdate returns the view at the render cursor.
func (ip *Interpolator) CurrentUpdate() View {
	return ip.Sample(ip.cursor)
}

// Sample returns the view at t. It does not change the buffer.
func (ip *Interpolator) Sample(t timing.VTimeInSec) View {
	return View{ip: ip, t: t}
}

// lookup computes the value of ch at t. Values are interpolated when both
// records bracketing t define ch. Otherwise the last value known at t is
// held, falling back to the earliest later value when there is none.
func (ip *Interpolator) lookup(ch Channel, t timing.VTimeInSec) (float64, bool) {
	idx := sort.Search(len(ip.records), func(i int) bool {
		return ip.records[i].Timestamp > t
	})

	if idx > 0 && idx < len(ip.records) {
		lo, hi := ip.records[idx-1], ip.records[idx]
		a, okA := lo.Values[ch]
		b, okB := hi.Values[ch]

		if okA && okB {
			frac := float64((t - lo.Timestamp) / (hi.Timestamp - lo.Timestamp))
			return a + (b-a)*frac, true
		}
	}

	for i := idx - 1; i >= 0; i-- {
		if v, ok := ip.records[i].Values[ch]; ok {
			return v, true
		}
	}

	if v, ok := ip.baseline[ch]; ok {
		return v, true
	}

	for i := idx; i < len(ip.records); i++ {
		if v, ok := ip.records[i].Values[ch]; ok {
			return v, true
		}
	}

	return 0, false
}

// View is the signal sampled at one time. It reads the interpolator's
// buffer when queried, so it reflects later calls to AcceptUpdate and
// Update.
type View struct {
	ip *Interpolator
	t  timing.VTimeInSec
}

// Time returns the sample time of the view.
func (v View) Time() timing.VTimeInSec {
	return v.t
}

// Lookup returns the value of ch and whether any record ever defined it.
func (v View) Lookup(ch Channel) (float64, bool) {
	if v.ip == nil {
		return 0, false
	}

	return v.ip.lookup(ch, v.t)
}

// FindValue returns the value of ch, or 0 for a channel never seen.
func (v View) FindValue(ch Channel) float64 {
	value, _ := v.Lookup(ch)
	return value
}
