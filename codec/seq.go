package codec

// SeqNewer reports whether sequence number a was issued after b, allowing
// for wraparound. Numbers more than half the space apart are considered
// to have wrapped.
func SeqNewer(a, b uint16) bool {
	return a != b && a-b < 0x8000
}
