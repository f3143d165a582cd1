// Package codec implements the fixed-width binary encoding used on the
// simulated wire. All multi-byte values are little-endian.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrTruncated is returned when decoding runs past the end of a buffer.
var ErrTruncated = errors.New("codec: truncated buffer")

var byteOrder = binary.LittleEndian

// Writer appends fixed-width values to a growing byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with room for capacity bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteUint16 appends a 2-byte unsigned integer.
func (w *Writer) WriteUint16(v uint16) {
	w.buf = byteOrder.AppendUint16(w.buf, v)
}

// WriteUint32 appends a 4-byte unsigned integer.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = byteOrder.AppendUint32(w.buf, v)
}

// WriteInt32 appends a 4-byte two's complement integer.
func (w *Writer) WriteInt32(v int32) {
	w.buf = byteOrder.AppendUint32(w.buf, uint32(v))
}

// WriteFloat64 appends an IEEE 754 double.
func (w *Writer) WriteFloat64(v float64) {
	w.buf = byteOrder.AppendUint64(w.buf, math.Float64bits(v))
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader consumes fixed-width values from a byte slice.
//
// The first read that runs past the end of the buffer sets a sticky
// ErrTruncated; that read and every later one return zero values. Decoders
// can therefore read all their fields and check Err once at the end.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader creates a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if len(r.buf)-r.off < n {
		r.err = ErrTruncated
		r.off = len(r.buf)

		return nil
	}

	b := r.buf[r.off : r.off+n]
	r.off += n

	return b
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

// ReadUint16 reads a 2-byte unsigned integer.
func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return byteOrder.Uint16(b)
}

// ReadUint32 reads a 4-byte unsigned integer.
func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return byteOrder.Uint32(b)
}

// ReadInt32 reads a 4-byte two's complement integer.
func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

// ReadFloat64 reads an IEEE 754 double.
func (r *Reader) ReadFloat64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}

	return math.Float64frombits(byteOrder.Uint64(b))
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Err returns ErrTruncated if any read ran past the end of the buffer.
func (r *Reader) Err() error {
	return r.err
}
