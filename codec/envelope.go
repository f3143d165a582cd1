package codec

// Class separates application data from session control traffic.
type Class uint8

// Message classes.
const (
	ClassData    Class = 0
	ClassControl Class = 1
)

func (c Class) String() string {
	switch c {
	case ClassData:
		return "data"
	case ClassControl:
		return "control"
	default:
		return "unknown"
	}
}

// HeaderLength is the size of the envelope in bytes:
//
//	[class:1][action:1][sequence:2][body length:4][timestamp:8]
//
// The high bit of the class byte carries the reliable flag.
const HeaderLength = 16

const reliableBit = 0x80

// Envelope is the fixed-size header that precedes every message body.
type Envelope struct {
	Class      Class
	Action     uint8
	Sequence   uint16
	Reliable   bool
	BodyLength uint32
	Timestamp  float64
}

// Encode writes env followed by body. BodyLength is taken from the body's
// declared length; a nil body is encoded as Empty.
func Encode(env Envelope, body Message) []byte {
	if body == nil {
		body = Empty{}
	}

	env.BodyLength = uint32(body.ByteLength())

	w := NewWriter(HeaderLength + body.ByteLength())
	env.writeHeader(w)
	serializeChecked(w, body)

	return w.Bytes()
}

func (e Envelope) writeHeader(w *Writer) {
	class := uint8(e.Class) &^ reliableBit
	if e.Reliable {
		class |= reliableBit
	}

	w.WriteUint8(class)
	w.WriteUint8(e.Action)
	w.WriteUint16(e.Sequence)
	w.WriteUint32(e.BodyLength)
	w.WriteFloat64(e.Timestamp)
}

// DecodeEnvelope parses the header of a packet and returns it with the body
// bytes. It fails with ErrTruncated if the packet is shorter than the header
// plus the declared body length. Trailing bytes beyond the body are ignored.
func DecodeEnvelope(b []byte) (Envelope, []byte, error) {
	r := NewReader(b)

	class := r.ReadUint8()
	env := Envelope{
		Class:    Class(class &^ reliableBit),
		Reliable: class&reliableBit != 0,
	}
	env.Action = r.ReadUint8()
	env.Sequence = r.ReadUint16()
	env.BodyLength = r.ReadUint32()
	env.Timestamp = r.ReadFloat64()

	if err := r.Err(); err != nil {
		return Envelope{}, nil, err
	}

	if uint64(r.Remaining()) < uint64(env.BodyLength) {
		return Envelope{}, nil, ErrTruncated
	}

	body := b[HeaderLength : HeaderLength+int(env.BodyLength)]

	return env, body, nil
}
