package codec

import "fmt"

// Message is a typed unit of application data with a fixed binary layout.
//
// ByteLength must equal the number of bytes Serialize writes; receivers rely
// on it to frame bodies. Deserialize must read the fields back in the order
// Serialize wrote them and return the reader's error.
type Message interface {
	ByteLength() int
	Serialize(w *Writer)
	Deserialize(r *Reader) error
}

// Empty is a message with no body. Control messages carry it.
type Empty struct{}

// ByteLength returns 0.
func (Empty) ByteLength() int { return 0 }

// Serialize writes nothing.
func (Empty) Serialize(*Writer) {}

// Deserialize reads nothing.
func (Empty) Deserialize(*Reader) error { return nil }

// Marshal serializes msg into a new buffer and checks the declared length.
func Marshal(msg Message) []byte {
	w := NewWriter(msg.ByteLength())
	serializeChecked(w, msg)

	return w.Bytes()
}

// Unmarshal fills into from b.
func Unmarshal(b []byte, into Message) error {
	r := NewReader(b)
	if err := into.Deserialize(r); err != nil {
		return err
	}

	return r.Err()
}

func serializeChecked(w *Writer, msg Message) {
	before := w.Len()
	msg.Serialize(w)

	written := w.Len() - before
	if written != msg.ByteLength() {
		panic(fmt.Sprintf(
			"codec: %T declares %d bytes but serialized %d",
			msg, msg.ByteLength(), written,
		))
	}
}
