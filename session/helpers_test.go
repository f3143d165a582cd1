package session

import (
	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/timing"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/gomega"
)

const actionValue uint8 = 10

type valueMsg struct {
	Value uint32
}

func (m *valueMsg) ByteLength() int { return 4 }

func (m *valueMsg) Serialize(w *codec.Writer) {
	w.WriteUint32(m.Value)
}

func (m *valueMsg) Deserialize(r *codec.Reader) error {
	m.Value = r.ReadUint32()
	return r.Err()
}

func newTestRegistry() *codec.Registry {
	reg := codec.NewRegistry()
	reg.Register(codec.ClassData, actionValue, func() codec.Message {
		return &valueMsg{}
	})

	return reg
}

type sentPacket struct {
	src, dst emulator.Port
	env      codec.Envelope
	body     []byte
	at       timing.VTimeInSec
}

type sentLog struct {
	packets []sentPacket
}

func (l *sentLog) record(transport *MockTransport) {
	transport.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			src, dst emulator.Port,
			payload []byte,
			_ timing.VTimeInSec,
			_ float64,
			now timing.VTimeInSec,
		) bool {
			env, body, err := codec.DecodeEnvelope(payload)
			Expect(err).NotTo(HaveOccurred())

			l.packets = append(l.packets, sentPacket{
				src: src, dst: dst, env: env, body: body, at: now,
			})

			return true
		}).
		AnyTimes()
}

func (l *sentLog) reset() {
	l.packets = nil
}

func (l *sentLog) filter(class codec.Class, action uint8) []sentPacket {
	var out []sentPacket

	for _, p := range l.packets {
		if p.env.Class == class && p.env.Action == action {
			out = append(out, p)
		}
	}

	return out
}

func packetFrom(
	src, dst emulator.Port,
	env codec.Envelope,
	body codec.Message,
	at timing.VTimeInSec,
) *emulator.Packet {
	return &emulator.Packet{
		Src:          src,
		Dst:          dst,
		Payload:      codec.Encode(env, body),
		SendTime:     at,
		DeliveryTime: at,
	}
}

func control(action uint8, seq uint16) codec.Envelope {
	return codec.Envelope{Class: codec.ClassControl, Action: action, Sequence: seq}
}

func data(seq uint16, reliable bool) codec.Envelope {
	return codec.Envelope{
		Class:    codec.ClassData,
		Action:   actionValue,
		Sequence: seq,
		Reliable: reliable,
	}
}
