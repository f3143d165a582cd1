package session

import (
	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Host and client over the emulator", func() {
	const dt timing.VTimeInSec = 1.0 / 64

	var (
		dropper  emulator.DropperFunc
		net      *emulator.Emulator
		cfg      Config
		host     *Host
		client   *Client
		step     int
		atHost   []*MessageReceived
		atClient []*MessageReceived
	)

	now := func() timing.VTimeInSec {
		return timing.VTimeInSec(step) * dt
	}

	advanceTo := func(t timing.VTimeInSec) {
		for now() <= t {
			host.Update(dt, now())
			client.Update(dt, now())
			step++
		}
	}

	BeforeEach(func() {
		dropper = func(*emulator.Packet, float64) bool { return false }
		step = 0
		atHost = nil
		atClient = nil

		cfg = DefaultConfig()
		cfg.Lag = 0.0625
		cfg.RetryInterval = 0.125
		cfg.MaxRetries = 5
		cfg.HandshakeInterval = 0.25
		cfg.MaxHandshakeAttempts = 3
		cfg.InactivityTimeout = 10
		cfg.KeepAliveInterval = 0
	})

	JustBeforeEach(func() {
		net = emulator.MakeBuilder().
			WithDropper(emulator.DropperFunc(func(p *emulator.Packet, prob float64) bool {
				return dropper(p, prob)
			})).
			Build("net")
		b := MakeBuilder().
			WithTransport(net).
			WithRegistry(newTestRegistry()).
			WithConfig(cfg)

		host = b.BuildHost("host")
		host.InitHost(0, 1)
		host.OnMessage(func(m *MessageReceived) { atHost = append(atHost, m) })

		client = b.BuildClient("client")
		client.InitClient(0, 2, 1)
		client.OnMessage(func(m *MessageReceived) { atClient = append(atClient, m) })
	})

	It("should complete the handshake after one round trip", func() {
		advanceTo(0.125)

		Expect(client.ConnectionState()).To(Equal(StateConnected))
		Expect(host.PeerCount()).To(Equal(1))
		Expect(host.Peer(2)).NotTo(BeNil())
	})

	It("should deliver unreliable data after the lag", func() {
		advanceTo(0.25)

		host.PushMessageForSending(Outgoing{
			Action:    actionValue,
			Time:      now(),
			Payload:   &valueMsg{Value: 5},
			Broadcast: true,
		})
		advanceTo(0.5)

		Expect(atClient).To(HaveLen(1))
		m := atClient[0]
		Expect(m.Message).To(Equal(&valueMsg{Value: 5}))
		Expect(m.ReceivedAt - timing.VTimeInSec(m.Envelope.Timestamp)).To(Equal(cfg.Lag))
	})

	It("should keep send order for equal lag", func() {
		advanceTo(0.25)

		for i := uint32(1); i <= 3; i++ {
			client.PushMessageForSending(Outgoing{Action: actionValue, Payload: &valueMsg{Value: i}})
		}
		advanceTo(0.5)

		Expect(atHost).To(HaveLen(3))
		for i, m := range atHost {
			Expect(m.Message.(*valueMsg).Value).To(Equal(uint32(i + 1)))
		}
	})

	Context("when the first three data packets are lost", func() {
		var transmissions int

		BeforeEach(func() {
			transmissions = 0
			dropper = func(p *emulator.Packet, _ float64) bool {
				env, _, err := codec.DecodeEnvelope(p.Payload)
				if err != nil || env.Class != codec.ClassData || p.Src != 2 {
					return false
				}

				transmissions++

				return transmissions <= 3
			}
		})

		It("should deliver the reliable message exactly once", func() {
			advanceTo(0.25)
			Expect(client.ConnectionState()).To(Equal(StateConnected))

			client.PushMessageForSending(Outgoing{
				Action:   actionValue,
				Time:     now(),
				Payload:  &valueMsg{Value: 42},
				Reliable: true,
			})

			advanceTo(0.8)
			Expect(transmissions).To(Equal(4))
			Expect(atHost).To(HaveLen(1))
			Expect(atHost[0].Message).To(Equal(&valueMsg{Value: 42}))
			Expect(client.Outstanding()).To(Equal(0))

			advanceTo(2)
			Expect(transmissions).To(Equal(4))
			Expect(atHost).To(HaveLen(1))
		})
	})

	Context("when a scripted dropper loses the first three sends", func() {
		var scripted *emulator.ScriptedDropper

		BeforeEach(func() {
			// Handshake and handshake ack go through, then the command is
			// lost three times.
			scripted = &emulator.ScriptedDropper{
				Script: []bool{false, false, true, true, true},
			}
			dropper = scripted.ShouldDrop
		})

		It("should deliver the command on the fourth send", func() {
			advanceTo(0.25)
			Expect(client.ConnectionState()).To(Equal(StateConnected))

			client.PushMessageForSending(Outgoing{
				Action:   actionValue,
				Time:     now(),
				Payload:  &valueMsg{Value: 9},
				Reliable: true,
			})

			advanceTo(0.8)
			Expect(scripted.Remaining()).To(Equal(0))
			Expect(net.Stats().Dropped).To(Equal(uint64(3)))
			Expect(atHost).To(HaveLen(1))
			Expect(atHost[0].Message).To(Equal(&valueMsg{Value: 9}))
			Expect(client.Outstanding()).To(Equal(0))
		})
	})

	It("should deliver reliable data from a new client on a reused port", func() {
		advanceTo(0.25)
		client.PushMessageForSending(Outgoing{
			Action: actionValue, Payload: &valueMsg{Value: 1}, Reliable: true,
		})
		advanceTo(0.5)
		Expect(atHost).To(HaveLen(1))

		net.UnregisterPort(2)
		client = MakeBuilder().
			WithTransport(net).
			WithRegistry(newTestRegistry()).
			WithConfig(cfg).
			BuildClient("rejoined")
		client.InitClient(0, 2, 1)

		advanceTo(0.75)
		Expect(client.ConnectionState()).To(Equal(StateConnected))

		client.PushMessageForSending(Outgoing{
			Action: actionValue, Payload: &valueMsg{Value: 2}, Reliable: true,
		})
		advanceTo(1.25)

		Expect(client.Outstanding()).To(Equal(0))
		Expect(atHost).To(HaveLen(2))
		Expect(atHost[1].Message).To(Equal(&valueMsg{Value: 2}))
		Expect(atHost[1].From).To(BeIdenticalTo(host.Peer(2)))
		Expect(host.PeerCount()).To(Equal(1))
	})

	Context("when every packet is lost", func() {
		BeforeEach(func() {
			cfg.DropProbability = 1
			dropper = func(_ *emulator.Packet, p float64) bool { return p >= 1 }
		})

		It("should fail to connect after the last handshake attempt", func() {
			advanceTo(1)

			Expect(client.ConnectionState()).To(Equal(StateConnectionFailed))
			Expect(host.PeerCount()).To(Equal(0))
			Expect(net.Stats().Dropped).To(Equal(uint64(3)))
		})
	})

	It("should remove the peer when the client disconnects", func() {
		advanceTo(0.25)
		client.Disconnect(now())
		advanceTo(0.5)

		Expect(client.ConnectionState()).To(Equal(StateDisconnected))
		Expect(host.PeerCount()).To(Equal(0))
	})

	It("should cancel in-flight data when the host removes the peer", func() {
		advanceTo(0.25)

		host.PushMessageForSending(Outgoing{
			Action: actionValue, Payload: &valueMsg{}, Target: host.Peer(2),
		})
		host.Update(0, now())
		host.RemovePeer(2, now())
		advanceTo(0.5)

		Expect(atClient).To(BeEmpty())
		Expect(client.ConnectionState()).To(Equal(StateDisconnected))
	})
})
