package session

import (
	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/timing"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Host", func() {
	var (
		mockCtrl  *gomock.Controller
		transport *MockTransport
		sent      *sentLog
		host      *Host
		receive   emulator.ReceiveFunc
		received  []*MessageReceived
		connected []*Peer
		removed   []RemovalReason
		hookPos   []*hooking.HookPos
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		transport = NewMockTransport(mockCtrl)
		sent = &sentLog{}
		sent.record(transport)
		transport.EXPECT().Poll(gomock.Any()).Return(0).AnyTimes()

		received = nil
		connected = nil
		removed = nil
		hookPos = nil

		cfg := DefaultConfig()
		cfg.Lag = 0.0625
		cfg.RetryInterval = 0.25
		cfg.MaxRetries = 2
		cfg.InactivityTimeout = 1
		cfg.KeepAliveInterval = 0

		host = MakeBuilder().
			WithTransport(transport).
			WithRegistry(newTestRegistry()).
			WithConfig(cfg).
			BuildHost("host")
		host.OnMessage(func(m *MessageReceived) { received = append(received, m) })
		host.OnPeerConnected(func(p *Peer) { connected = append(connected, p) })
		host.OnPeerRemoved(func(_ *Peer, r RemovalReason) { removed = append(removed, r) })
		host.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			hookPos = append(hookPos, ctx.Pos)
		}))

		transport.EXPECT().
			RegisterPort(emulator.Port(1), gomock.Any()).
			Do(func(_ emulator.Port, fn emulator.ReceiveFunc) { receive = fn })
		host.InitHost(0, 1)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	handshakeWith := func(from emulator.Port, epoch uint16, at timing.VTimeInSec) {
		receive(packetFrom(from, 1, control(actionHandshake, epoch), nil, at))
	}

	handshake := func(from emulator.Port, at timing.VTimeInSec) {
		handshakeWith(from, 0, at)
	}

	It("should accept a handshake from a new address", func() {
		handshake(2, 0)

		Expect(host.PeerCount()).To(Equal(1))
		Expect(host.Peer(2).State()).To(Equal(StateConnected))
		Expect(connected).To(HaveLen(1))

		acks := sent.filter(codec.ClassControl, actionHandshakeAck)
		Expect(acks).To(HaveLen(1))
		Expect(acks[0].dst).To(Equal(emulator.Port(2)))
	})

	It("should re-ack a repeated handshake", func() {
		handshake(2, 0)
		handshake(2, 0.5)

		Expect(host.PeerCount()).To(Equal(1))
		Expect(connected).To(HaveLen(1))
		Expect(sent.filter(codec.ClassControl, actionHandshakeAck)).To(HaveLen(2))
		Expect(host.Peer(2).LastSeen()).To(BeNumerically("==", 0.5))
	})

	It("should echo the epoch in the handshake ack", func() {
		handshakeWith(2, 77, 0)
		handshakeWith(2, 77, 0.5)

		acks := sent.filter(codec.ClassControl, actionHandshakeAck)
		Expect(acks).To(HaveLen(2))
		Expect(acks[0].env.Sequence).To(Equal(uint16(77)))
		Expect(acks[1].env.Sequence).To(Equal(uint16(77)))
		Expect(host.Peer(2).Epoch()).To(Equal(uint16(77)))
		Expect(connected).To(HaveLen(1))
	})

	Context("when a known address connects with a new epoch", func() {
		var old *Peer

		BeforeEach(func() {
			handshakeWith(2, 5, 0)
			old = host.Peer(2)

			receive(packetFrom(2, 1, data(1, true), &valueMsg{Value: 1}, 0.125))
			receive(packetFrom(2, 1, data(2, false), &valueMsg{Value: 2}, 0.125))
			Expect(received).To(HaveLen(2))

			transport.EXPECT().CancelBetween(emulator.Port(1), emulator.Port(2))
			handshakeWith(2, 6, 0.25)
		})

		It("should replace the peer record", func() {
			Expect(host.PeerCount()).To(Equal(1))
			Expect(host.Peer(2)).NotTo(BeIdenticalTo(old))
			Expect(host.Peer(2).Epoch()).To(Equal(uint16(6)))
			Expect(host.Peer(2).ConnectedAt()).To(BeNumerically("==", 0.25))
			Expect(removed).To(Equal([]RemovalReason{RemovedReconnected}))
			Expect(connected).To(HaveLen(2))
		})

		It("should deliver reused sequence numbers again", func() {
			receive(packetFrom(2, 1, data(1, true), &valueMsg{Value: 3}, 0.375))
			receive(packetFrom(2, 1, data(2, false), &valueMsg{Value: 4}, 0.375))

			Expect(received).To(HaveLen(4))
			Expect(received[2].Message).To(Equal(&valueMsg{Value: 3}))
			Expect(received[2].From).To(BeIdenticalTo(host.Peer(2)))
			Expect(received[3].Obsolete).To(BeFalse())
			Expect(sent.filter(codec.ClassControl, actionAck)).To(HaveLen(2))
		})
	})

	It("should list peers by address", func() {
		handshake(5, 0)
		handshake(3, 0)
		handshake(4, 0)

		var addrs []emulator.Port
		for _, p := range host.Peers() {
			addrs = append(addrs, p.Address)
		}

		Expect(addrs).To(Equal([]emulator.Port{3, 4, 5}))
	})

	It("should reject data from unknown peers", func() {
		receive(packetFrom(3, 1, data(1, true), &valueMsg{}, 0))

		Expect(received).To(BeEmpty())
		Expect(sent.packets).To(BeEmpty())
		Expect(hookPos).To(ContainElement(HookPosPacketRejected))
	})

	It("should deliver data from a peer", func() {
		handshake(2, 0)
		receive(packetFrom(2, 1, data(1, false), &valueMsg{Value: 11}, 0.25))

		Expect(received).To(HaveLen(1))
		Expect(received[0].From).To(BeIdenticalTo(host.Peer(2)))
		Expect(received[0].Message).To(Equal(&valueMsg{Value: 11}))
	})

	It("should send to a single target", func() {
		handshake(2, 0)
		handshake(3, 0)
		sent.reset()

		host.PushMessageForSending(Outgoing{
			Action: actionValue, Payload: &valueMsg{Value: 1}, Target: host.Peer(3),
		})
		host.Update(0.25, 0.25)

		out := sent.filter(codec.ClassData, actionValue)
		Expect(out).To(HaveLen(1))
		Expect(out[0].dst).To(Equal(emulator.Port(3)))
	})

	It("should panic on a message without target", func() {
		Expect(func() {
			host.PushMessageForSending(Outgoing{Action: actionValue, Payload: &valueMsg{}})
		}).To(Panic())
	})

	It("should broadcast independent reliable copies", func() {
		handshake(2, 0)
		handshake(3, 0)
		sent.reset()

		host.PushMessageForSending(Outgoing{
			Action:    actionValue,
			Payload:   &valueMsg{Value: 1},
			Reliable:  true,
			Broadcast: true,
		})
		host.Update(0.25, 0.25)

		out := sent.filter(codec.ClassData, actionValue)
		Expect(out).To(HaveLen(2))
		Expect(out[0].env.Sequence).NotTo(Equal(out[1].env.Sequence))
		Expect(host.Outstanding()).To(Equal(2))

		receive(packetFrom(2, 1, control(actionAck, out[0].env.Sequence), nil, 0.375))
		Expect(host.Outstanding()).To(Equal(1))
		Expect(host.Peer(2).Outstanding()).To(Equal(0))
		Expect(host.Peer(3).OutstandingSequences()).To(Equal([]uint16{out[1].env.Sequence}))

		host.Update(0.25, 0.5)
		resent := sent.filter(codec.ClassData, actionValue)
		Expect(resent).To(HaveLen(3))
		Expect(resent[2].dst).To(Equal(emulator.Port(3)))
	})

	It("should evict a silent peer", func() {
		handshake(2, 0)

		transport.EXPECT().CancelBetween(emulator.Port(1), emulator.Port(2))
		host.Update(1.5, 1.5)

		Expect(host.PeerCount()).To(Equal(0))
		Expect(removed).To(Equal([]RemovalReason{RemovedTimedOut}))
		Expect(hookPos).To(ContainElement(HookPosPeerTimedOut))
	})

	It("should keep a peer that keeps talking", func() {
		handshake(2, 0)
		receive(packetFrom(2, 1, control(actionKeepAlive, 0), nil, 0.75))

		host.Update(1.5, 1.5)

		Expect(host.PeerCount()).To(Equal(1))
	})

	It("should remove a peer on request", func() {
		handshake(2, 0)
		host.PushMessageForSending(Outgoing{
			Action: actionValue, Payload: &valueMsg{}, Target: host.Peer(2),
		})

		transport.EXPECT().CancelBetween(emulator.Port(1), emulator.Port(2))
		Expect(host.RemovePeer(2, 0.125)).To(BeTrue())
		Expect(host.RemovePeer(2, 0.125)).To(BeFalse())
		Expect(removed).To(Equal([]RemovalReason{RemovedByHost}))
		Expect(sent.filter(codec.ClassControl, actionDisconnect)).To(HaveLen(1))

		host.Update(0.25, 0.25)
		Expect(sent.filter(codec.ClassData, actionValue)).To(BeEmpty())
	})

	It("should remove a peer that disconnects", func() {
		handshake(2, 0)

		transport.EXPECT().CancelBetween(emulator.Port(1), emulator.Port(2))
		receive(packetFrom(2, 1, control(actionDisconnect, 0), nil, 0.25))

		Expect(host.PeerCount()).To(Equal(0))
		Expect(removed).To(Equal([]RemovalReason{RemovedDisconnected}))
	})

	It("should reject an unknown session control action", func() {
		handshake(2, 0)
		receive(packetFrom(2, 1, control(9, 0), nil, 0.25))

		Expect(hookPos).To(ContainElement(HookPosPacketRejected))
	})
})
