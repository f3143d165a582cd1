package simulation

import (
	"context"
	"time"

	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Runner", func() {
	var builder Builder

	BeforeEach(func() {
		builder = MakeBuilder().WithStep(1.0 / 64)
	})

	It("should refuse a scenario without clients", func() {
		Expect(func() { builder.WithClients(0).Build() }).To(Panic())
	})

	It("should refuse a non-positive step", func() {
		Expect(func() { builder.WithStep(0).Build() }).To(Panic())
	})

	It("should connect every client and replicate the world", func() {
		r := builder.Build()

		Expect(r.Run(context.Background(), 3)).To(Succeed())

		res := r.Result()
		Expect(res.Peers).To(Equal(2))
		Expect(res.Steps).To(Equal(r.StepsFor(3)))
		Expect(res.Network.Dropped).To(BeZero())
		Expect(res.Clients).To(HaveLen(2))

		for _, c := range res.Clients {
			Expect(c.State).To(Equal(session.StateConnected))
			Expect(c.TransformsReceived).To(BeNumerically(">", 0))
			Expect(c.Samples).To(BeNumerically(">", 0))
			Expect(c.MeanError).To(BeNumerically("<", 0.5))
			Expect(c.ScoresReceived).To(BeNumerically(">", 0))
		}
	})

	It("should deliver each reliable command once under loss", func() {
		cfg := session.DefaultConfig()
		cfg.Lag = 0.05
		cfg.DropProbability = 0.3
		cfg.RetryInterval = 0.1
		cfg.MaxRetries = 20

		r := builder.
			WithSessionConfig(cfg).
			WithSeed(7).
			WithCommandInterval(0.25).
			Build()

		Expect(r.Run(context.Background(), 5)).To(Succeed())

		res := r.Result()
		sent := 0
		for _, c := range res.Clients {
			sent += c.CommandsSent
		}

		Expect(res.Network.Dropped).To(BeNumerically(">", 0))
		Expect(res.CommandsReceived).To(BeNumerically(">", 0))
		Expect(res.CommandsReceived).To(BeNumerically("<=", sent))
	})

	It("should be reproducible for a fixed seed", func() {
		cfg := session.DefaultConfig()
		cfg.Lag = 0.05
		cfg.DropProbability = 0.2

		run := func() Result {
			r := builder.WithSessionConfig(cfg).WithSeed(42).Build()
			Expect(r.Run(context.Background(), 2)).To(Succeed())

			return r.Result()
		}

		a, b := run(), run()
		Expect(a.Network).To(Equal(b.Network))
		Expect(a.CommandsReceived).To(Equal(b.CommandsReceived))
	})

	It("should stop when the context is cancelled", func() {
		r := builder.Build()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(r.Run(ctx, 1)).To(MatchError(context.Canceled))
		Expect(r.Result().Steps).To(BeZero())
	})

	It("should notify step listeners", func() {
		r := builder.Build()

		var times []timing.VTimeInSec
		r.OnStep(func(now timing.VTimeInSec) { times = append(times, now) })

		r.Step()
		r.Step()

		Expect(times).To(Equal([]timing.VTimeInSec{0, 1.0 / 64}))
		Expect(r.Now()).To(Equal(timing.VTimeInSec(2.0 / 64)))
	})

	It("should attach hooks to the network and sessions", func() {
		count := 0
		r := builder.
			WithHook(hooking.HookFunc(func(hooking.HookCtx) { count++ })).
			Build()

		Expect(r.Network().NumHooks()).To(Equal(1))
		Expect(r.Host().NumHooks()).To(Equal(1))

		for range 16 {
			r.Step()
		}

		Expect(count).To(BeNumerically(">", 0))
	})

	It("should hold steps while paused", func() {
		r := builder.Build()
		r.Pause()
		r.Pause()
		Expect(r.Paused()).To(BeTrue())

		done := make(chan struct{})
		go func() {
			r.Step()
			close(done)
		}()

		Consistently(done, 50*time.Millisecond).ShouldNot(BeClosed())

		r.Continue()
		Eventually(done).Should(BeClosed())
		Expect(r.Paused()).To(BeFalse())
		Expect(r.Now()).To(Equal(timing.VTimeInSec(1.0 / 64)))
	})

	It("should list and inspect sessions", func() {
		r := builder.Build()

		Expect(r.SessionNames()).To(Equal([]string{"host", "client0", "client1"}))

		var inspected any
		Expect(r.Inspect("client1", func(v any) { inspected = v })).To(BeTrue())
		Expect(inspected).To(BeIdenticalTo(r.Nodes()[1].Session))

		Expect(r.Inspect("host", func(v any) { inspected = v })).To(BeTrue())
		Expect(inspected).To(BeIdenticalTo(r.Host()))

		Expect(r.Inspect("nobody", func(any) {})).To(BeFalse())
	})
})
