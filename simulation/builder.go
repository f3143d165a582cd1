package simulation

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/sarchlab/netsync/emulator"
	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/idgen"
	"github.com/sarchlab/netsync/interp"
	"github.com/sarchlab/netsync/payload"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/timing"
)

// HostPort is the port the host binds to. Client i binds to
// FirstClientPort+i.
const (
	HostPort        emulator.Port = 1
	FirstClientPort emulator.Port = 100
)

// Builder can be used to build a Runner.
type Builder struct {
	seed             int64
	numClients       int
	numEntities      int
	step             timing.VTimeInSec
	sendRate         timing.Freq
	commandInterval  timing.VTimeInSec
	reliableCommands bool
	sessionCfg       session.Config
	interpOpts       interp.Options
	dropper          emulator.Dropper
	hooks            []hooking.Hook
	logger           *slog.Logger
}

// MakeBuilder creates a builder with a two client, three entity scenario.
func MakeBuilder() Builder {
	cfg := session.DefaultConfig()
	cfg.Lag = 0.05

	return Builder{
		seed:             1,
		numClients:       2,
		numEntities:      3,
		step:             1.0 / 60,
		sendRate:         20,
		commandInterval:  0.5,
		reliableCommands: true,
		sessionCfg:       cfg,
		interpOpts:       interp.Options{Delay: 0.1, SnapThreshold: 0.5},
	}
}

// WithSeed sets the seed of the packet drop decisions.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithClients sets the number of clients.
func (b Builder) WithClients(n int) Builder {
	b.numClients = n
	return b
}

// WithEntities sets the number of entities the host replicates.
func (b Builder) WithEntities(n int) Builder {
	b.numEntities = n
	return b
}

// WithStep sets the virtual time advanced by each Step.
func (b Builder) WithStep(dt timing.VTimeInSec) Builder {
	b.step = dt
	return b
}

// WithSendRate sets how often the host broadcasts entity transforms.
func (b Builder) WithSendRate(f timing.Freq) Builder {
	b.sendRate = f
	return b
}

// WithCommandInterval sets the time between commands sent by each client.
// Zero disables commands.
func (b Builder) WithCommandInterval(t timing.VTimeInSec) Builder {
	b.commandInterval = t
	return b
}

// WithReliableCommands sets whether client commands use reliable delivery.
func (b Builder) WithReliableCommands(reliable bool) Builder {
	b.reliableCommands = reliable
	return b
}

// WithSessionConfig sets the configuration shared by the host and clients.
func (b Builder) WithSessionConfig(cfg session.Config) Builder {
	b.sessionCfg = cfg
	return b
}

// WithInterpolation sets the options of the client interpolators.
func (b Builder) WithInterpolation(opts interp.Options) Builder {
	b.interpOpts = opts
	return b
}

// WithDropper replaces the seeded random drop decisions.
func (b Builder) WithDropper(d emulator.Dropper) Builder {
	b.dropper = d
	return b
}

// WithHook attaches a hook to the emulator and every session.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// WithLogger sets the logger of the sessions and the runner.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.numClients <= 0 {
		panic("simulation: at least one client is required")
	}

	if b.numEntities <= 0 || b.numEntities > math.MaxUint16 {
		panic(fmt.Sprintf("simulation: invalid number of entities %d", b.numEntities))
	}

	if b.step <= 0 {
		panic("simulation: step must be positive")
	}
}

// Build creates the runner with its network, host and clients.
func (b Builder) Build() *Runner {
	b.parametersMustBeValid()

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	netBuilder := emulator.MakeBuilder().WithSeed(b.seed)
	if b.dropper != nil {
		netBuilder = netBuilder.WithDropper(b.dropper)
	}

	r := &Runner{
		id:       idgen.RunID(),
		dt:       b.step,
		net:      netBuilder.Build("network"),
		world:    world{entities: b.numEntities, radius: 10, speed: 1},
		sendGate: timing.NewTickGate(b.sendRate),
		reliable: b.reliableCommands,
		logger:   logger,
	}

	if b.commandInterval > 0 {
		r.commandGate = timing.NewTickGate(timing.Freq(1 / float64(b.commandInterval)))
	}

	sessions := session.MakeBuilder().
		WithTransport(r.net).
		WithRegistry(payload.NewRegistry()).
		WithConfig(b.sessionCfg).
		WithLogger(logger)

	r.host = sessions.BuildHost("host")
	r.host.InitHost(b.sessionCfg.UpdateFrequency, HostPort)
	r.host.OnMessage(r.handleHostMessage)

	for i := 0; i < b.numClients; i++ {
		c := sessions.BuildClient(fmt.Sprintf("client%d", i))
		c.InitClient(b.sessionCfg.UpdateFrequency, FirstClientPort+emulator.Port(i), HostPort)

		n := &Node{
			Session: c,
			player:  uint8(i),
		}
		for range b.numEntities {
			n.Interps = append(n.Interps, interp.New(b.interpOpts))
		}
		c.OnMessage(n.handleMessage)

		r.nodes = append(r.nodes, n)
	}

	for _, h := range b.hooks {
		r.net.AcceptHook(h)
		r.host.AcceptHook(h)

		for _, n := range r.nodes {
			n.Session.AcceptHook(h)
		}
	}

	return r
}
