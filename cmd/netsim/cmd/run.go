package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/netsync/config"
	"github.com/sarchlab/netsync/logging"
	"github.com/sarchlab/netsync/metrics"
	"github.com/sarchlab/netsync/monitoring"
	"github.com/sarchlab/netsync/simulation"
	"github.com/sarchlab/netsync/timing"
	"github.com/sarchlab/netsync/tracing"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a replication scenario",
		Args:  cobra.NoArgs,
		RunE:  startRun,
	}
	runFlags = struct {
		EnvFile     string
		Lag         float64
		Drop        float64
		Seed        int64
		Duration    float64
		Step        float64
		Clients     int
		Reliable    bool
		Trace       bool
		TracePath   string
		Monitor     bool
		MonitorPort int
		Open        bool
		LogLevel    string
	}{}
)

func init() {
	d := config.Default()
	f := runCmd.Flags()

	f.StringVar(&runFlags.EnvFile, "env-file", "", "the .env file to read the scenario from (default .env if present)")
	f.Float64Var(&runFlags.Lag, "lag", float64(d.Lag), "one-way network lag in seconds")
	f.Float64Var(&runFlags.Drop, "drop", d.DropProbability, "probability that a packet is dropped")
	f.Int64Var(&runFlags.Seed, "seed", d.Seed, "seed of the packet drop decisions")
	f.Float64Var(&runFlags.Duration, "duration", float64(d.Duration), "virtual seconds to run")
	f.Float64Var(&runFlags.Step, "dt", float64(d.Step), "virtual seconds per step")
	f.IntVar(&runFlags.Clients, "clients", d.Clients, "the number of clients")
	f.BoolVar(&runFlags.Reliable, "reliable", d.Reliable, "send commands reliably")
	f.BoolVar(&runFlags.Trace, "trace", d.Trace, "record every network event into SQLite")
	f.StringVar(&runFlags.TracePath, "trace-path", "", "the trace file (default netsync_trace_<id>.sqlite3)")
	f.BoolVar(&runFlags.Monitor, "monitor", d.Monitor, "serve the web monitor while running")
	f.IntVar(&runFlags.MonitorPort, "monitor-port", d.MonitorPort, "the monitor port (default random)")
	f.BoolVar(&runFlags.Open, "open", false, "open the monitor in a browser")
	f.StringVar(&runFlags.LogLevel, "log-level", d.LogLevel, "the log level to use")

	Root.AddCommand(runCmd)
}

func startRun(cmd *cobra.Command, _ []string) error {
	s, err := scenarioFromFlags(cmd)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, level)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := runScenario(ctx, s, runOptions{
		open:   runFlags.Open,
		logger: logger,
	})
	if err != nil {
		logger.Error("Scenario failed", slog.Any("err", err))
		return err
	}

	printResult(cmd.OutOrStdout(), result)

	return nil
}

// scenarioFromFlags loads the configured scenario and lets the flags given
// on the command line override it.
func scenarioFromFlags(cmd *cobra.Command) (config.Scenario, error) {
	s, err := config.Load(runFlags.EnvFile)
	if err != nil {
		return s, err
	}

	f := cmd.Flags()

	if f.Changed("lag") {
		s.Lag = timing.VTimeInSec(runFlags.Lag)
	}
	if f.Changed("drop") {
		s.DropProbability = runFlags.Drop
	}
	if f.Changed("seed") {
		s.Seed = runFlags.Seed
	}
	if f.Changed("duration") {
		s.Duration = timing.VTimeInSec(runFlags.Duration)
	}
	if f.Changed("dt") {
		s.Step = timing.VTimeInSec(runFlags.Step)
	}
	if f.Changed("clients") {
		s.Clients = runFlags.Clients
	}
	if f.Changed("reliable") {
		s.Reliable = runFlags.Reliable
	}
	if f.Changed("trace") {
		s.Trace = runFlags.Trace
	}
	if f.Changed("trace-path") {
		s.TracePath = runFlags.TracePath
		s.Trace = true
	}
	if f.Changed("monitor") {
		s.Monitor = runFlags.Monitor
	}
	if f.Changed("monitor-port") {
		s.MonitorPort = runFlags.MonitorPort
	}
	if f.Changed("open") && runFlags.Open {
		s.Monitor = true
	}
	if f.Changed("log-level") {
		s.LogLevel = runFlags.LogLevel
	}

	return s, s.Validate()
}

type runOptions struct {
	open   bool
	logger *slog.Logger
}

func runScenario(
	ctx context.Context,
	s config.Scenario,
	opts runOptions,
) (simulation.Result, error) {
	reg := prometheus.NewRegistry()
	builder := s.Builder().
		WithLogger(opts.logger).
		WithHook(metrics.NewCollector(reg))

	if opts.logger.Enabled(ctx, slog.LevelDebug) {
		builder = builder.WithHook(logging.NewHook(opts.logger, slog.LevelDebug))
	}

	if s.Trace {
		writer := tracing.NewSQLiteWriter(s.TracePath)
		if err := writer.Init(); err != nil {
			return simulation.Result{}, err
		}

		defer func() {
			if err := writer.Close(); err != nil {
				opts.logger.Warn("Failed to close trace", slog.Any("err", err))
			}
		}()

		opts.logger.Info("Tracing network events", slog.String("path", writer.Path()))
		builder = builder.WithHook(tracing.NewTracer(writer))
	}

	runner := builder.Build()

	if s.Monitor {
		stop, err := startMonitor(runner, reg, s, opts)
		if err != nil {
			return simulation.Result{}, err
		}

		defer stop()
	}

	if err := runner.Run(ctx, s.Duration); err != nil {
		return runner.Result(), err
	}

	return runner.Result(), nil
}

func startMonitor(
	runner *simulation.Runner,
	reg *prometheus.Registry,
	s config.Scenario,
	opts runOptions,
) (func(), error) {
	m := monitoring.NewMonitor().
		WithLogger(opts.logger).
		WithPortNumber(s.MonitorPort)
	m.RegisterTarget(runner)
	m.RegisterGatherer(reg)

	bar := m.CreateProgressBar("Run "+runner.ID(), uint64(runner.StepsFor(s.Duration)))
	runner.OnStep(func(timing.VTimeInSec) {
		bar.IncrementFinished(1)
	})

	url, err := m.StartServer()
	if err != nil {
		return nil, err
	}

	if opts.open {
		if err := m.OpenBrowser(); err != nil {
			opts.logger.Warn("Failed to open browser",
				slog.String("url", url), slog.Any("err", err))
		}
	}

	var once sync.Once
	stop := func() {
		once.Do(func() { stopMonitor(m, bar, opts.logger) })
	}

	// An interrupted run exits through atexit, which skips deferred calls.
	atexit.Register(stop)

	return stop, nil
}

func stopMonitor(m *monitoring.Monitor, bar *monitoring.ProgressBar, logger *slog.Logger) {
	m.CompleteProgressBar(bar)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Stop(ctx); err != nil {
		logger.Warn("Failed to stop monitor", slog.Any("err", err))
	}
}

func printResult(w io.Writer, r simulation.Result) {
	fmt.Fprintf(w, "run %s: %d steps, %.3fs virtual time, %d peers\n",
		r.ID, r.Steps, float64(r.Duration), r.Peers)
	fmt.Fprintf(w, "network: sent %d, dropped %d, delivered %d, discarded %d\n",
		r.Network.Sent, r.Network.Dropped, r.Network.Delivered, r.Network.Discarded)
	fmt.Fprintf(w, "host received %d commands\n\n", r.CommandsReceived)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tSTATE\tTRANSFORMS\tOBSOLETE\tCOMMANDS\tSCORES\tPOINTS\tOUTSTANDING\tMEAN ERROR")

	for _, c := range r.Clients {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.4f\n",
			c.Name, c.State, c.TransformsReceived, c.ObsoleteDiscarded,
			c.CommandsSent, c.ScoresReceived, c.Points, c.Outstanding, c.MeanError)
	}

	tw.Flush()
}
