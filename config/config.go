// Package config loads the parameters of a netsim scenario from an optional
// .env file and NETSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/netsync/interp"
	"github.com/sarchlab/netsync/session"
	"github.com/sarchlab/netsync/simulation"
	"github.com/sarchlab/netsync/timing"
)

// DefaultEnvFile is read when no env file is named. It may be absent.
const DefaultEnvFile = ".env"

// Scenario holds everything required to build and run a scenario.
type Scenario struct {
	Seed            int64
	Clients         int
	Entities        int
	Duration        timing.VTimeInSec
	Step            timing.VTimeInSec
	SendRate        timing.Freq
	CommandInterval timing.VTimeInSec
	Reliable        bool
	Lag             timing.VTimeInSec
	DropProbability float64
	Delay           timing.VTimeInSec
	SnapThreshold   timing.VTimeInSec
	Trace           bool
	TracePath       string
	Monitor         bool
	MonitorPort     int
	LogLevel        string
}

// Default returns the scenario used when nothing is configured.
func Default() Scenario {
	return Scenario{
		Seed:            1,
		Clients:         2,
		Entities:        3,
		Duration:        10,
		Step:            1.0 / 60,
		SendRate:        20,
		CommandInterval: 0.5,
		Reliable:        true,
		Lag:             0.05,
		Delay:           0.1,
		SnapThreshold:   0.5,
		LogLevel:        "info",
	}
}

// Load starts from Default, applies the variables from envFile and lets the
// process environment override them. An empty envFile means DefaultEnvFile,
// which is skipped when it does not exist. A named file must exist.
func Load(envFile string) (Scenario, error) {
	s := Default()

	if err := loadEnvFile(envFile); err != nil {
		return s, err
	}

	if err := s.applyEnv(os.LookupEnv); err != nil {
		return s, err
	}

	return s, s.Validate()
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		err := godotenv.Load(DefaultEnvFile)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("config: loading %s: %w", DefaultEnvFile, err)
		}

		return nil
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("config: loading %s: %w", envFile, err)
	}

	return nil
}

type lookupFunc func(key string) (string, bool)

func (s *Scenario) applyEnv(lookup lookupFunc) error {
	p := envParser{lookup: lookup}

	p.setInt64("NETSYNC_SEED", &s.Seed)
	p.setInt("NETSYNC_CLIENTS", &s.Clients)
	p.setInt("NETSYNC_ENTITIES", &s.Entities)
	p.setTime("NETSYNC_DURATION", &s.Duration)
	p.setTime("NETSYNC_STEP", &s.Step)
	p.setFreq("NETSYNC_SEND_RATE", &s.SendRate)
	p.setTime("NETSYNC_COMMAND_INTERVAL", &s.CommandInterval)
	p.setBool("NETSYNC_RELIABLE", &s.Reliable)
	p.setTime("NETSYNC_LAG", &s.Lag)
	p.setFloat("NETSYNC_DROP", &s.DropProbability)
	p.setTime("NETSYNC_INTERP_DELAY", &s.Delay)
	p.setTime("NETSYNC_SNAP_THRESHOLD", &s.SnapThreshold)
	p.setBool("NETSYNC_TRACE", &s.Trace)
	p.setString("NETSYNC_TRACE_PATH", &s.TracePath)
	p.setBool("NETSYNC_MONITOR", &s.Monitor)
	p.setInt("NETSYNC_MONITOR_PORT", &s.MonitorPort)
	p.setString("NETSYNC_LOG_LEVEL", &s.LogLevel)

	return p.err
}

// Validate reports the first parameter that cannot be used to build a
// scenario.
func (s Scenario) Validate() error {
	switch {
	case s.Clients <= 0:
		return fmt.Errorf("config: clients must be positive, got %d", s.Clients)
	case s.Entities <= 0:
		return fmt.Errorf("config: entities must be positive, got %d", s.Entities)
	case s.Step <= 0:
		return fmt.Errorf("config: step must be positive, got %v", s.Step)
	case s.Duration < 0:
		return fmt.Errorf("config: duration must not be negative, got %v", s.Duration)
	case s.Lag < 0:
		return fmt.Errorf("config: lag must not be negative, got %v", s.Lag)
	case s.DropProbability < 0 || s.DropProbability > 1:
		return fmt.Errorf("config: drop probability must be within [0, 1], got %v",
			s.DropProbability)
	}

	return nil
}

// SessionConfig returns the session parameters of the scenario.
func (s Scenario) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Lag = s.Lag
	cfg.DropProbability = s.DropProbability

	return cfg
}

// Builder returns a simulation builder configured with the scenario.
func (s Scenario) Builder() simulation.Builder {
	return simulation.MakeBuilder().
		WithSeed(s.Seed).
		WithClients(s.Clients).
		WithEntities(s.Entities).
		WithStep(s.Step).
		WithSendRate(s.SendRate).
		WithCommandInterval(s.CommandInterval).
		WithReliableCommands(s.Reliable).
		WithSessionConfig(s.SessionConfig()).
		WithInterpolation(interp.Options{
			Delay:         s.Delay,
			SnapThreshold: s.SnapThreshold,
		})
}

// envParser keeps the first parse error so that every variable can be read
// in a row.
type envParser struct {
	lookup lookupFunc
	err    error
}

func (p *envParser) raw(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}

	v, ok := p.lookup(key)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}

func (p *envParser) fail(key, value string, err error) {
	p.err = fmt.Errorf("config: invalid %s=%q: %w", key, value, err)
}

func (p *envParser) setString(key string, dst *string) {
	if v, ok := p.raw(key); ok {
		*dst = v
	}
}

func (p *envParser) setInt(key string, dst *int) {
	v, ok := p.raw(key)
	if !ok {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = n
}

func (p *envParser) setInt64(key string, dst *int64) {
	v, ok := p.raw(key)
	if !ok {
		return
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = n
}

func (p *envParser) setFloat(key string, dst *float64) {
	v, ok := p.raw(key)
	if !ok {
		return
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = f
}

func (p *envParser) setTime(key string, dst *timing.VTimeInSec) {
	f := float64(*dst)
	p.setFloat(key, &f)
	*dst = timing.VTimeInSec(f)
}

func (p *envParser) setFreq(key string, dst *timing.Freq) {
	f := float64(*dst)
	p.setFloat(key, &f)
	*dst = timing.Freq(f)
}

func (p *envParser) setBool(key string, dst *bool) {
	v, ok := p.raw(key)
	if !ok {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}

	*dst = b
}
