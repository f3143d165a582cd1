package emulator

import "github.com/sarchlab/netsync/hooking"

// Builder creates Emulators.
type Builder struct {
	seed    int64
	dropper Dropper
}

// MakeBuilder creates a Builder with seed 0 and a random dropper.
func MakeBuilder() Builder {
	return Builder{}
}

// WithSeed sets the seed of the default random dropper.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithDropper replaces the random dropper.
func (b Builder) WithDropper(d Dropper) Builder {
	b.dropper = d
	return b
}

// Build creates the Emulator.
func (b Builder) Build(name string) *Emulator {
	e := &Emulator{
		name:    name,
		dropper: b.dropper,
	}
	e.HookableBase = hooking.NewHookableBase()

	if e.dropper == nil {
		e.dropper = NewRandomDropper(b.seed)
	}

	e.Reset()

	return e
}
