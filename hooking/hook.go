// Package hooking lets observers attach to the emulator and the session
// managers without those packages knowing who is listening.
package hooking

import "github.com/sarchlab/netsync/timing"

// HookPos names a point in the lifecycle of a packet, a peer or a message at
// which hooks are invoked.
type HookPos struct {
	Name string
}

// HookCtx describes one hook invocation.
type HookCtx struct {
	// Domain is the object raising the hook.
	Domain Hookable

	// Pos is where in the domain the hook fires from.
	Pos *HookPos

	// Now is the virtual time of the event.
	Now timing.VTimeInSec

	// Item is the subject of the event: a packet, a peer or an envelope.
	Item any

	// Detail holds optional extra data, such as the error that caused a
	// packet to be rejected.
	Detail any
}

// Named is implemented by domains that have a human readable name.
type Named interface {
	Name() string
}

// Hookable is an object that accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks are attached during setup and are
	// never removed.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int
}

// Hook is invoked by a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements Hookable and is meant to be embedded.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates a HookableBase with no hooks.
func NewHookableBase() *HookableBase {
	return &HookableBase{hooks: make([]Hook, 0)}
}

// AcceptHook registers a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hooks {
		if sameHook(existing, hook) {
			panic("hooking: duplicated hook")
		}
	}

	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook calls every registered hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}

// sameHook compares hooks by identity. Function hooks are not comparable, so
// they are always treated as distinct.
func sameHook(a, b Hook) bool {
	if _, ok := a.(HookFunc); ok {
		return false
	}

	if _, ok := b.(HookFunc); ok {
		return false
	}

	return a == b
}

var _ Hookable = (*HookableBase)(nil)
