package codec

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when an envelope names an action code that no
// factory was registered for.
var ErrUnknownAction = errors.New("codec: unknown action code")

// Factory creates an empty message ready to be deserialized into.
type Factory func() Message

type registryKey struct {
	class  Class
	action uint8
}

// Registry maps action codes to the message types that decode them.
type Registry struct {
	factories map[registryKey]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[registryKey]Factory)}
}

// Register binds an action code within a class to a factory. Registering the
// same code twice panics.
func (r *Registry) Register(class Class, action uint8, factory Factory) {
	key := registryKey{class: class, action: action}
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("codec: action %d already registered for class %s",
			action, class))
	}

	r.factories[key] = factory
}

// Known reports whether a factory exists for the action code.
func (r *Registry) Known(class Class, action uint8) bool {
	_, ok := r.factories[registryKey{class: class, action: action}]
	return ok
}

// Decode builds the message registered for env's action code from body.
func (r *Registry) Decode(env Envelope, body []byte) (Message, error) {
	factory, ok := r.factories[registryKey{class: env.Class, action: env.Action}]
	if !ok {
		return nil, fmt.Errorf("%w: class %s action %d",
			ErrUnknownAction, env.Class, env.Action)
	}

	msg := factory()
	if err := Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("decoding action %d: %w", env.Action, err)
	}

	return msg, nil
}
