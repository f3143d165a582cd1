package session

import (
	"log/slog"

	"github.com/sarchlab/netsync/codec"
)

// Builder creates hosts and clients that share a transport and a registry.
type Builder struct {
	transport Transport
	registry  *codec.Registry
	cfg       Config
	logger    *slog.Logger
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: DefaultConfig()}
}

// WithTransport sets the transport packets are sent over.
func (b Builder) WithTransport(t Transport) Builder {
	b.transport = t
	return b
}

// WithRegistry sets the registry used to decode data messages.
func (b Builder) WithRegistry(r *codec.Registry) Builder {
	b.registry = r
	return b
}

// WithConfig sets the session configuration.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *slog.Logger) Builder {
	b.logger = l
	return b
}

// BuildHost creates a host with the given name.
func (b Builder) BuildHost(name string) *Host {
	return NewHost(name, b.transport, b.registry, b.cfg, b.logger)
}

// BuildClient creates a client with the given name.
func (b Builder) BuildClient(name string) *Client {
	return NewClient(name, b.transport, b.registry, b.cfg, b.logger)
}
