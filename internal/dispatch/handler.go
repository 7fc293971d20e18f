// Package dispatch resolves a producer-declared handler identifier to a locally
// registered handler and drives it through deserialize and synchronize.
package dispatch

import (
	"context"

	"github.com/dyluth/drey/pkg/envelope"
)

// Handler interprets and applies payloads produced by the handler with the
// same ID on a peer node.
//
// SetProperties, Deserialize and Synchronize are called in sequence for one
// message. The dispatcher never runs two sequences on the same handler at once,
// so a handler may keep the properties of the current message in a field.
type Handler interface {
	// ID is the cluster-wide identifier. Lookup is exact and case-sensitive.
	ID() string

	// SetProperties hands over a copy of every property on the envelope.
	SetProperties(props envelope.Properties)

	// Deserialize turns the payload into a domain object.
	Deserialize(payload []byte) (any, error)

	// Synchronize applies obj locally. A well-formed change that cannot be
	// applied returns false rather than an error.
	Synchronize(ctx context.Context, obj any) (bool, error)
}

// Serializer is the producer side of a Handler.
type Serializer interface {
	Serialize(obj any) ([]byte, error)
}

// Provider contributes handlers to a Registry at startup.
type Provider interface {
	Handlers() []Handler
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() []Handler

// Handlers implements Provider.
func (f ProviderFunc) Handlers() []Handler {
	return f()
}

// Static is a Provider over a fixed list of handlers.
func Static(handlers ...Handler) Provider {
	return ProviderFunc(func() []Handler { return handlers })
}
