// Package filter decides whether an inbound envelope may be processed at all.
// Every check here is answered from the property bag and the payload shape;
// nothing is deserialized.
package filter

import (
	"errors"
	"fmt"

	"github.com/dyluth/drey/pkg/envelope"
)

// ErrProtocol matches every ProtocolError via errors.Is.
var ErrProtocol = errors.New("protocol error")

// Protocol error reasons.
const (
	ReasonMissingInstance = "missing instance identifier"
	ReasonMissingHandler  = "missing handler identifier"
	ReasonUnrecognized    = "unrecognized message type"
)

// ProtocolError reports a malformed or incomplete envelope.
type ProtocolError struct {
	Reason string
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("protocol error: %s: %s", e.Reason, e.Detail)
}

// Is makes errors.Is(err, ErrProtocol) true for any ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// Decision is the outcome of admission.
type Decision int

const (
	// Rejected envelopes come with a ProtocolError.
	Rejected Decision = iota
	// Discarded envelopes are self-echoes; dropping them is not an error.
	Discarded
	// Admitted envelopes go on to dispatch.
	Admitted
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case Discarded:
		return "discarded"
	default:
		return "rejected"
	}
}

// Identity supplies the local node's instance name. It is read on every
// admission so an identity change after reconfiguration takes effect at once.
type Identity interface {
	InstanceName() string
}

// Filter gates inbound envelopes.
type Filter struct {
	identity Identity
}

// New creates a filter comparing origins against identity.
func New(identity Identity) *Filter {
	return &Filter{identity: identity}
}

// Admit runs the admission checks in order: origin present, not a self-echo,
// handler present, payload is an object. Cheap identity checks come first.
func (f *Filter) Admit(env *envelope.Envelope) (Decision, error) {
	if env == nil {
		return Rejected, &ProtocolError{Reason: ReasonUnrecognized, Detail: "nil envelope"}
	}

	origin, ok := env.Origin()
	if !ok {
		return Rejected, &ProtocolError{
			Reason: ReasonMissingInstance,
			Detail: fmt.Sprintf("property '%s' not set", envelope.InstanceNameKey),
		}
	}

	if origin == f.identity.InstanceName() {
		return Discarded, nil
	}

	// An empty identifier can never resolve, so it counts as missing.
	if id, ok := env.HandlerID(); !ok || id == "" {
		return Rejected, &ProtocolError{
			Reason: ReasonMissingHandler,
			Detail: fmt.Sprintf("property '%s' not set", envelope.HandlerIDKey),
		}
	}

	if env.Kind != envelope.KindObject {
		return Rejected, &ProtocolError{
			Reason: ReasonUnrecognized,
			Detail: fmt.Sprintf("kind '%s'", env.Kind),
		}
	}
	if env.Payload == nil {
		return Rejected, &ProtocolError{Reason: ReasonUnrecognized, Detail: "object envelope without payload"}
	}

	return Admitted, nil
}
