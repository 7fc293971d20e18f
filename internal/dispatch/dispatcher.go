package dispatch

import (
	"context"
	"fmt"

	"github.com/dyluth/drey/pkg/envelope"
)

// Dispatcher drives admitted envelopes through their handler.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher creates a dispatcher over an explicit registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Registry returns the registry this dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch resolves the envelope's handler, hands it every envelope property,
// deserializes the payload and synchronizes the result.
//
// The envelope must already be admitted. Calls for the same handler ID are
// serialized; different handlers run in parallel. A panicking handler is
// reported as a ProcessingError. ctx is passed to
// Synchronize so callers can impose a per-message deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, env *envelope.Envelope) (err error) {
	id, ok := env.HandlerID()
	if !ok {
		return fmt.Errorf("dispatch called with envelope missing '%s'", envelope.HandlerIDKey)
	}

	reg, err := d.registry.lookup(id)
	if err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	stage := StageDeserialize
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{HandlerID: id, Stage: stage, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	h := reg.handler
	h.SetProperties(env.Properties.Clone())

	obj, err := h.Deserialize(env.Payload)
	if err != nil {
		return &ProcessingError{HandlerID: id, Stage: StageDeserialize, Cause: err}
	}

	stage = StageSynchronize
	if err := ctx.Err(); err != nil {
		return &ProcessingError{HandlerID: id, Stage: StageSynchronize, Cause: err}
	}

	applied, err := h.Synchronize(ctx, obj)
	if err != nil {
		return &ProcessingError{HandlerID: id, Stage: StageSynchronize, Cause: err}
	}
	if !applied {
		return &ProcessingError{HandlerID: id, Stage: StageSynchronize, Cause: ErrNotApplied}
	}

	return nil
}
