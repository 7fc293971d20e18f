package node

import (
	"context"
	"fmt"

	"github.com/dyluth/drey/internal/catalog"
	"github.com/dyluth/drey/internal/dispatch"
	"github.com/dyluth/drey/pkg/envelope"
	"github.com/google/uuid"
)

// PublishRequest describes one local change to announce to the cluster.
type PublishRequest struct {
	// HandlerID picks the handler that serializes Object; peers use the same ID.
	HandlerID string

	// Object is the domain change.
	Object any

	// Params are request-scoped values (for example REST query parameters)
	// that travel as envelope properties to the peers' handlers.
	Params map[string]string
}

var reserved = map[string]bool{
	envelope.InstanceNameKey: true,
	envelope.HandlerIDKey:    true,
	envelope.EventIDKey:      true,
}

// Publish serializes req.Object with the requested handler and publishes it,
// tagged with this node's identity. Returns the event ID.
func (n *Node) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if !n.cfg.PublishEnabled() {
		return "", ErrPublishDisabled
	}

	h, err := n.registry.Resolve(req.HandlerID)
	if err != nil {
		return "", err
	}
	serializer, ok := h.(dispatch.Serializer)
	if !ok {
		return "", fmt.Errorf("handler '%s' cannot serialize", req.HandlerID)
	}

	payload, err := serializer.Serialize(req.Object)
	if err != nil {
		return "", fmt.Errorf("failed to serialize with '%s': %w", req.HandlerID, err)
	}

	env := envelope.New(payload)
	for k, v := range req.Params {
		if reserved[k] {
			return "", fmt.Errorf("parameter '%s' is reserved", k)
		}
		env.Properties[k] = v
	}

	eventID := uuid.NewString()
	env.Properties[envelope.InstanceNameKey] = n.InstanceName()
	env.Properties[envelope.HandlerIDKey] = req.HandlerID
	env.Properties[envelope.EventIDKey] = eventID

	if err := n.bus.Publish(ctx, env); err != nil {
		return "", err
	}
	return eventID, nil
}

// Commit applies a catalog change locally and then publishes it.
// Nothing is published if the local change does not apply.
func (n *Node) Commit(ctx context.Context, handlerID string, e *catalog.Event, params map[string]string) (string, error) {
	applied, err := n.catalog.Apply(ctx, e)
	if err != nil {
		return "", fmt.Errorf("failed to apply change locally: %w", err)
	}
	if !applied {
		return "", fmt.Errorf("%s %s/%s: entry does not exist", e.Op, e.Type, e.Name)
	}

	return n.Publish(ctx, PublishRequest{HandlerID: handlerID, Object: e, Params: params})
}
