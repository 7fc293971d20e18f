// Package handlers provides the built-in synchronizers for catalog events.
// The same event can travel in two encodings; the producer picks one and the
// consumer follows the handler ID on the envelope.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dyluth/drey/internal/catalog"
	"github.com/dyluth/drey/internal/dispatch"
	"github.com/dyluth/drey/pkg/envelope"
	"gopkg.in/yaml.v3"
)

// Built-in handler identifiers.
const (
	CatalogJSON = "catalog.json/v1"
	CatalogYAML = "catalog.yaml/v1"
)

// TargetTypeKey is an optional envelope property replacing the event's type
// on the consumer, for nodes that file entries under a different type name.
const TargetTypeKey = "targetType"

// Applier applies a catalog event to local state.
type Applier interface {
	Apply(ctx context.Context, e *catalog.Event) (bool, error)
}

type codec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// CatalogHandler synchronizes catalog.Event payloads into an Applier.
// It holds the properties of the message currently being handled, so it relies
// on the dispatcher serializing calls.
type CatalogHandler struct {
	id    string
	codec codec
	store Applier
	props envelope.Properties
}

// NewJSON creates the catalog.json/v1 handler.
func NewJSON(store Applier) *CatalogHandler {
	return &CatalogHandler{
		id:    CatalogJSON,
		codec: codec{marshal: json.Marshal, unmarshal: json.Unmarshal},
		store: store,
	}
}

// NewYAML creates the catalog.yaml/v1 handler.
func NewYAML(store Applier) *CatalogHandler {
	return &CatalogHandler{
		id:    CatalogYAML,
		codec: codec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal},
		store: store,
	}
}

// ID implements dispatch.Handler.
func (h *CatalogHandler) ID() string {
	return h.id
}

// SetProperties implements dispatch.Handler.
func (h *CatalogHandler) SetProperties(props envelope.Properties) {
	h.props = props
}

// Deserialize implements dispatch.Handler.
func (h *CatalogHandler) Deserialize(payload []byte) (any, error) {
	var e catalog.Event
	if err := h.codec.unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to decode catalog event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog event: %w", err)
	}
	return &e, nil
}

// Synchronize implements dispatch.Handler.
func (h *CatalogHandler) Synchronize(ctx context.Context, obj any) (bool, error) {
	e, ok := obj.(*catalog.Event)
	if !ok {
		return false, fmt.Errorf("unexpected object %T", obj)
	}

	if target, ok := h.props.String(TargetTypeKey); ok && target != "" {
		retyped := *e
		retyped.Type = target
		e = &retyped
	}

	return h.store.Apply(ctx, e)
}

// Serialize implements dispatch.Serializer.
func (h *CatalogHandler) Serialize(obj any) ([]byte, error) {
	var e *catalog.Event
	switch v := obj.(type) {
	case *catalog.Event:
		e = v
	case catalog.Event:
		e = &v
	default:
		return nil, fmt.Errorf("handler '%s' cannot serialize %T", h.id, obj)
	}

	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog event: %w", err)
	}

	data, err := h.codec.marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog event: %w", err)
	}
	return data, nil
}

// Builtins lists every built-in handler ID.
func Builtins() []string {
	return []string{CatalogJSON, CatalogYAML}
}

// Provider returns a dispatch.Provider with the built-in handlers named in
// enabled, or all of them when enabled is empty. Unknown names are an error.
func Provider(store Applier, enabled []string) (dispatch.Provider, error) {
	all := map[string]func(Applier) *CatalogHandler{
		CatalogJSON: NewJSON,
		CatalogYAML: NewYAML,
	}

	if len(enabled) == 0 {
		enabled = Builtins()
	}

	handlers := make([]dispatch.Handler, 0, len(enabled))
	for _, id := range enabled {
		build, ok := all[id]
		if !ok {
			return nil, fmt.Errorf("unknown handler '%s' (available: %v)", id, Builtins())
		}
		handlers = append(handlers, build(store))
	}
	return dispatch.Static(handlers...), nil
}
