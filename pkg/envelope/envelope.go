// Package envelope defines the unit of delivery exchanged between drey nodes.
// An envelope is a property bag plus one opaque payload. The payload is produced
// by a handler chosen by the publishing node and is never inspected by the
// transport or the admission filter beyond its shape.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Well-known property keys carried by every envelope published by a drey node.
const (
	// InstanceNameKey names the origin node. Matches the config key of the same name.
	InstanceNameKey = "instanceName"

	// HandlerIDKey names the handler that serialized the payload on the producer side.
	HandlerIDKey = "handlerId"

	// EventIDKey is a per-publish UUID, useful for correlating logs across nodes.
	EventIDKey = "eventId"
)

// Kind describes the container shape of an envelope payload.
type Kind string

const (
	// KindObject is a serialized object payload. It is the only kind consumers apply.
	KindObject Kind = "object"

	// KindStream is a raw byte stream (file transfer). Not applied by this core.
	KindStream Kind = "stream"

	// KindText is a plain text message. Not applied by this core.
	KindText Kind = "text"
)

// Properties is a string-keyed bag of scalar values (string, bool, numbers).
type Properties map[string]any

// Envelope is one inbound or outbound unit of delivery.
type Envelope struct {
	Properties Properties `json:"properties"`
	Kind       Kind       `json:"kind"`
	Payload    []byte     `json:"payload"` // base64 on the wire
}

// New creates an object envelope with an empty property bag.
func New(payload []byte) *Envelope {
	return &Envelope{
		Properties: Properties{},
		Kind:       KindObject,
		Payload:    payload,
	}
}

// Has reports whether the property key is present with a non-nil value.
func (p Properties) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the property as a string. Non-string scalars are formatted
// with fmt; a missing or nil property returns ("", false).
func (p Properties) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Clone returns a shallow copy. Values are scalars so a shallow copy is independent.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Origin returns the origin instance name, if present.
func (e *Envelope) Origin() (string, bool) {
	return e.Properties.String(InstanceNameKey)
}

// HandlerID returns the producer-declared handler identifier, if present.
func (e *Envelope) HandlerID() (string, bool) {
	return e.Properties.String(HandlerIDKey)
}

// Marshal encodes the envelope into its JSON wire form.
func Marshal(e *Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an envelope from its JSON wire form.
// Structural problems with the payload are left to the admission filter;
// only undecodable JSON is an error here.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if e.Properties == nil {
		e.Properties = Properties{}
	}
	return &e, nil
}
