// Package catalog holds the node-local copy of synchronized catalog entries.
// Entries are opaque bodies grouped by type (layer, style, workspace...) and
// stored per node, so several nodes can share one Redis server.
package catalog

import "fmt"

// Op is the kind of change an Event carries.
type Op string

const (
	// OpPut creates or replaces an entry.
	OpPut Op = "put"

	// OpUpdate replaces an existing entry. Not applied if the entry is absent.
	OpUpdate Op = "update"

	// OpDelete removes an entry. Not applied if the entry is absent.
	OpDelete Op = "delete"
)

// Event is one catalog change as published by the node that made it.
type Event struct {
	Op   Op     `json:"op" yaml:"op"`
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
	Body string `json:"body,omitempty" yaml:"body,omitempty"`
}

// Validate checks that the event can be applied.
func (e *Event) Validate() error {
	switch e.Op {
	case OpPut, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("invalid op: %q (must be 'put', 'update' or 'delete')", e.Op)
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
