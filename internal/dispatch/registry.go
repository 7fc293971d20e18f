package dispatch

import (
	"fmt"
	"sort"
	"sync"
)

// registration pairs a handler with the lock serializing its invocations.
type registration struct {
	handler Handler
	mu      sync.Mutex
}

// Registry maps handler identifiers to handlers. It is built once and never
// modified, so lookups need no locking.
type Registry struct {
	entries map[string]*registration
}

// NewRegistry collects the handlers of every provider.
// Empty or duplicate identifiers are rejected.
func NewRegistry(providers ...Provider) (*Registry, error) {
	entries := make(map[string]*registration)
	for _, p := range providers {
		for _, h := range p.Handlers() {
			if h == nil {
				return nil, fmt.Errorf("provider returned a nil handler")
			}
			id := h.ID()
			if id == "" {
				return nil, fmt.Errorf("handler %T has an empty identifier", h)
			}
			if _, exists := entries[id]; exists {
				return nil, fmt.Errorf("duplicate handler identifier '%s'", id)
			}
			entries[id] = &registration{handler: h}
		}
	}
	return &Registry{entries: entries}, nil
}

// Resolve returns the handler registered under id, or a *ResolutionError.
func (r *Registry) Resolve(id string) (Handler, error) {
	reg, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return reg.handler, nil
}

func (r *Registry) lookup(id string) (*registration, error) {
	reg, ok := r.entries[id]
	if !ok {
		return nil, &ResolutionError{HandlerID: id}
	}
	return reg, nil
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.entries)
}
