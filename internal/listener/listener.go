// Package listener is the single entry point the bus calls for every delivery.
// It runs admission, then dispatch, and turns the outcome into one error value.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/dyluth/drey/internal/dispatch"
	"github.com/dyluth/drey/internal/filter"
	"github.com/dyluth/drey/pkg/envelope"
)

// State is where a message ended up.
type State string

const (
	StateDiscarded         State = "discarded"
	StateRejected          State = "rejected"
	StateHandlerNotFound   State = "handler_not_found"
	StateDeserializeFailed State = "deserialize_failed"
	StateSynchronizeFailed State = "synchronize_failed"
	StateSynchronized      State = "synchronized"
)

// Listener wires a Filter to a Dispatcher.
type Listener struct {
	identity   filter.Identity
	filter     *filter.Filter
	dispatcher *dispatch.Dispatcher
}

// New creates a listener. identity is the same one the filter compares against
// and is only used to label log events.
func New(identity filter.Identity, f *filter.Filter, d *dispatch.Dispatcher) *Listener {
	return &Listener{identity: identity, filter: f, dispatcher: d}
}

// OnMessage handles one delivery. It returns nil when the message was applied
// or discarded as a self-echo, and the stage's error otherwise. A non-nil
// error is a negative acknowledgment to the transport.
func (l *Listener) OnMessage(ctx context.Context, env *envelope.Envelope) error {
	_, err := l.Process(ctx, env)
	return err
}

// Process is OnMessage, also reporting the final state.
func (l *Listener) Process(ctx context.Context, env *envelope.Envelope) (State, error) {
	start := time.Now()

	decision, err := l.filter.Admit(env)
	switch decision {
	case filter.Discarded:
		log.Printf("[DEBUG] Incoming message discarded: source is equal to destination")
		return StateDiscarded, nil
	case filter.Rejected:
		l.report(StateRejected, env, start, err)
		return StateRejected, err
	}

	err = l.dispatcher.Dispatch(ctx, env)
	state := classify(err)
	l.report(state, env, start, err)
	return state, err
}

func classify(err error) State {
	if err == nil {
		return StateSynchronized
	}
	if errors.Is(err, dispatch.ErrHandlerNotFound) {
		return StateHandlerNotFound
	}
	var perr *dispatch.ProcessingError
	if errors.As(err, &perr) && perr.Stage == dispatch.StageDeserialize {
		return StateDeserializeFailed
	}
	return StateSynchronizeFailed
}

func (l *Listener) report(state State, env *envelope.Envelope, start time.Time, err error) {
	data := map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if env != nil {
		if origin, ok := env.Origin(); ok {
			data["origin"] = origin
		}
		if handlerID, ok := env.HandlerID(); ok {
			data["handler_id"] = handlerID
		}
		if eventID, ok := env.Properties.String(envelope.EventIDKey); ok {
			data["event_id"] = eventID
		}
	}

	level := "info"
	if err != nil {
		level = "error"
		data["error"] = err.Error()
	}
	l.logEvent(string(state), level, data)
}

// logEvent writes one structured JSON log line.
func (l *Listener) logEvent(eventType, level string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = level
	data["component"] = "listener"
	data["event_type"] = eventType
	data["instance"] = l.identity.InstanceName()

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Listener] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
