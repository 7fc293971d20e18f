package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrHandlerNotFound matches every ResolutionError via errors.Is.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrProcessing matches every ProcessingError via errors.Is.
	ErrProcessing = errors.New("processing failed")

	// ErrNotApplied is the cause recorded when Synchronize returns false.
	ErrNotApplied = errors.New("change could not be applied locally")
)

// ResolutionError reports a handler identifier with no local registration.
// This usually means the producer runs a handler this node was not built with.
type ResolutionError struct {
	HandlerID string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to find handler '%s': make sure it is registered on this node", e.HandlerID)
}

// Is makes errors.Is(err, ErrHandlerNotFound) true.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrHandlerNotFound
}

// Stage names where processing failed.
type Stage string

const (
	StageDeserialize Stage = "deserialize"
	StageSynchronize Stage = "synchronize"
)

// ProcessingError wraps any failure after a handler was resolved.
type ProcessingError struct {
	HandlerID string
	Stage     Stage
	Cause     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("handler '%s' failed to %s: %v", e.HandlerID, e.Stage, e.Cause)
}

// Unwrap returns the original cause.
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrProcessing) true.
func (e *ProcessingError) Is(target error) bool {
	return target == ErrProcessing
}
