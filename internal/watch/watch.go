// Package watch waits for catalog entries to reach a node.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/drey/internal/catalog"
)

// PollInterval is how often PollForEntry checks the catalog.
var PollInterval = 200 * time.Millisecond

// PollForEntry polls cat until entryType/name exists and returns its body.
// Returns an error if ctx ends or timeout elapses first.
func PollForEntry(ctx context.Context, cat *catalog.Store, entryType, name string, timeout time.Duration) (string, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		body, err := cat.Get(ctx, entryType, name)
		if err == nil {
			return body, nil
		}
		if !catalog.IsNotFound(err) {
			return "", fmt.Errorf("failed to query catalog: %w", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case <-timeoutCh:
			return "", fmt.Errorf("timeout waiting for %s/%s after %v", entryType, name, timeout)

		case <-ticker.C:
		}
	}
}
