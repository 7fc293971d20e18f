package watch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/drey/internal/catalog"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cat, err := catalog.NewStore(rdb, "node-b")
	require.NoError(t, err)
	return cat
}

func TestPollForEntry(t *testing.T) {
	PollInterval = 10 * time.Millisecond
	ctx := context.Background()

	t.Run("returns immediately when present", func(t *testing.T) {
		cat := setupCatalog(t)
		_, err := cat.Apply(ctx, &catalog.Event{Op: catalog.OpPut, Type: "layer", Name: "roads", Body: "v1"})
		require.NoError(t, err)

		body, err := PollForEntry(ctx, cat, "layer", "roads", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "v1", body)
	})

	t.Run("waits for a late entry", func(t *testing.T) {
		cat := setupCatalog(t)
		go func() {
			time.Sleep(50 * time.Millisecond)
			cat.Apply(ctx, &catalog.Event{Op: catalog.OpPut, Type: "layer", Name: "roads", Body: "late"})
		}()

		body, err := PollForEntry(ctx, cat, "layer", "roads", 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "late", body)
	})

	t.Run("times out", func(t *testing.T) {
		cat := setupCatalog(t)

		_, err := PollForEntry(ctx, cat, "layer", "missing", 50*time.Millisecond)
		assert.ErrorContains(t, err, "timeout waiting for layer/missing")
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cat := setupCatalog(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := PollForEntry(cctx, cat, "layer", "missing", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
