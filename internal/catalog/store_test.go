package catalog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, instanceName string) (*Store, *redis.Client) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store, err := NewStore(rdb, instanceName)
	require.NoError(t, err)
	return store, rdb
}

func TestNewStore_RejectsEmptyInstance(t *testing.T) {
	_, err := NewStore(nil, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "instance name cannot be empty")
}

func TestApply(t *testing.T) {
	store, _ := setupTestStore(t, "node-a")
	ctx := context.Background()

	t.Run("put creates entry", func(t *testing.T) {
		ok, err := store.Apply(ctx, &Event{Op: OpPut, Type: "style", Name: "roads", Body: "<sld/>"})
		require.NoError(t, err)
		assert.True(t, ok)

		body, err := store.Get(ctx, "style", "roads")
		require.NoError(t, err)
		assert.Equal(t, "<sld/>", body)
	})

	t.Run("update replaces existing entry", func(t *testing.T) {
		ok, err := store.Apply(ctx, &Event{Op: OpUpdate, Type: "style", Name: "roads", Body: "<sld v2/>"})
		require.NoError(t, err)
		assert.True(t, ok)

		body, err := store.Get(ctx, "style", "roads")
		require.NoError(t, err)
		assert.Equal(t, "<sld v2/>", body)
	})

	t.Run("update of absent entry is not applied", func(t *testing.T) {
		ok, err := store.Apply(ctx, &Event{Op: OpUpdate, Type: "style", Name: "rivers", Body: "x"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete removes entry", func(t *testing.T) {
		ok, err := store.Apply(ctx, &Event{Op: OpDelete, Type: "style", Name: "roads"})
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = store.Get(ctx, "style", "roads")
		assert.True(t, IsNotFound(err))
	})

	t.Run("delete of absent entry is not applied", func(t *testing.T) {
		ok, err := store.Apply(ctx, &Event{Op: OpDelete, Type: "style", Name: "roads"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid event is an error", func(t *testing.T) {
		_, err := store.Apply(ctx, &Event{Op: "rename", Type: "style", Name: "roads"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid event")
	})
}

func TestStore_IsNamespacedByInstance(t *testing.T) {
	store, rdb := setupTestStore(t, "node-a")
	ctx := context.Background()

	other, err := NewStore(rdb, "node-b")
	require.NoError(t, err)

	_, err = store.Apply(ctx, &Event{Op: OpPut, Type: "layer", Name: "roads", Body: "a"})
	require.NoError(t, err)

	entries, err := other.List(ctx, "layer")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = store.List(ctx, "layer")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"roads": "a"}, entries)

	exists, err := rdb.Exists(ctx, EntriesKey("node-a", "layer")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name   string
		event  Event
		errMsg string
	}{
		{"valid put", Event{Op: OpPut, Type: "layer", Name: "roads"}, ""},
		{"bad op", Event{Op: "", Type: "layer", Name: "roads"}, "invalid op"},
		{"missing type", Event{Op: OpDelete, Name: "roads"}, "type is required"},
		{"missing name", Event{Op: OpDelete, Type: "layer"}, "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
