package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyluth/drey/pkg/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHandler records what the dispatcher hands it.
type fakeHandler struct {
	id           string
	props        envelope.Properties
	deserialized []byte
	synced       any

	deserializeErr error
	syncResult     bool
	syncErr        error
	panicOn        Stage

	active  int32
	overlap int32
	delay   time.Duration
}

func newFake(id string) *fakeHandler {
	return &fakeHandler{id: id, syncResult: true}
}

func (f *fakeHandler) ID() string { return f.id }

func (f *fakeHandler) SetProperties(props envelope.Properties) {
	if atomic.AddInt32(&f.active, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	f.props = props
}

func (f *fakeHandler) Deserialize(payload []byte) (any, error) {
	if f.panicOn == StageDeserialize {
		panic("corrupt")
	}
	f.deserialized = payload
	if f.deserializeErr != nil {
		atomic.AddInt32(&f.active, -1)
		return nil, f.deserializeErr
	}
	return string(payload), nil
}

func (f *fakeHandler) Synchronize(ctx context.Context, obj any) (bool, error) {
	defer atomic.AddInt32(&f.active, -1)
	if f.panicOn == StageSynchronize {
		panic("boom")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.synced = obj
	return f.syncResult, f.syncErr
}

func envelopeFor(handlerID string, payload string) *envelope.Envelope {
	env := envelope.New([]byte(payload))
	env.Properties[envelope.InstanceNameKey] = "node-x"
	env.Properties[envelope.HandlerIDKey] = handlerID
	return env
}

func TestNewRegistry(t *testing.T) {
	t.Run("collects handlers from every provider", func(t *testing.T) {
		reg, err := NewRegistry(Static(newFake("b")), ProviderFunc(func() []Handler {
			return []Handler{newFake("a")}
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, reg.IDs())
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewRegistry(Static(newFake("a")), Static(newFake("a")))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate handler identifier 'a'")
	})

	t.Run("rejects empty identifiers", func(t *testing.T) {
		_, err := NewRegistry(Static(newFake("")))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty identifier")
	})

	t.Run("rejects nil handlers", func(t *testing.T) {
		_, err := NewRegistry(Static(nil))
		assert.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	reg, err := NewRegistry(Static(newFake("catalog.json/v1")))
	require.NoError(t, err)

	h, err := reg.Resolve("catalog.json/v1")
	require.NoError(t, err)
	assert.Equal(t, "catalog.json/v1", h.ID())

	_, err = reg.Resolve("Catalog.json/v1")
	assert.ErrorIs(t, err, ErrHandlerNotFound, "lookup is case-sensitive")

	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Catalog.json/v1", rerr.HandlerID)
}

func TestDispatch_Success(t *testing.T) {
	h := newFake("h")
	reg, err := NewRegistry(Static(h))
	require.NoError(t, err)
	d := NewDispatcher(reg)

	env := envelopeFor("h", "payload")
	env.Properties["txId"] = "tx-42"
	env.Properties["count"] = 3

	require.NoError(t, d.Dispatch(context.Background(), env))

	assert.Equal(t, []byte("payload"), h.deserialized)
	assert.Equal(t, "payload", h.synced)
	assert.Equal(t, "tx-42", h.props["txId"], "every property should reach the handler")
	assert.Equal(t, 3, h.props["count"])
	assert.Equal(t, "node-x", h.props[envelope.InstanceNameKey])

	h.props["txId"] = "mutated"
	assert.Equal(t, "tx-42", env.Properties["txId"], "handler gets a copy")
}

func TestDispatch_Failures(t *testing.T) {
	cause := errors.New("underlying")

	tests := []struct {
		name    string
		setup   func(h *fakeHandler)
		stage   Stage
		isCause error
	}{
		{"deserialize error", func(h *fakeHandler) { h.deserializeErr = cause }, StageDeserialize, cause},
		{"synchronize error", func(h *fakeHandler) { h.syncErr = cause }, StageSynchronize, cause},
		{"synchronize returns false", func(h *fakeHandler) { h.syncResult = false }, StageSynchronize, ErrNotApplied},
		{"deserialize panics", func(h *fakeHandler) { h.panicOn = StageDeserialize }, StageDeserialize, nil},
		{"synchronize panics", func(h *fakeHandler) { h.panicOn = StageSynchronize }, StageSynchronize, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFake("h")
			tt.setup(h)
			reg, err := NewRegistry(Static(h))
			require.NoError(t, err)

			err = NewDispatcher(reg).Dispatch(context.Background(), envelopeFor("h", "p"))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProcessing)

			var perr *ProcessingError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.stage, perr.Stage)
			assert.Equal(t, "h", perr.HandlerID)
			if tt.isCause != nil {
				assert.ErrorIs(t, err, tt.isCause)
			}
		})
	}
}

func TestDispatch_UnknownHandler(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	err = NewDispatcher(reg).Dispatch(context.Background(), envelopeFor("missing", "p"))
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.NotErrorIs(t, err, ErrProcessing)
}

func TestDispatch_CancelledContext(t *testing.T) {
	h := newFake("h")
	reg, err := NewRegistry(Static(h))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewDispatcher(reg).Dispatch(ctx, envelopeFor("h", "p"))
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, h.synced)
}

func TestDispatch_SerializesPerHandler(t *testing.T) {
	h := newFake("h")
	h.delay = 2 * time.Millisecond
	reg, err := NewRegistry(Static(h))
	require.NoError(t, err)
	d := NewDispatcher(reg)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Dispatch(context.Background(), envelopeFor("h", "p")))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&h.overlap), "invocations on one handler must not overlap")
}
