package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeStatus struct{}

func (fakeStatus) InstanceName() string { return "node-a" }

func (fakeStatus) Counters() (int64, int64) { return 7, 2 }

func TestHealthCheck(t *testing.T) {
	t.Run("healthy when redis answers", func(t *testing.T) {
		srv := NewServer(fakePinger{}, fakeStatus{}, ":0")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "node-a", resp.Instance)
		assert.Equal(t, "connected", resp.Redis)
		assert.Equal(t, int64(7), resp.Delivered)
		assert.Equal(t, int64(2), resp.Failed)
	})

	t.Run("unhealthy when redis is down", func(t *testing.T) {
		srv := NewServer(fakePinger{err: errors.New("connection refused")}, fakeStatus{}, ":0")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "disconnected", resp.Redis)
		assert.Equal(t, "connection refused", resp.Error)
	})

	t.Run("rejects non-GET", func(t *testing.T) {
		srv := NewServer(fakePinger{}, fakeStatus{}, ":0")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestStartShutdown(t *testing.T) {
	srv := NewServer(fakePinger{}, fakeStatus{}, "127.0.0.1:0")
	require.NoError(t, srv.Start())
	assert.NoError(t, srv.Shutdown(context.Background()))

	idle := NewServer(fakePinger{}, fakeStatus{}, "127.0.0.1:0")
	assert.NoError(t, idle.Shutdown(context.Background()), "shutdown before start is a no-op")
}
