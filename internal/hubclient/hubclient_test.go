package hubclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSignalSuccess(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/signal", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	ok := c.PostSignal(context.Background(), map[string]interface{}{"agentName": "trading-1"})

	assert.True(t, ok)
	assert.Equal(t, "trading-1", received["agentName"])
}

func TestPostSignalFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	ok := c.PostSignal(context.Background(), map[string]interface{}{})
	assert.False(t, ok)
}

func TestPostUnreachableHubDoesNotPanic(t *testing.T) {
	c := New("http://127.0.0.1:1", zerolog.Nop())
	assert.NotPanics(t, func() {
		ok := c.PostGasUpdate(context.Background(), map[string]interface{}{"gwei": 12.3})
		assert.False(t, ok)
	})
}

func TestStartHeartbeatPostsRepeatedly(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, zerolog.Nop())
	hb := c.StartHeartbeat(context.Background(), "agent-1", 10*time.Millisecond)
	time.Sleep(55 * time.Millisecond)
	hb.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}
