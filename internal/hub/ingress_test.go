package hub

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestServer() *Server {
	state := NewState()
	socketHub := NewSocketHub(zerolog.Nop())
	return NewServer(state, socketHub, zerolog.Nop(), true)
}

func TestHandleSignalRequiresAgentName(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/api/signal", bytes.NewBufferString(`{"type":"BUY","confidence":80}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, int64(0), s.state.totalSignals)
}

func TestHandleSignalSuccessAppendsAndOverwrites(t *testing.T) {
	s := newTestServer()
	body := `{"agentName":"trading","type":"BUY","confidence":80,"price":1.23,"category":"technical"}`
	req := httptest.NewRequest("POST", "/api/signal", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, int64(1), s.state.totalSignals)

	s.state.mu.RLock()
	sig := s.state.agentSignals["trading"]
	s.state.mu.RUnlock()
	assert.Equal(t, 80.0, sig.Confidence)
}

func TestHandleWhaleAlertRequiresAddress(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/api/whale/alert", bytes.NewBufferString(`{"amount":1000}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleHeartbeatRequiresAgentName(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/api/agent/heartbeat", bytes.NewBufferString(`{"status":"running"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleHealthOK(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}

func TestHandleGetState(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/api/state", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}
