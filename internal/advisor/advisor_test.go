package advisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_Disabled(t *testing.T) {
	p := New("http://example.invalid", "", zerolog.Nop())
	require.False(t, p.Enabled())
	assert.Nil(t, p.Call(context.Background(), "hello"))
}

func TestCall_ExtractsEmbeddedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`Sure, here you go:\n{"direction":"UP","confidence":0.8}\nHope that helps.`))
	}))
	defer srv.Close()

	p := New(srv.URL, "test-key", zerolog.Nop())
	result := p.Call(context.Background(), "prompt")
	require.NotNil(t, result)
	assert.Equal(t, "UP", result["direction"])
}

func TestCall_CachesResult(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	p := New(srv.URL, "test-key", zerolog.Nop())
	first := p.Call(context.Background(), "same prompt")
	second := p.Call(context.Background(), "same prompt")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCall_RetriesThenGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(srv.URL, "test-key", zerolog.Nop())
	result := p.Call(context.Background(), "flaky prompt")
	assert.Nil(t, result)
	assert.EqualValues(t, maxAttempts, atomic.LoadInt32(&calls))
}

func TestCall_UnparsablePayloadReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("no json here at all"))
	}))
	defer srv.Close()

	p := New(srv.URL, "test-key", zerolog.Nop())
	assert.Nil(t, p.Call(context.Background(), "prompt"))
}

func TestExtractJSON_IgnoresBracesInsideStrings(t *testing.T) {
	text := `prefix {"reason": "uses a { brace } inside a string", "ok": true} suffix`
	parsed, ok := extractJSON(text)
	require.True(t, ok)
	assert.Equal(t, true, parsed["ok"])
}

func TestCacheEviction_RespectsCapacity(t *testing.T) {
	p := New("http://example.invalid", "test-key", zerolog.Nop())
	for i := 0; i < cacheCap+5; i++ {
		p.store(cacheKey(string(rune('a'+i))), map[string]interface{}{"i": i})
	}
	p.mu.Lock()
	n := len(p.cache)
	p.mu.Unlock()
	assert.Equal(t, cacheCap, n)
}
