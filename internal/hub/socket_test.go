package hub

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestBroadcastDropsSlowSubscriberAfterThreeFailures is the regression guard
// for the non-blocking fan-out's drop policy.
func TestBroadcastDropsSlowSubscriberAfterThreeFailures(t *testing.T) {
	h := NewSocketHub(zerolog.Nop())
	sub := &subscriber{send: make(chan []byte), done: make(chan struct{})} // unbuffered: every send blocks
	h.add(sub)

	assert.Equal(t, 1, h.ConnectionCount())

	h.Broadcast("signal", map[string]string{"a": "1"})
	h.Broadcast("signal", map[string]string{"a": "2"})
	h.Broadcast("signal", map[string]string{"a": "3"})

	assert.Equal(t, 0, h.ConnectionCount())
}

func TestBroadcastDeliversToHealthySubscriber(t *testing.T) {
	h := NewSocketHub(zerolog.Nop())
	sub := &subscriber{send: make(chan []byte, 4), done: make(chan struct{})}
	h.add(sub)

	h.Broadcast("signal", map[string]string{"a": "1"})

	select {
	case payload := <-sub.send:
		assert.Contains(t, string(payload), `"event":"signal"`)
	default:
		t.Fatal("expected a queued payload")
	}
}

func TestSetOnAnalyzeIsWiredAfterConstruction(t *testing.T) {
	h := NewSocketHub(zerolog.Nop())
	called := ""
	h.SetOnAnalyze(func(addr string) { called = addr })

	h.mu.Lock()
	fn := h.onAnalyze
	h.mu.Unlock()
	fn("0xDEADBEEF00000000")

	assert.Equal(t, "0xDEADBEEF00000000", called)
}
