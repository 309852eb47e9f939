package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Socket fan-out: every subscriber gets a bounded outbound queue; a slow
// consumer is dropped after maxSendFailures consecutive full-queue sends
// rather than letting one client block every other client's delivery (spec
// §4.7, grounded on the non-blocking select/default broadcast pattern with a
// consecutive-failure disconnect policy).
const (
	subscriberQueueSize = 32
	maxSendFailures      = 3
	writeTimeout         = 5 * time.Second
)

// event is the envelope every websocket message carries: {"event": "...",
// "data": ...}. Clients key their handling off Event.
type event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type subscriber struct {
	id        uuid.UUID
	send      chan []byte
	failures  int
	closeOnce sync.Once
	done      chan struct{}
}

// SocketHub fans broadcast events out to every connected websocket
// subscriber and handles the "token:analyze" client-initiated message.
type SocketHub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	log         zerolog.Logger

	onAnalyze func(tokenAddress string)
}

// NewSocketHub builds an empty SocketHub. The onAnalyze callback (invoked off
// the websocket's own goroutine whenever a client sends a token:analyze
// event) is wired afterward via SetOnAnalyze, since the analysis loop it
// triggers is itself constructed from an Analyzer that broadcasts through
// this same hub.
func NewSocketHub(log zerolog.Logger) *SocketHub {
	return &SocketHub{
		subscribers: make(map[*subscriber]struct{}),
		log:         log,
	}
}

// SetOnAnalyze wires the token:analyze callback after construction.
func (h *SocketHub) SetOnAnalyze(fn func(tokenAddress string)) {
	h.mu.Lock()
	h.onAnalyze = fn
	h.mu.Unlock()
}

func (h *SocketHub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Broadcast serializes evt once and fans it out to every subscriber's
// non-blocking queue (spec §4.7: one event per ingress call, event names
// signal/whale:alert/token:launch/mev:opportunity/gas:update/agent:heartbeat/
// analysis:result/error).
func (h *SocketHub) Broadcast(name string, data interface{}) {
	payload, err := json.Marshal(event{Event: name, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("event", name).Msg("failed to marshal broadcast event")
		return
	}
	h.broadcastRaw(payload)
}

func (h *SocketHub) broadcastRaw(payload []byte) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.send <- payload:
			sub.failures = 0
		default:
			sub.failures++
			if sub.failures >= maxSendFailures {
				h.log.Warn().Str("subscriber", sub.id.String()).Int("failures", sub.failures).Msg("disconnecting slow websocket subscriber")
				h.remove(sub)
			}
		}
	}
}

func (h *SocketHub) add(sub *subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
}

func (h *SocketHub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
	sub.closeOnce.Do(func() { close(sub.done) })
}

type tokenAnalyzePayload struct {
	TokenAddress string `json:"tokenAddress"`
}

// handleWebsocket accepts an incoming subscriber connection, sends the
// initial "state" event, then pumps outbound queued messages while reading
// client messages in the same goroutine pair (spec §4.7).
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	ctx := r.Context()

	sub := &subscriber{id: uuid.New(), send: make(chan []byte, subscriberQueueSize), done: make(chan struct{})}
	s.hub.add(sub)
	s.log.Info().Str("subscriber", sub.id.String()).Msg("websocket subscriber connected")
	defer s.hub.remove(sub)
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if initial, err := json.Marshal(event{Event: "state", Data: s.state.InitialState()}); err == nil {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		_ = conn.Write(writeCtx, websocket.MessageText, initial)
		cancel()
	}

	go s.writePump(ctx, conn, sub)
	s.readPump(ctx, conn, sub)
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		case payload := <-sub.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				s.hub.remove(sub)
				return
			}
		}
	}
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sub *subscriber) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		s.handleClientMessage(data, sub)
	}
}

// handleClientMessage accepts either {"event":"token:analyze","data":{...}}
// or a bare JSON string as the token address; anything else emits an
// "error" event back to the sender rather than broadcasting (spec §4.7).
func (s *Server) handleClientMessage(data []byte, sub *subscriber) {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.tryAnalyze(asString, sub)
		return
	}

	var evt event
	if err := json.Unmarshal(data, &evt); err != nil || evt.Event != "token:analyze" {
		s.sendError(sub, "unrecognized message")
		return
	}

	raw, err := json.Marshal(evt.Data)
	if err != nil {
		s.sendError(sub, "invalid token:analyze payload")
		return
	}
	var p tokenAnalyzePayload
	if err := json.Unmarshal(raw, &p); err == nil && p.TokenAddress != "" {
		s.tryAnalyze(p.TokenAddress, sub)
		return
	}
	var addr string
	if err := json.Unmarshal(raw, &addr); err == nil {
		s.tryAnalyze(addr, sub)
		return
	}
	s.sendError(sub, "token:analyze requires a tokenAddress")
}

func (s *Server) tryAnalyze(addr string, sub *subscriber) {
	if len(addr) < 10 {
		s.sendError(sub, "invalid token address")
		return
	}
	s.hub.mu.Lock()
	fn := s.hub.onAnalyze
	s.hub.mu.Unlock()
	if fn != nil {
		fn(addr)
	}
}

func (s *Server) sendError(sub *subscriber, reason string) {
	payload, err := json.Marshal(event{Event: "error", Data: map[string]string{"error": reason}})
	if err != nil {
		return
	}
	select {
	case sub.send <- payload:
	default:
	}
}
