// Package hubclient posts agent output to the Hub over plain HTTP. Every
// call is fire-and-forget: failures are logged and swallowed so a Hub outage
// never stalls an agent's chain interaction (spec §4.4).
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 5 * time.Second

// Client posts events to a Hub instance.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New builds a Client targeting baseURL (e.g. http://127.0.0.1:8080). A
// ws:// or wss:// baseURL is posted to over http:// or https:// respectively.
func New(baseURL string, log zerolog.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(baseURL, "ws://") {
		baseURL = "http://" + strings.TrimPrefix(baseURL, "ws://")
	} else if strings.HasPrefix(baseURL, "wss://") {
		baseURL = "https://" + strings.TrimPrefix(baseURL, "wss://")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log.With().Str("client", "hub").Logger(),
	}
}

// PostSignal sends a trading/analysis signal. Returns whether the post
// succeeded; callers never treat failure as fatal.
func (c *Client) PostSignal(ctx context.Context, body interface{}) bool {
	return c.post(ctx, "/api/signal", body)
}

// PostMevOpportunity sends an MEV-opportunity event.
func (c *Client) PostMevOpportunity(ctx context.Context, body interface{}) bool {
	return c.post(ctx, "/api/mev/opportunity", body)
}

// PostTokenLaunch sends a token-launch event.
func (c *Client) PostTokenLaunch(ctx context.Context, body interface{}) bool {
	return c.post(ctx, "/api/token/launch", body)
}

// PostGasUpdate sends a gas-price update event.
func (c *Client) PostGasUpdate(ctx context.Context, body interface{}) bool {
	return c.post(ctx, "/api/gas/update", body)
}

// PostWhaleAlert sends a whale-activity alert.
func (c *Client) PostWhaleAlert(ctx context.Context, body interface{}) bool {
	return c.post(ctx, "/api/whale/alert", body)
}

// PostHeartbeat sends a single agent heartbeat.
func (c *Client) PostHeartbeat(ctx context.Context, body interface{}) bool {
	return c.post(ctx, "/api/agent/heartbeat", body)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) bool {
	buf, err := json.Marshal(body)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to marshal hub payload")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to build hub request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("hub post failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("hub post rejected")
		return false
	}
	return true
}

// Heartbeat is a running background cadence started by StartHeartbeat.
type Heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the cadence and waits for the background goroutine to exit.
func (h *Heartbeat) Stop() {
	h.cancel()
	<-h.done
}

// StartHeartbeat begins posting `/api/agent/heartbeat` every interval until
// Stop is called or ctx is cancelled (spec §4.4).
func (c *Client) StartHeartbeat(ctx context.Context, agentID string, interval time.Duration) *Heartbeat {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				c.PostHeartbeat(hbCtx, map[string]interface{}{
					"agentName": agentID,
					"timestamp": time.Now().UnixMilli(),
				})
			}
		}
	}()

	return &Heartbeat{cancel: cancel, done: done}
}

// Endpoint returns the fully-qualified URL for path, primarily for logging
// and tests.
func (c *Client) Endpoint(path string) string {
	return fmt.Sprintf("%s%s", c.baseURL, path)
}
