// Package advisor is the optional best-effort LLM enrichment client (spec
// §4.9). It wraps a single HTTPS "call(prompt) -> json|nil" surface with a
// strict timeout, bounded retries, and a small process-local response cache.
// Any failure anywhere in the pipeline is non-fatal to the caller: callers
// receive nil and carry on without a narrative enrichment.
package advisor

import (
	"bytes"
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	callTimeout  = 30 * time.Second
	cacheTTL     = 5 * time.Minute
	cacheCap     = 50
	maxAttempts  = 3
	backoffStart = 1 * time.Second
)

// Proxy calls a remote LLM endpoint and returns the first JSON object found
// in its response, or nil on any failure (spec §4.9). It is safe for
// concurrent use.
type Proxy struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[string]*list.Element
	order *list.List // front = most recently inserted, for cap eviction
}

type cacheEntry struct {
	key     string
	value   map[string]interface{}
	storeAt time.Time
}

// New builds a Proxy. endpoint is the full URL of the remote advisory
// service; apiKey is sent as a bearer token. An empty apiKey means the
// advisor is unconfigured and Call always returns nil immediately.
func New(endpoint, apiKey string, log zerolog.Logger) *Proxy {
	return &Proxy{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: callTimeout},
		log:      log.With().Str("component", "advisor").Logger(),
		cache:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Enabled reports whether the proxy has credentials configured.
func (p *Proxy) Enabled() bool {
	return strings.TrimSpace(p.apiKey) != ""
}

// Call sends prompt to the remote endpoint and returns the first parsed JSON
// object embedded in the response, making up to maxAttempts attempts in all
// on transient failures with exponential backoff between them (1s, then 2s
// for the default three attempts). Returns nil on any
// failure or if the proxy is unconfigured — never an error, per spec §4.9 /
// §7 ("Parse-error: return nil; do not raise").
func (p *Proxy) Call(ctx context.Context, prompt string) map[string]interface{} {
	if !p.Enabled() {
		return nil
	}

	key := cacheKey(prompt)
	if cached, ok := p.fromCache(key); ok {
		return cached
	}

	var lastErr error
	delay := backoffStart
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := p.post(ctx, prompt)
		if err == nil {
			if parsed, ok := extractJSON(raw); ok {
				p.store(key, parsed)
				return parsed
			}
			p.log.Warn().Msg("advisor response contained no parseable JSON object")
			return nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
	}

	p.log.Warn().Err(lastErr).Int("attempts", maxAttempts).Msg("advisor call failed, degrading silently")
	return nil
}

func (p *Proxy) post(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]interface{}{
		"prompt":      prompt,
		"temperature": 0.1, // low, for a deterministic JSON shape (spec §4.9)
	})
	if err != nil {
		return "", fmt.Errorf("advisor: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("advisor: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("advisor: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("advisor: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("advisor: status %d", resp.StatusCode)
	}
	return string(data), nil
}

// extractJSON locates the first balanced {...} substring in text and
// attempts to decode it, tolerating an LLM response embedded in prose
// (spec §9: "regex-locate the first balanced span or use a lenient
// extractor").
func extractJSON(text string) (map[string]interface{}, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't affect depth
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				var out map[string]interface{}
				if err := json.Unmarshal([]byte(text[start:i+1]), &out); err != nil {
					return nil, false
				}
				return out, true
			}
		}
	}
	return nil, false
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (p *Proxy) fromCache(key string) (map[string]interface{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.cache[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Since(entry.storeAt) > cacheTTL {
		p.order.Remove(el)
		delete(p.cache, key)
		return nil, false
	}
	return entry.value, true
}

// store inserts key into the cache, evicting the oldest entry by insertion
// order when over capacity (spec §4.9: "cap 50, LRU-by-insert-time
// eviction").
func (p *Proxy) store(key string, value map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.cache[key]; ok {
		p.order.Remove(el)
		delete(p.cache, key)
	}

	el := p.order.PushFront(&cacheEntry{key: key, value: value, storeAt: time.Now()})
	p.cache[key] = el

	for p.order.Len() > cacheCap {
		oldest := p.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		delete(p.cache, entry.key)
		p.order.Remove(oldest)
	}
}
