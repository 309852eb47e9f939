// Package agent implements the generic per-variant execution loop (spec
// §4.5): init, register, prime history, then a serial tick loop that fetches
// a price, runs variant-specific analysis, and fans the result out to the
// chain and the Hub. A panic or error inside one tick is isolated — it never
// kills the process or clears history (spec §4.5 fault handling).
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeddevall/duckmon-agents-ai/internal/chain"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/hubclient"
	"github.com/yeddevall/duckmon-agents-ai/internal/priceservice"
	"github.com/yeddevall/duckmon-agents-ai/internal/ring"
)

// Result is what a variant's Analyze returns for one tick.
type Result struct {
	// Signal is posted to the Hub unconditionally (best-effort) when non-nil.
	Signal *domain.Signal
	// OnChainConfidence gates the on-chain PostSignal call: it only fires
	// when Signal != nil and OnChainConfidence >= Config.MinConfidenceForOnChainPost.
	OnChainConfidence float64
	// HubExtra holds additional fields merged into the Hub POST payload
	// (e.g. whale alerts, bonding-curve alerts) beyond the base Signal.
	HubExtra map[string]interface{}
}

// Analyzer is implemented by each agent variant.
type Analyzer interface {
	// Analyze runs one tick's worth of computation against the current
	// shared State and returns what to emit.
	Analyze(ctx context.Context, s *State) (Result, error)
}

// PredictionVerifier is implemented only by the Prediction variant; when an
// Analyzer also satisfies this, VerifyPending runs before each tick's fetch
// step (spec §4.5 step 2e).
type PredictionVerifier interface {
	VerifyPending(ctx context.Context, s *State) error
}

// State is the shared, single-writer state visible to Analyze. It is only
// ever touched from the agent's own tick goroutine, so no locking is needed
// inside a single process (spec §5).
type State struct {
	TokenAddress string
	History      *ring.History[domain.PriceSample]
	Chain        *chain.Client
	Price        *priceservice.Service
	Log          zerolog.Logger

	// Aux is variant-owned scratch state (whale tallies, pending predictions,
	// gas history, etc.) that outlives a single tick.
	Aux interface{}
}

// Config parameterizes one running agent (spec §4.5).
type Config struct {
	Name                        string
	Category                    domain.Category
	TokenAddress                string
	Interval                    time.Duration
	HistorySize                 int
	MinConfidenceForOnChainPost float64
	HeartbeatInterval           time.Duration
}

// Agent wires a Config + Analyzer to the shared infrastructure clients.
type Agent struct {
	cfg      Config
	analyzer Analyzer
	chain    *chain.Client
	price    *priceservice.Service
	hub      *hubclient.Client
	log      zerolog.Logger

	state *State
}

// New constructs an Agent. The chain client may be in read-only mode; Run
// degrades gracefully in that case (no RegisterAgent/PostSignal calls).
func New(cfg Config, analyzer Analyzer, chainClient *chain.Client, price *priceservice.Service, hub *hubclient.Client, log zerolog.Logger) *Agent {
	log = log.With().Str("agent", cfg.Name).Str("category", string(cfg.Category)).Logger()
	return &Agent{
		cfg:      cfg,
		analyzer: analyzer,
		chain:    chainClient,
		price:    price,
		hub:      hub,
		log:      log,
		state: &State{
			TokenAddress: cfg.TokenAddress,
			History:      ring.NewHistory[domain.PriceSample](cfg.HistorySize),
			Chain:        chainClient,
			Price:        price,
			Log:          log,
		},
	}
}

// Run executes the full lifecycle (spec §4.5): register, prime history,
// start heartbeat, then tick until ctx is cancelled. It blocks until the
// context is done and the in-flight tick (if any) has finished, honoring a
// grace window of at most 2s for any still-blocking call.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.init(ctx); err != nil {
		return fmt.Errorf("agent %s: init failed: %w", a.cfg.Name, err)
	}

	var hb *hubclient.Heartbeat
	if a.hub != nil {
		interval := a.cfg.HeartbeatInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		hb = a.hub.StartHeartbeat(ctx, a.cfg.Name, interval)
		defer hb.Stop()
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.log.Info().Msg("agent running")
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("agent stopping")
			return nil
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *Agent) init(ctx context.Context) error {
	if a.chain != nil && !a.chain.ReadOnly() {
		if err := a.chain.RegisterAgent(ctx, a.cfg.Name); err != nil {
			a.log.Warn().Err(err).Msg("registration failed, continuing in degraded mode")
		}
	}

	if a.price != nil {
		seed := a.price.BuildHistory(ctx, a.cfg.TokenAddress, a.cfg.HistorySize, a.cfg.Interval)
		for _, s := range seed {
			a.state.History.Append(s)
		}
		a.log.Info().Int("samples", len(seed)).Msg("history primed")
	}

	return nil
}

// tick runs exactly one cycle and isolates any failure to a log line — the
// loop and history survive (spec §4.5 fault handling).
func (a *Agent) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("tick panicked, recovering")
		}
	}()

	if verifier, ok := a.analyzer.(PredictionVerifier); ok {
		if err := verifier.VerifyPending(ctx, a.state); err != nil {
			a.log.Warn().Err(err).Msg("verify pending predictions failed")
		}
	}

	if a.price != nil {
		if sample := a.price.FetchPrice(ctx, a.cfg.TokenAddress); sample != nil {
			a.state.History.Append(*sample)
		}
	}

	result, err := a.analyzer.Analyze(ctx, a.state)
	if err != nil {
		a.log.Error().Err(err).Msg("analyze failed")
		return
	}

	if result.Signal == nil {
		return
	}

	if a.chain != nil && !a.chain.ReadOnly() && result.OnChainConfidence >= a.cfg.MinConfidenceForOnChainPost {
		priceScaled := scaledPrice(result.Signal.Price)
		if err := a.chain.PostSignal(ctx, string(result.Signal.Type), int(result.OnChainConfidence), priceScaled, result.Signal.Reason); err != nil {
			a.log.Warn().Err(err).Msg("on-chain post signal failed")
		}
	}

	if a.hub != nil {
		payload := hubPayload(result.Signal, result.HubExtra)
		a.hub.PostSignal(ctx, payload)
	}
}

func hubPayload(sig *domain.Signal, extra map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"agentName":  sig.AgentName,
		"type":       sig.Type,
		"confidence": sig.Confidence,
		"price":      sig.Price,
		"reason":     sig.Reason,
		"category":   sig.Category,
		"receivedAt": sig.ReceivedAt,
	}
	for k, v := range sig.Extra {
		payload[k] = v
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
