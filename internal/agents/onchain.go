package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// On-chain agent constants (spec §4.6, §9 open-question resolution: the
// source's VELOCITY_PERIOD/CIRCULAR_DETECTION_DEPTH are adopted as the
// literal observable behavior — a rolling 1h velocity window and a search
// for 2-hop (A->B->A) and 3-hop (A->B->C->A) circular patterns).
const (
	onchainLookbackBlocks    = 500
	onchainVelocityPeriod    = time.Hour
	onchainCircularDepth     = 3
	onchainOrganicBase       = 70.0
	onchainUniformCVFloor    = 0.1
)

type onchainAux struct {
	mu               sync.Mutex
	lastScannedBlock uint64
	initialized      bool
	holders          map[string]struct{}
	recentTransfers  []domain.TransferEvent
	recentTimestamps []time.Time
}

func onchainState(s *agent.State) *onchainAux {
	if s.Aux == nil {
		s.Aux = &onchainAux{holders: make(map[string]struct{})}
	}
	return s.Aux.(*onchainAux)
}

// Onchain implements agent.Analyzer for the On-chain variant (spec §4.6).
type Onchain struct {
	TokenAddress common.Address
	// RouterAddresses is the known set of DEX router/contract addresses used
	// to classify a transfer as a buy (router -> wallet) or sell (wallet ->
	// router).
	RouterAddresses map[string]bool
}

func (o Onchain) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	if s.Chain == nil {
		return agent.Result{}, nil
	}
	aux := onchainState(s)
	last, _ := lastSample(s.History.Slice())

	current, err := s.Chain.GetBlockNumber(ctx)
	if err != nil {
		return agent.Result{}, fmt.Errorf("get block number: %w", err)
	}

	aux.mu.Lock()
	if !aux.initialized {
		if current > onchainLookbackBlocks {
			aux.lastScannedBlock = current - onchainLookbackBlocks
		}
		aux.initialized = true
	}
	from := aux.lastScannedBlock + 1
	to := current
	aux.mu.Unlock()

	if from > to {
		return agent.Result{}, nil
	}

	transfers, err := s.Chain.GetTransferLogs(ctx, o.TokenAddress, from, to)
	if err != nil {
		return agent.Result{}, fmt.Errorf("get transfer logs: %w", err)
	}

	now := time.Now()
	aux.mu.Lock()
	aux.lastScannedBlock = to
	for _, t := range transfers {
		aux.holders[strings.ToLower(t.To)] = struct{}{}
		aux.recentTransfers = append(aux.recentTransfers, t)
		aux.recentTimestamps = append(aux.recentTimestamps, now)
	}
	aux.recentTransfers, aux.recentTimestamps = pruneOlderThan(aux.recentTransfers, aux.recentTimestamps, now, onchainVelocityPeriod)
	holderCount := len(aux.holders)
	window := append([]domain.TransferEvent(nil), aux.recentTransfers...)
	aux.mu.Unlock()

	buys, sells := classifyBuySell(transfers, o.RouterAddresses)
	velocity := float64(len(window)) / onchainVelocityPeriod.Hours()

	organic := organicScore(window)

	sigType := domain.SignalHold
	if buys+sells > 0 {
		if float64(buys) > float64(sells)*1.2 {
			sigType = domain.SignalBuy
		} else if float64(sells) > float64(buys)*1.2 {
			sigType = domain.SignalSell
		}
	}
	confidence := clamp(40+organic*0.5, 20, 90)

	sig := &domain.Signal{
		AgentName:  "onchain",
		Type:       sigType,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("organicScore=%.1f buys=%d sells=%d velocity=%.2f/h holders=%d", organic, buys, sells, velocity, holderCount),
		Category:   domain.CategoryOnchain,
		ReceivedAt: nowMs(),
		Extra: map[string]interface{}{
			"organicScore": organic,
			"buys":         buys,
			"sells":        sells,
			"velocity":     velocity,
			"holderCount":  holderCount,
		},
	}

	return agent.Result{Signal: sig, OnChainConfidence: confidence}, nil
}

func pruneOlderThan(transfers []domain.TransferEvent, timestamps []time.Time, now time.Time, window time.Duration) ([]domain.TransferEvent, []time.Time) {
	cut := 0
	for i, ts := range timestamps {
		if now.Sub(ts) <= window {
			cut = i
			break
		}
		cut = i + 1
	}
	if cut >= len(timestamps) {
		return nil, nil
	}
	return transfers[cut:], timestamps[cut:]
}

func classifyBuySell(transfers []domain.TransferEvent, routers map[string]bool) (buys, sells int) {
	for _, t := range transfers {
		fromRouter := routers[strings.ToLower(t.From)]
		toRouter := routers[strings.ToLower(t.To)]
		switch {
		case fromRouter && !toRouter:
			buys++
		case toRouter && !fromRouter:
			sells++
		}
	}
	return
}

// organicScore starts at 70 and adjusts for circular-transfer patterns,
// transfer-size uniformity, and address diversity (spec §4.6).
func organicScore(transfers []domain.TransferEvent) float64 {
	score := onchainOrganicBase

	if hasCircularPattern(transfers) {
		score -= 25
	}

	sizes := make([]float64, 0, len(transfers))
	addresses := make(map[string]struct{})
	for _, t := range transfers {
		sizes = append(sizes, parseBaseUnits(t.Value, 18))
		addresses[strings.ToLower(t.From)] = struct{}{}
		addresses[strings.ToLower(t.To)] = struct{}{}
	}

	if cv := coefficientOfVariation(sizes); cv > 0 {
		if cv < onchainUniformCVFloor {
			score -= 15
		} else {
			score += 10
		}
	}

	if len(transfers) > 0 {
		uniqueRatio := float64(len(addresses)) / float64(2*len(transfers))
		if uniqueRatio > 0.6 {
			score += 10
		}
	}

	return clamp(score, 0, 100)
}

// hasCircularPattern searches for A->B->A (2-hop) and A->B->C->A (3-hop)
// round-trips within the scanned window.
func hasCircularPattern(transfers []domain.TransferEvent) bool {
	for i, a := range transfers {
		for j := i + 1; j < len(transfers); j++ {
			b := transfers[j]
			if !strings.EqualFold(a.To, b.From) {
				continue
			}
			if strings.EqualFold(b.To, a.From) {
				return true // A->B->A
			}
			if onchainCircularDepth >= 3 {
				for k := j + 1; k < len(transfers); k++ {
					c := transfers[k]
					if strings.EqualFold(b.To, c.From) && strings.EqualFold(c.To, a.From) {
						return true // A->B->C->A
					}
				}
			}
		}
	}
	return false
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}
