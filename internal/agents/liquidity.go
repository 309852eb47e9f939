package agents

import (
	"context"
	"fmt"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/priceservice"
)

// graduationImminentThreshold is the progress percentage at which Liquidity
// emits a graduation-imminent alert (spec §4.6).
const graduationImminentThreshold = 85.0

// Liquidity implements agent.Analyzer for the Liquidity variant (spec §4.6).
type Liquidity struct {
	BondingReader priceservice.BondingReader
}

func (l Liquidity) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	samples := s.History.Slice()
	last, ok := lastSample(samples)
	if !ok {
		return agent.Result{}, nil
	}

	var progress priceservice.BondingProgress
	if s.Price != nil && l.BondingReader != nil {
		progress = s.Price.GetBondingProgress(ctx, l.BondingReader, s.TokenAddress)
	}

	riskScore := rugRiskScore(last, progress)

	sigType := domain.SignalHold
	switch {
	case riskScore < 30:
		sigType = domain.SignalBuy
	case riskScore > 70:
		sigType = domain.SignalSell
	}
	confidence := clamp(40+riskScore*0.5, 25, 90)

	sig := &domain.Signal{
		AgentName:  "liquidity",
		Type:       sigType,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("rugRisk=%.1f progress=%.1f%% graduated=%v", riskScore, progress.Progress, progress.IsGraduated),
		Category:   domain.CategoryLiquidity,
		ReceivedAt: nowMs(),
		Extra: map[string]interface{}{
			"rugRiskScore":    riskScore,
			"bondingProgress": progress.Progress,
			"isGraduated":     progress.IsGraduated,
		},
	}

	var hubExtra map[string]interface{}
	if progress.Progress >= graduationImminentThreshold && !progress.IsGraduated {
		hubExtra = map[string]interface{}{
			"alert":    "graduation_imminent",
			"progress": progress.Progress,
		}
	}

	return agent.Result{Signal: sig, OnChainConfidence: confidence, HubExtra: hubExtra}, nil
}

// rugRiskScore is a weighted sum over low liquidity, not-graduated status,
// high sell/buy ratio, a sharp recent price drop, and very low volume
// (spec §4.6). Higher is riskier, clamped to [0,100].
func rugRiskScore(last domain.PriceSample, progress priceservice.BondingProgress) float64 {
	var score float64

	if last.LiquidityUsd < 10_000 {
		score += 30
	} else if last.LiquidityUsd < 50_000 {
		score += 15
	}

	if !progress.IsGraduated {
		score += 15
	}

	totalTx := last.Buys24h + last.Sells24h
	if totalTx > 0 {
		sellRatio := float64(last.Sells24h) / float64(totalTx)
		if sellRatio > 0.7 {
			score += 25
		} else if sellRatio > 0.55 {
			score += 10
		}
	}

	if last.PriceChange.H1 < -10 {
		score += 20
	} else if last.PriceChange.H1 < -5 {
		score += 10
	}

	if last.Volume24h < 1_000 {
		score += 10
	}

	return clamp(score, 0, 100)
}
