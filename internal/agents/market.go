package agents

import (
	"context"
	"fmt"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/indicators"
)

// whaleMoveThreshold is the adjacent-sample price jump that counts as a
// "whale move" for the Market variant (spec §4.6).
const whaleMoveThreshold = 0.03

// Market implements agent.Analyzer for the Market variant (spec §4.6):
// full technical analysis plus whale-move detection, regime classification,
// and an alert set; the alerts travel as extra fields of the single Hub
// signal POST (via HubExtra), not as separate alert posts.
type Market struct{}

// Regime labels the current market character.
type Regime string

const (
	RegimeTrendingUp   Regime = "TRENDING_UP"
	RegimeTrendingDown Regime = "TRENDING_DOWN"
	RegimeRanging      Regime = "RANGING"
	RegimeVolatile     Regime = "VOLATILE"
)

func (Market) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	samples := s.History.Slice()
	last, ok := lastSample(samples)
	if !ok || len(samples) < MinTradingHistory {
		return holdResultCategory(domain.CategoryMarket, "market", last.Price, 30, "Insufficient data"), nil
	}

	prices := pricesOf(samples)
	trend := indicators.TrendOf(prices)
	rsi := indicators.RSI(prices)

	regime := classifyRegime(trend)

	var whaleMoves int
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		if absf((prices[i]-prices[i-1])/prices[i-1]) > whaleMoveThreshold {
			whaleMoves++
		}
	}

	net := trend.Direction * trend.Strength
	sigType := domain.SignalHold
	switch {
	case net > 0.15:
		sigType = domain.SignalBuy
	case net < -0.15:
		sigType = domain.SignalSell
	}
	confidence := clamp(50+absf(net)*100, 25, 95)

	extra := map[string]interface{}{
		"regime":     regime,
		"rsi":        rsi,
		"whaleMoves": whaleMoves,
	}

	sig := &domain.Signal{
		AgentName:  "market",
		Type:       sigType,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("regime=%s trend=%.2f whaleMoves=%d", regime, net, whaleMoves),
		Category:   domain.CategoryMarket,
		ReceivedAt: nowMs(),
		Extra:      extra,
	}

	var hubExtra map[string]interface{}
	if whaleMoves > 0 {
		hubExtra = map[string]interface{}{
			"alert":      "whale_move_detected",
			"whaleMoves": whaleMoves,
			"regime":     regime,
		}
	}

	return agent.Result{Signal: sig, OnChainConfidence: confidence, HubExtra: hubExtra}, nil
}

func classifyRegime(trend indicators.Trend) Regime {
	switch {
	case trend.Strength > 0.02 && trend.Direction > 0:
		return RegimeTrendingUp
	case trend.Strength > 0.02 && trend.Direction < 0:
		return RegimeTrendingDown
	case trend.Strength > 0.05:
		return RegimeVolatile
	default:
		return RegimeRanging
	}
}

func holdResultCategory(cat domain.Category, agentName string, price, confidence float64, reason string) agent.Result {
	return agent.Result{
		Signal: &domain.Signal{
			AgentName:  agentName,
			Type:       domain.SignalHold,
			Confidence: confidence,
			Price:      price,
			Reason:     reason,
			Category:   cat,
			ReceivedAt: nowMs(),
		},
		OnChainConfidence: confidence,
	}
}
