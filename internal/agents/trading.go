package agents

import (
	"context"
	"fmt"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/indicators"
)

// MinTradingHistory is the minimum sample count before Trading produces a
// real vote instead of the documented "Insufficient data" HOLD (spec §8
// boundary behavior).
const MinTradingHistory = 30

// indicatorWeight pairs a bounded [-1,1] score with its share of the vote.
// Weights sum to 1.0; chosen to spread influence across momentum, trend and
// mean-reversion indicators rather than over-weighting any single family —
// the spec names the eight indicators but leaves their relative weights
// unspecified (an implementation choice, not a spec ambiguity to resolve
// against original_source/, since none was retrieved for this pack).
type indicatorWeight struct {
	score  float64
	weight float64
}

// Trading implements agent.Analyzer for the Trading variant (spec §4.6).
type Trading struct{}

func (Trading) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	samples := s.History.Slice()
	if len(samples) < MinTradingHistory {
		last, _ := lastSample(samples)
		return holdResultCategory(domain.CategoryTechnical, "trading", last.Price, 30, "Insufficient data"), nil
	}

	prices := pricesOf(samples)
	volumes := volumesOf(samples)
	last, _ := lastSample(samples)

	rsi := indicators.RSI(prices)
	macd := indicators.MACDOf(prices)
	bb := indicators.BollingerPercentB(prices)
	trend := indicators.TrendOf(prices)
	ichi := indicators.IchimokuOf(prices)
	stoch := indicators.StochRSIOf(prices)
	mom := indicators.Momentum(prices, 14)
	vwapDev := indicators.VWAPDeviation(prices, volumes)

	votes := []indicatorWeight{
		{score: clamp((50-rsi)/50, -1, 1), weight: 0.15},
		{score: clamp(macd.Histogram*100, -1, 1), weight: 0.15},
		{score: clamp((0.5-bb)*2, -1, 1), weight: 0.15},
		{score: clamp(trend.Direction*trend.Strength*10, -1, 1), weight: 0.15},
		{score: clamp(ichi.Signal, -1, 1), weight: 0.10},
		{score: clamp((50-(stoch.K+stoch.D)/2)/50, -1, 1), weight: 0.10},
		{score: clamp(mom*20, -1, 1), weight: 0.10},
		{score: clamp(vwapDev*10, -1, 1), weight: 0.10},
	}

	var net float64
	for _, v := range votes {
		net += v.score * v.weight
	}

	sigType := domain.SignalHold
	switch {
	case net > 0.15:
		sigType = domain.SignalBuy
	case net < -0.15:
		sigType = domain.SignalSell
	}

	confidence := clamp(50+absf(net)*100, 25, 95)

	sig := &domain.Signal{
		AgentName:  "trading",
		Type:       sigType,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("net score %.3f (rsi=%.1f macd_hist=%.5f bb=%.2f trend=%.2f)", net, rsi, macd.Histogram, bb, trend.Direction*trend.Strength),
		Category:   domain.CategoryTechnical,
		ReceivedAt: nowMs(),
		Extra: map[string]interface{}{
			"rsi":        rsi,
			"macd":       macd,
			"bollinger":  bb,
			"trend":      trend,
			"ichimoku":   ichi,
			"stochRsi":   stoch,
			"momentum":   mom,
			"vwapDev":    vwapDev,
			"netScore":   net,
		},
	}

	return agent.Result{Signal: sig, OnChainConfidence: confidence}, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
