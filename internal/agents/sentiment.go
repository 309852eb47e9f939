package agents

import (
	"context"
	"fmt"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/indicators"
)

// Sentiment implements agent.Analyzer for the Sentiment variant (spec §4.6).
type Sentiment struct{}

func (Sentiment) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	samples := s.History.Slice()
	last, ok := lastSample(samples)
	if !ok {
		return agent.Result{}, nil
	}
	prices := pricesOf(samples)

	ratio24h := txRatio(last.Buys24h, last.Sells24h)
	ratio1h := txRatio(last.Buys1h, last.Sells1h)

	volAccel := volumeAcceleration(samples)
	mom := indicators.Momentum(prices, 14)
	txGrowth := transactionActivityGrowth(samples)

	score := clamp(
		50+
			(ratio24h-0.5)*60+
			(ratio1h-0.5)*40+
			clamp(volAccel, -1, 1)*10+
			clamp(mom*20, -1, 1)*10+
			clamp(txGrowth, -1, 1)*10,
		0, 100)

	label := sentimentLabel(score)
	sigType := domain.SignalHold
	switch {
	case score >= 65:
		sigType = domain.SignalBuy
	case score <= 35:
		sigType = domain.SignalSell
	}
	confidence := clamp(absf(score-50)*2, 20, 90)

	sig := &domain.Signal{
		AgentName:  "sentiment",
		Type:       sigType,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("%s (score=%.1f)", label, score),
		Category:   domain.CategorySentiment,
		ReceivedAt: nowMs(),
		Extra: map[string]interface{}{
			"score":         score,
			"label":         label,
			"buySellRatio1h": ratio1h,
		},
	}

	return agent.Result{Signal: sig, OnChainConfidence: confidence}, nil
}

func txRatio(buys, sells int) float64 {
	total := buys + sells
	if total == 0 {
		return 0.5
	}
	return float64(buys) / float64(total)
}

func sentimentLabel(score float64) string {
	switch {
	case score >= 80:
		return "VERY BULLISH"
	case score >= 60:
		return "BULLISH"
	case score >= 40:
		return "NEUTRAL"
	case score >= 20:
		return "BEARISH"
	default:
		return "VERY BEARISH"
	}
}

// volumeAcceleration compares the most recent sample's 24h volume against
// the trailing 6-sample average, returning a fractional change.
func volumeAcceleration(samples []domain.PriceSample) float64 {
	n := len(samples)
	if n < 6 {
		return 0
	}
	var sum float64
	for _, s := range samples[n-6 : n] {
		sum += s.Volume24h
	}
	avg := sum / 6
	if avg == 0 {
		return 0
	}
	return (samples[n-1].Volume24h - avg) / avg
}

// transactionActivityGrowth compares combined buy+sell counts' growth over
// the trailing window.
func transactionActivityGrowth(samples []domain.PriceSample) float64 {
	n := len(samples)
	if n < 6 {
		return 0
	}
	first := samples[n-6]
	last := samples[n-1]
	firstTx := float64(first.Buys1h + first.Sells1h)
	lastTx := float64(last.Buys1h + last.Sells1h)
	if firstTx == 0 {
		return 0
	}
	return (lastTx - firstTx) / firstTx
}
