package hub

import (
	"math"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// Verify against spec §8 S3: Trading:BUY@80, Market:HOLD@50,
// Prediction:SELL@60, Liquidity:BUY@70, others absent.
//   weightedSum = 0.30*0.80 + 0.20*0 + 0.15*(-0.60) + 0.12*0.70
//               = 0.24 + 0 - 0.09 + 0.084 = 0.234
//   totalWeight = 0.30+0.20+0.15+0.12 = 0.77
//   normalized  = 0.234/0.77 ~= 0.304 -> BUY, strength 30

// agentWeights are the fixed per-agent-category contributions to the
// weighted consensus (spec §4.7.1). All seven sum to 1.0, but not every agent
// contributes every time, so normalization divides by the sum of weights
// actually contributing.
var agentWeights = map[string]float64{
	"trading":    0.30,
	"market":     0.20,
	"prediction": 0.15,
	"liquidity":  0.12,
	"sentiment":  0.10,
	"onchain":    0.08,
	"whale":      0.05,
}

// AgentContribution is one agent's share of a Consensus, included for
// transparency in the hub's /api/state and analysis:result payloads.
type AgentContribution struct {
	Agent      string  `json:"agent"`
	Type       domain.SignalType `json:"type"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
	Score      float64 `json:"score"`
	AgeSeconds float64 `json:"ageSeconds"`
}

// Consensus is the weighted multi-agent confluence (spec §4.7.1).
type Consensus struct {
	Label        domain.SignalType    `json:"label"`
	Normalized   float64              `json:"normalized"`
	Strength     float64              `json:"strength"`
	Agreement    float64              `json:"agreement"`
	Contributors []AgentContribution `json:"contributors"`
}

// computeConsensusLocked must be called with st.mu held (read or write).
// Only agents whose latest signal is fresh (spec §4.7.1: age <= 20min)
// contribute. With zero fresh contributors, normalized is 0 and label HOLD.
func (st *State) computeConsensusLocked() *Consensus {
	now := nowMs()
	var weightedSum, totalWeight float64
	var contributors []AgentContribution

	for name, weight := range agentWeights {
		sig, ok := st.agentSignals[name]
		if !ok {
			continue
		}
		ageMs := now - sig.ReceivedAt
		if ageMs < 0 {
			ageMs = 0
		}
		if ageMs > freshSignalWindow.Milliseconds() {
			continue
		}
		score := sig.Type.Sign() * (sig.Confidence / 100)
		weightedSum += score * weight
		totalWeight += weight
		contributors = append(contributors, AgentContribution{
			Agent:      name,
			Type:       sig.Type,
			Confidence: sig.Confidence,
			Weight:     weight,
			Score:      score,
			AgeSeconds: float64(ageMs) / 1000,
		})
	}

	if len(contributors) == 0 {
		return &Consensus{Label: domain.SignalHold, Normalized: 0, Strength: 0, Agreement: 0}
	}

	normalized := weightedSum / totalWeight

	label := domain.SignalHold
	switch {
	case normalized > 0.15:
		label = domain.SignalBuy
	case normalized < -0.15:
		label = domain.SignalSell
	}

	strength := math.Min(95, math.Round(math.Abs(normalized)*100))

	// Agreement is the fraction of contributors whose signal equals the mode
	// of all contributed signals (spec §4.7.1) — independent of label, which
	// is derived from weighted score and can disagree with the plain mode.
	counts := make(map[domain.SignalType]int, len(contributors))
	for _, c := range contributors {
		counts[c.Type]++
	}
	var mode domain.SignalType
	modeCount := -1
	for _, c := range contributors {
		if n := counts[c.Type]; n > modeCount {
			modeCount = n
			mode = c.Type
		}
	}
	agreement := float64(modeCount) / float64(len(contributors)) * 100

	return &Consensus{
		Label:        label,
		Normalized:   normalized,
		Strength:     strength,
		Agreement:    agreement,
		Contributors: contributors,
	}
}
