package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// TestConsensusWorkedExample reproduces spec §8 S3 exactly: Trading:BUY@80,
// Market:HOLD@50, Prediction:SELL@60, Liquidity:BUY@70, everyone else absent.
// Expected normalized ~= 0.304, label BUY, strength 30.
func TestConsensusWorkedExample(t *testing.T) {
	st := NewState()
	now := nowMs()
	st.AddSignal(domain.Signal{AgentName: "trading", Type: domain.SignalBuy, Confidence: 80, ReceivedAt: now})
	st.AddSignal(domain.Signal{AgentName: "market", Type: domain.SignalHold, Confidence: 50, ReceivedAt: now})
	st.AddSignal(domain.Signal{AgentName: "prediction", Type: domain.SignalSell, Confidence: 60, ReceivedAt: now})
	st.AddSignal(domain.Signal{AgentName: "liquidity", Type: domain.SignalBuy, Confidence: 70, ReceivedAt: now})

	c := st.Consensus()
	assert.Equal(t, domain.SignalBuy, c.Label)
	assert.InDelta(t, 0.304, c.Normalized, 0.001)
	assert.Equal(t, 30.0, c.Strength)
	assert.Len(t, c.Contributors, 4)
}

func TestConsensusNoContributorsIsHold(t *testing.T) {
	st := NewState()
	c := st.Consensus()
	assert.Equal(t, domain.SignalHold, c.Label)
	assert.Equal(t, 0.0, c.Normalized)
}

func TestConsensusIgnoresStaleSignals(t *testing.T) {
	st := NewState()
	stale := nowMs() - freshSignalWindow.Milliseconds() - 1000
	st.AddSignal(domain.Signal{AgentName: "trading", Type: domain.SignalBuy, Confidence: 90, ReceivedAt: stale})

	c := st.Consensus()
	assert.Equal(t, domain.SignalHold, c.Label)
	assert.Len(t, c.Contributors, 0)
}

// TestConsensusAgreementUsesModeNotLabel covers the case where the
// weighted-consensus label and the plain mode of contributed signals
// disagree: three of four contributors say HOLD, but Trading's heavy weight
// and high confidence pull the weighted label to BUY. Agreement must still
// reflect the mode (3/4 = 75%), not the fraction agreeing with the label
// (1/4 = 25%) (spec §8: "Agreement percentage = fraction of contributors
// whose signal equals the mode").
func TestConsensusAgreementUsesModeNotLabel(t *testing.T) {
	st := NewState()
	now := nowMs()
	st.AddSignal(domain.Signal{AgentName: "trading", Type: domain.SignalBuy, Confidence: 80, ReceivedAt: now})
	st.AddSignal(domain.Signal{AgentName: "market", Type: domain.SignalHold, Confidence: 50, ReceivedAt: now})
	st.AddSignal(domain.Signal{AgentName: "prediction", Type: domain.SignalHold, Confidence: 50, ReceivedAt: now})
	st.AddSignal(domain.Signal{AgentName: "liquidity", Type: domain.SignalHold, Confidence: 50, ReceivedAt: now})

	c := st.Consensus()
	assert.Equal(t, domain.SignalBuy, c.Label)
	assert.Equal(t, 75.0, c.Agreement)
}

func TestAgentWeightsSumToExpected(t *testing.T) {
	var sum float64
	for _, w := range agentWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 0.001)
}
