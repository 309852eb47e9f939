package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

func TestLabelFromScoreBoundaries(t *testing.T) {
	assert.Equal(t, domain.SignalBuy, labelFromScore(0.2))
	assert.Equal(t, domain.SignalSell, labelFromScore(-0.2))
	assert.Equal(t, domain.SignalHold, labelFromScore(0.05))
}

func TestComputeRiskLevelsStopBelowEntry(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1.0 + float64(i)*0.01
	}
	result := AnalysisResult{OwnScore: 0.3, ConsensusScore: 0.3, MergedScore: 0.3}
	risk := computeRiskLevels(prices[len(prices)-1], prices, result)

	assert.Less(t, risk.Stop, risk.Entry)
	assert.Greater(t, risk.Target2R, risk.Entry)
	assert.Greater(t, risk.Target3R, risk.Target2R)
	assert.LessOrEqual(t, risk.PositionSizePct, kellyMaxPositionPct)
	assert.GreaterOrEqual(t, risk.PositionSizePct, 0.0)
}

func TestNarrativeIncludesKeyFigures(t *testing.T) {
	r := AnalysisResult{
		TokenAddress: "0xabc",
		Price:        1.5,
		MergedScore:  0.2,
		Label:        domain.SignalBuy,
		Support:      1.3,
		Resistance:   1.7,
		Risk:         RiskLevels{Entry: 1.5, Stop: 1.4, Target2R: 1.7, Target3R: 1.8, PositionSizePct: 5},
	}
	n := narrativeFor(r)
	assert.Contains(t, n, "0xabc")
	assert.Contains(t, n, "bullish")
}
