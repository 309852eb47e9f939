package agents

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// TestWeiToGweiExact is the regression guard for spec §8 property #9:
// gasGwei = gasWei / 1_000_000_000 exactly.
func TestWeiToGweiExact(t *testing.T) {
	wei := big.NewInt(25_000_000_000) // 25 gwei
	assert.Equal(t, 25.0, weiToGwei(wei))

	wei2 := big.NewInt(1_500_000_000) // 1.5 gwei
	assert.InDelta(t, 1.5, weiToGwei(wei2), 1e-9)
}

func TestIsCorrectUpDownSideways(t *testing.T) {
	assert.True(t, isCorrect(domain.DirectionUp, 1.0, 1.01))
	assert.False(t, isCorrect(domain.DirectionUp, 1.0, 1.001))
	assert.True(t, isCorrect(domain.DirectionDown, 1.0, 0.99))
	assert.True(t, isCorrect(domain.DirectionSideways, 1.0, 1.005))
	assert.False(t, isCorrect(domain.DirectionSideways, 1.0, 1.02))
}

func TestClassifyByFraction(t *testing.T) {
	assert.Equal(t, "MEGA", classifyByFraction(0.006))
	assert.Equal(t, "LARGE", classifyByFraction(0.002))
	assert.Equal(t, "WHALE", classifyByFraction(0.0005))
}

func TestHasCircularPatternDetectsTwoHop(t *testing.T) {
	transfers := []domain.TransferEvent{
		{From: "0xA", To: "0xB", Value: "1000000000000000000"},
		{From: "0xB", To: "0xA", Value: "1000000000000000000"},
	}
	assert.True(t, hasCircularPattern(transfers))
}

func TestHasCircularPatternDetectsThreeHop(t *testing.T) {
	transfers := []domain.TransferEvent{
		{From: "0xA", To: "0xB", Value: "1000000000000000000"},
		{From: "0xB", To: "0xC", Value: "1000000000000000000"},
		{From: "0xC", To: "0xA", Value: "1000000000000000000"},
	}
	assert.True(t, hasCircularPattern(transfers))
}

func TestHasCircularPatternFalseOnLinearChain(t *testing.T) {
	transfers := []domain.TransferEvent{
		{From: "0xA", To: "0xB", Value: "1000000000000000000"},
		{From: "0xB", To: "0xC", Value: "1000000000000000000"},
		{From: "0xC", To: "0xD", Value: "1000000000000000000"},
	}
	assert.False(t, hasCircularPattern(transfers))
}

func TestSentimentLabelBoundaries(t *testing.T) {
	assert.Equal(t, "VERY BULLISH", sentimentLabel(85))
	assert.Equal(t, "BULLISH", sentimentLabel(65))
	assert.Equal(t, "NEUTRAL", sentimentLabel(50))
	assert.Equal(t, "BEARISH", sentimentLabel(25))
	assert.Equal(t, "VERY BEARISH", sentimentLabel(5))
}

func TestGasRecommendationScalesWithAverage(t *testing.T) {
	assert.Equal(t, "EXCELLENT", gasRecommendation(5, 10))
	assert.Equal(t, "NORMAL", gasRecommendation(10, 10))
	assert.Equal(t, "HIGH", gasRecommendation(20, 10))
}
