package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// TestMACDConstantSeriesIsZero is the regression guard for spec §8 property
// #10: for any constant price series, MACD line, signal, and histogram are
// all zero.
func TestMACDConstantSeriesIsZero(t *testing.T) {
	prices := constantSeries(60, 1.23)
	m := MACDOf(prices)
	assert.InDelta(t, 0, m.Line, 1e-9)
	assert.InDelta(t, 0, m.Signal, 1e-9)
	assert.InDelta(t, 0, m.Histogram, 1e-9)
}

func TestRSIFallbackOnShortInput(t *testing.T) {
	assert.Equal(t, neutralRSI, RSI(constantSeries(MinRSI-1, 1)))
}

func TestRSIBoundaryLength(t *testing.T) {
	// At exactly the minimum length, RSI must compute (not fall back).
	prices := make([]float64, MinRSI)
	for i := range prices {
		prices[i] = 1 + float64(i)*0.01
	}
	v := RSI(prices)
	assert.NotEqual(t, neutralRSI, v)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestBollingerPercentBFlatSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, 0.5, BollingerPercentB(constantSeries(MinBollinger, 2)))
}

func TestMomentumShortInputIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Momentum([]float64{1, 2}, 10))
}

func TestTrendOfUpwardSeries(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 1 + float64(i)*0.01
	}
	tr := TrendOf(prices)
	assert.Equal(t, 1.0, tr.Direction)
	assert.Greater(t, tr.Strength, 0.0)
}

func TestSupportResistanceFallsBackToPercentilesWithoutVolume(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = float64(i)
	}
	lv := SupportResistance(prices, nil, 30)
	assert.Less(t, lv.Support, lv.Resistance)
}

func TestFibonacciLevelsSpanHighLow(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 10}
	levels := Fibonacci(prices, 5)
	assert.Equal(t, 10.0, levels["0.0"])
	assert.Equal(t, 1.0, levels["1.0"])
}

func TestFearGreedClampedRange(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1 + float64(i)*0.05
	}
	fg := FearGreed(prices)
	assert.GreaterOrEqual(t, fg, 0.0)
	assert.LessOrEqual(t, fg, 100.0)
}
