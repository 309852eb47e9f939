// Package indicators is the pure, deterministic Technical Library (spec §4.3).
// Every function takes an oldest-first slice of reals (and, where noted, a
// parallel volume slice of identical length) and returns a scalar or small
// record. No function performs I/O or touches process-wide state; every
// function has a documented minimum sample count and a documented fallback
// value for shorter input, so nothing in this package can panic on short
// history.
//
// The period-based oscillators (RSI, Bollinger %B, Stochastic-RSI) are
// computed with github.com/markcheno/go-talib. This package does not use
// gonum; gonum.org/v1/gonum/stat is used directly by the prediction agent's
// linear-regression sub-model (see internal/agents/prediction.go).
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// neutralRSI is the documented RSI fallback for n < MinRSI.
const neutralRSI = 50.0

// MinRSI is the minimum sample count RSI needs to be meaningful.
const MinRSI = 15

// RSI returns the latest 14-period RSI value, or neutralRSI if len(prices) < MinRSI.
func RSI(prices []float64) float64 {
	if len(prices) < MinRSI {
		return neutralRSI
	}
	out := talib.Rsi(prices, 14)
	return lastOrFallback(out, neutralRSI)
}

// MACD is the three-value result of the MACD indicator.
type MACD struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MinMACD is the minimum sample count (slow EMA period + signal period) for a
// meaningful MACD. Below this, the zero-value MACD{} is returned (spec §8
// property #10: a constant price series yields line=signal=histogram=0, which
// is also what the zero value represents for genuinely flat/insufficient input).
const MinMACD = 26 + 9

// MACDOf computes MACD(12,26,9). The signal line is the proper 9-period EMA of
// the trailing MACD-line series (never a scalar multiple of the MACD line) —
// this is exactly what talib.Macd computes, and is what spec §4.3/§8 property
// #10 requires.
func MACDOf(prices []float64) MACD {
	if len(prices) < MinMACD {
		return MACD{}
	}
	line, signal, hist := talib.Macd(prices, 12, 26, 9)
	return MACD{
		Line:      lastOrFallback(line, 0),
		Signal:    lastOrFallback(signal, 0),
		Histogram: lastOrFallback(hist, 0),
	}
}

// MinBollinger is the minimum sample count for Bollinger %B.
const MinBollinger = 20

// BollingerPercentB returns where the latest price sits within the 20-period,
// 2-stddev Bollinger band: 0 = at lower band, 1 = at upper band, 0.5 when the
// band has zero width (flat price) or there is insufficient history.
func BollingerPercentB(prices []float64) float64 {
	if len(prices) < MinBollinger {
		return 0.5
	}
	upper, _, lower := talib.BBands(prices, 20, 2, 2, talib.SMA)
	u := lastOrFallback(upper, 0)
	l := lastOrFallback(lower, 0)
	last := prices[len(prices)-1]
	width := u - l
	if width <= 0 {
		return 0.5
	}
	pctB := (last - l) / width
	return clamp(pctB, 0, 1)
}

// MinStochRSI is the minimum sample count for Stochastic-RSI.
const MinStochRSI = 14 + 14 + 3

// StochRSI is the %K/%D pair of the Stochastic-RSI oscillator.
type StochRSI struct {
	K float64
	D float64
}

// StochRSIOf returns Stochastic-RSI with a 14-period RSI, a 14-period
// stochastic window for %K and a 3-period SMA of %K for %D, falling back to
// the neutral {50,50} pair below MinStochRSI samples.
func StochRSIOf(prices []float64) StochRSI {
	if len(prices) < MinStochRSI {
		return StochRSI{K: 50, D: 50}
	}
	k, d := talib.StochRsi(prices, 14, 14, 3, talib.SMA)
	return StochRSI{K: lastOrFallback(k, 50), D: lastOrFallback(d, 50)}
}

// EMA returns the latest value of the n-period exponential moving average, or
// the last price (flat fallback) if there isn't enough history.
func EMA(prices []float64, period int) float64 {
	if len(prices) < period || len(prices) == 0 {
		return lastPrice(prices)
	}
	out := talib.Ema(prices, period)
	return lastOrFallback(out, lastPrice(prices))
}

// SMA returns the latest value of the n-period simple moving average.
func SMA(prices []float64, period int) float64 {
	if len(prices) < period || len(prices) == 0 {
		return lastPrice(prices)
	}
	out := talib.Sma(prices, period)
	return lastOrFallback(out, lastPrice(prices))
}

// Momentum is the fractional price change over `period` samples (0 if too short).
func Momentum(prices []float64, period int) float64 {
	n := len(prices)
	if n <= period || prices[n-1-period] == 0 {
		return 0
	}
	return (prices[n-1] - prices[n-1-period]) / prices[n-1-period]
}

// Trend is a direction*strength pair: sign is the trend direction, magnitude
// in [0,1] is its strength (based on EMA separation).
type Trend struct {
	Direction float64 // -1..1
	Strength  float64 // 0..1
}

// TrendOf classifies trend from the separation between a fast and slow EMA,
// normalized by price so the result is scale-free.
func TrendOf(prices []float64) Trend {
	if len(prices) < 10 {
		return Trend{}
	}
	fast := EMA(prices, 10)
	slow := EMA(prices, min(30, len(prices)))
	last := lastPrice(prices)
	if last == 0 {
		return Trend{}
	}
	sep := (fast - slow) / last
	dir := 0.0
	switch {
	case sep > 0:
		dir = 1
	case sep < 0:
		dir = -1
	}
	strength := clamp(math.Abs(sep)*20, 0, 1)
	return Trend{Direction: dir, Strength: strength}
}

// VWAPDeviation returns the fractional deviation of the latest price from the
// volume-weighted average price over the whole window (0 if volumes absent).
func VWAPDeviation(prices, volumes []float64) float64 {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return 0
	}
	var pv, v float64
	for i := range prices {
		pv += prices[i] * volumes[i]
		v += volumes[i]
	}
	if v == 0 {
		return 0
	}
	vwap := pv / v
	if vwap == 0 {
		return 0
	}
	return (lastPrice(prices) - vwap) / vwap
}

// Ichimoku is a simplified tenkan/kijun cloud signal derived from price
// extremes, sufficient for the trading agent's weighted vote (spec treats the
// exact Ichimoku formula as out of scope; any standard construction suffices).
type Ichimoku struct {
	Signal float64 // -1..1
}

// IchimokuOf computes tenkan (9) and kijun (26) midpoint lines and returns the
// sign/strength of their separation, same convention as Trend.
func IchimokuOf(prices []float64) Ichimoku {
	if len(prices) < 26 {
		return Ichimoku{}
	}
	tenkan := midpoint(prices, 9)
	kijun := midpoint(prices, 26)
	last := lastPrice(prices)
	if last == 0 {
		return Ichimoku{}
	}
	sep := (tenkan - kijun) / last
	return Ichimoku{Signal: clamp(sep*10, -1, 1)}
}

func midpoint(prices []float64, period int) float64 {
	window := prices[len(prices)-period:]
	hi, lo := window[0], window[0]
	for _, p := range window {
		if p > hi {
			hi = p
		}
		if p < lo {
			lo = p
		}
	}
	return (hi + lo) / 2
}

// OBV returns the latest On-Balance-Volume value (0 if volumes absent or too short).
func OBV(prices, volumes []float64) float64 {
	if len(prices) < 2 || len(prices) != len(volumes) {
		return 0
	}
	out := talib.Obv(prices, volumes)
	return lastOrFallback(out, 0)
}

// ATR approximates average true range from a close-only series (no high/low
// data is available from the price service) as the EMA of the absolute
// close-to-close change. This is a documented approximation, not the textbook
// ATR formula which needs intrabar high/low.
func ATR(prices []float64, period int) float64 {
	if len(prices) < 2 {
		return 0
	}
	changes := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		changes[i-1] = math.Abs(prices[i] - prices[i-1])
	}
	if len(changes) < period {
		return mean(changes)
	}
	out := talib.Ema(changes, period)
	return lastOrFallback(out, mean(changes))
}

// FearGreed composes RSI, volatility, momentum, trend and Bollinger %B into a
// single 0-100 index via fixed weights, clamped to the documented range
// (spec §4.3).
func FearGreed(prices []float64) float64 {
	if len(prices) < MinRSI {
		return 50
	}
	rsi := RSI(prices)
	vol := clamp(100-volatility(prices)*500, 0, 100)
	mom := clamp(50+Momentum(prices, min(10, len(prices)-1))*500, 0, 100)
	trend := TrendOf(prices)
	trendScore := clamp(50+trend.Direction*trend.Strength*50, 0, 100)
	pctB := BollingerPercentB(prices) * 100

	score := rsi*0.25 + vol*0.2 + mom*0.2 + trendScore*0.2 + pctB*0.15
	return clamp(score, 0, 100)
}

func volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return stddev(returns)
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func lastPrice(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	return prices[len(prices)-1]
}

func lastOrFallback(xs []float64, fallback float64) float64 {
	if len(xs) == 0 {
		return fallback
	}
	v := xs[len(xs)-1]
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
