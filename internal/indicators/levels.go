package indicators

import "sort"

// Levels holds a support/resistance pair.
type Levels struct {
	Support    float64
	Resistance float64
}

const maxVolumeBins = 20

// SupportResistance implements the volume-weighted profile described in spec
// §4.3: the last `lookback` samples are binned into <=20 price buckets
// weighted by volume; support is the highest-volume bucket below the current
// price, resistance the highest-volume bucket above it. When all volumes are
// equal (or absent) it falls back to the 10th/90th percentile of price.
func SupportResistance(prices, volumes []float64, lookback int) Levels {
	if lookback > len(prices) {
		lookback = len(prices)
	}
	if lookback < 5 {
		return Levels{}
	}
	p := prices[len(prices)-lookback:]
	var v []float64
	if len(volumes) == len(prices) {
		v = volumes[len(volumes)-lookback:]
	}

	if !hasVolumeSignal(v) {
		return percentileLevels(p)
	}

	lo, hi := minMax(p)
	if hi <= lo {
		return percentileLevels(p)
	}
	binWidth := (hi - lo) / maxVolumeBins
	binVolume := make([]float64, maxVolumeBins)
	for i, price := range p {
		bin := int((price - lo) / binWidth)
		if bin >= maxVolumeBins {
			bin = maxVolumeBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		binVolume[bin] += v[i]
	}

	current := prices[len(prices)-1]
	var support, resistance float64
	var bestSupportVol, bestResistVol float64
	for bin, vol := range binVolume {
		mid := lo + (float64(bin)+0.5)*binWidth
		if mid < current && vol > bestSupportVol {
			bestSupportVol = vol
			support = mid
		}
		if mid > current && vol > bestResistVol {
			bestResistVol = vol
			resistance = mid
		}
	}
	if support == 0 {
		support = lo
	}
	if resistance == 0 {
		resistance = hi
	}
	return Levels{Support: support, Resistance: resistance}
}

func hasVolumeSignal(v []float64) bool {
	if len(v) == 0 {
		return false
	}
	first := v[0]
	for _, x := range v {
		if x != first {
			return true
		}
	}
	return false
}

func percentileLevels(prices []float64) Levels {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	return Levels{
		Support:    percentile(sorted, 0.10),
		Resistance: percentile(sorted, 0.90),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// Fibonacci returns the standard retracement levels between the lookback
// window's high and low.
func Fibonacci(prices []float64, lookback int) map[string]float64 {
	if lookback > len(prices) {
		lookback = len(prices)
	}
	if lookback < 2 {
		return nil
	}
	lo, hi := minMax(prices[len(prices)-lookback:])
	span := hi - lo
	return map[string]float64{
		"0.0":   hi,
		"0.236": hi - span*0.236,
		"0.382": hi - span*0.382,
		"0.5":   hi - span*0.5,
		"0.618": hi - span*0.618,
		"1.0":   lo,
	}
}
