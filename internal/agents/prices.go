// Package agents holds the eight concrete analyze() implementations
// (spec §4.6). Each variant type implements agent.Analyzer and, where the
// spec calls for it, agent.PredictionVerifier.
package agents

import (
	"time"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

func pricesOf(samples []domain.PriceSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Price
	}
	return out
}

func volumesOf(samples []domain.PriceSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Volume24h
	}
	return out
}

func lastSample(samples []domain.PriceSample) (domain.PriceSample, bool) {
	if len(samples) == 0 {
		return domain.PriceSample{}, false
	}
	return samples[len(samples)-1], true
}

func nowMs() int64 { return time.Now().UnixMilli() }

func lastSeenNow() time.Time { return time.Now() }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
