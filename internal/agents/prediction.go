package agents

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/chain"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// horizonsMinutes are the four prediction horizons (spec §4.6).
var horizonsMinutes = []int{5, 15, 60, 240}

// predictionAux is the Prediction variant's own scratch state, stored in
// agent.State.Aux. It owns the pending-prediction queue; the generic loop
// never inspects it directly.
type predictionAux struct {
	mu      sync.Mutex
	pending []domain.PendingPrediction
	posted  int64 // count of predictions posted on-chain, used to derive ChainIndex
}

func predictionState(s *agent.State) *predictionAux {
	if s.Aux == nil {
		s.Aux = &predictionAux{}
	}
	return s.Aux.(*predictionAux)
}

// Prediction implements agent.Analyzer and agent.PredictionVerifier for the
// Prediction variant (spec §4.6).
type Prediction struct{}

// subModelResult is one ensemble member's vote: direction in [-1,1],
// magnitude as a fractional price move, and a confidence in [0,1].
type subModelResult struct {
	direction  float64
	magnitude  float64
	confidence float64
}

func (Prediction) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	samples := s.History.Slice()
	last, ok := lastSample(samples)
	if !ok || len(samples) < 5 {
		return agent.Result{}, nil
	}
	prices := pricesOf(samples)
	aux := predictionState(s)

	var signal *domain.Signal
	var bestConfidence float64

	for _, horizon := range horizonsMinutes {
		dir, mag, confidence := ensemble(prices, horizon)

		label := domain.DirectionSideways
		switch {
		case dir > 0.15:
			label = domain.DirectionUp
		case dir < -0.15:
			label = domain.DirectionDown
		}

		aux.mu.Lock()
		aux.pending = append(aux.pending, domain.PendingPrediction{
			Direction:      label,
			Confidence:     confidence * 100,
			ReferencePrice: last.Price,
			TargetTimeMs:   nowMs() + int64(horizon)*60_000,
			HorizonMinutes: horizon,
			ChainIndex:     -1,
		})
		aux.mu.Unlock()

		if horizon == horizonsMinutes[0] || confidence*100 > bestConfidence {
			bestConfidence = confidence * 100
			signal = &domain.Signal{
				AgentName:  "prediction",
				Type:       directionToSignal(label),
				Confidence: confidence * 100,
				Price:      last.Price,
				Reason:     fmt.Sprintf("%d-min ensemble: dir=%.2f mag=%.4f", horizon, dir, mag),
				Category:   domain.CategoryPrediction,
				ReceivedAt: nowMs(),
				Extra: map[string]interface{}{
					"horizonMinutes": horizon,
					"direction":      label,
				},
			}
		}
	}

	if s.Chain != nil && !s.Chain.ReadOnly() {
		aux.mu.Lock()
		for i := range aux.pending {
			p := &aux.pending[i]
			if p.ChainIndex != -1 {
				continue
			}
			confInt := int(clamp(p.Confidence, 0, 100))
			refScaled := scaledPriceFor(p.ReferencePrice)
			if err := s.Chain.PostPrediction(ctx, string(p.Direction), confInt, refScaled, p.TargetTimeMs/1000); err == nil {
				p.ChainIndex = aux.posted
				aux.posted++
			}
		}
		aux.mu.Unlock()
	}

	return agent.Result{Signal: signal, OnChainConfidence: bestConfidence}, nil
}

// VerifyPending settles every pending prediction whose target time has
// passed, using the current price as the realized value (spec §4.5 step 2e,
// §8 property #7).
func (Prediction) VerifyPending(ctx context.Context, s *agent.State) error {
	samples := s.History.Slice()
	last, ok := lastSample(samples)
	if !ok {
		return nil
	}

	aux := predictionState(s)
	aux.mu.Lock()
	defer aux.mu.Unlock()

	now := nowMs()
	remaining := aux.pending[:0]
	for _, p := range aux.pending {
		if now < p.TargetTimeMs {
			remaining = append(remaining, p)
			continue
		}
		p.Verified = true
		p.Correct = isCorrect(p.Direction, p.ReferencePrice, last.Price)

		if s.Chain != nil && !s.Chain.ReadOnly() && p.ChainIndex != -1 {
			priceScaled := scaledPriceFor(last.Price)
			if err := s.Chain.VerifyPrediction(ctx, uint64(p.ChainIndex), priceScaled); err != nil {
				s.Log.Warn().Err(err).Msg("on-chain verify prediction failed")
			}
		}
		// Verified predictions are dropped from pending, not retained
		// (spec §8 property #7: verified count + pending count = total created).
	}
	aux.pending = remaining
	return nil
}

// isCorrect implements the directional realized-return check (spec §4.6,
// §8 S4): UP/DOWN need >=0.5% move in the right direction; SIDEWAYS needs
// the realized move to stay under 1% in magnitude.
func isCorrect(label domain.Direction, reference, realized float64) bool {
	if reference == 0 {
		return false
	}
	ret := (realized - reference) / reference
	switch label {
	case domain.DirectionUp:
		return ret >= 0.005
	case domain.DirectionDown:
		return ret <= -0.005
	default:
		return absf(ret) < 0.01
	}
}

func directionToSignal(d domain.Direction) domain.SignalType {
	switch d {
	case domain.DirectionUp:
		return domain.SignalBuy
	case domain.DirectionDown:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// ensemble runs the four sub-models and returns their weighted-mean
// direction, magnitude, and confidence (spec §4.6).
func ensemble(prices []float64, horizonMinutes int) (direction, magnitude, confidence float64) {
	models := []subModelResult{
		linearRegressionModel(prices),
		movingAverageCrossoverModel(prices),
		meanReversionModel(prices),
		momentumCascadeModel(prices, horizonMinutes),
	}

	var dirSum, magSum, confSum, weightSum float64
	for _, m := range models {
		w := m.confidence
		if w <= 0 {
			w = 0.01
		}
		dirSum += m.direction * w
		magSum += m.magnitude * w
		confSum += m.confidence * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0, 0, 0
	}
	return dirSum / weightSum, magSum / weightSum, confSum / weightSum
}

func linearRegressionModel(prices []float64) subModelResult {
	n := len(prices)
	window := 30
	if n < window {
		window = n
	}
	if window < 3 {
		return subModelResult{}
	}
	sample := prices[n-window:]
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, sample, nil, false)
	last := sample[len(sample)-1]
	projected := alpha + beta*float64(window)
	if last == 0 {
		return subModelResult{}
	}
	mag := (projected - last) / last
	return subModelResult{direction: clamp(mag*20, -1, 1), magnitude: mag, confidence: clamp(absf(beta)*50, 0, 1)}
}

func movingAverageCrossoverModel(prices []float64) subModelResult {
	n := len(prices)
	if n < 20 {
		return subModelResult{}
	}
	fast := sma(prices, 5)
	slow := sma(prices, 20)
	if slow == 0 {
		return subModelResult{}
	}
	diff := (fast - slow) / slow
	return subModelResult{direction: clamp(diff*20, -1, 1), magnitude: diff, confidence: clamp(absf(diff)*10, 0, 1)}
}

func meanReversionModel(prices []float64) subModelResult {
	n := len(prices)
	if n < 20 {
		return subModelResult{}
	}
	sma20 := sma(prices, 20)
	last := prices[n-1]
	if sma20 == 0 {
		return subModelResult{}
	}
	dev := (last - sma20) / sma20
	// Mean reversion: far above SMA predicts a pullback (negative direction).
	return subModelResult{direction: clamp(-dev*5, -1, 1), magnitude: -dev * 0.5, confidence: clamp(absf(dev)*5, 0, 1)}
}

func momentumCascadeModel(prices []float64, horizonMinutes int) subModelResult {
	n := len(prices)
	lookback := 10
	if n < lookback+1 {
		return subModelResult{}
	}
	mom := (prices[n-1] - prices[n-1-lookback]) / prices[n-1-lookback]
	scale := 1.0
	if horizonMinutes > 60 {
		scale = 0.5 // momentum decays over longer horizons
	}
	return subModelResult{direction: clamp(mom*10*scale, -1, 1), magnitude: mom * scale, confidence: clamp(absf(mom)*8, 0, 1)}
}

func sma(prices []float64, period int) float64 {
	n := len(prices)
	if n < period {
		period = n
	}
	if period == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices[n-period:] {
		sum += p
	}
	return sum / float64(period)
}

func scaledPriceFor(price float64) *big.Int {
	if price <= 0 {
		return big.NewInt(0)
	}
	return chain.ToFixed18(price)
}
