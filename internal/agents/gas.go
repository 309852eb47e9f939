package agents

import (
	"context"
	"fmt"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/ring"
)

// gasRingCapacity is how many recent gas-price samples are kept. The
// recommendation thresholds (in gasRecommendation) are ratios to the trailing
// average of these samples rather than fixed gwei values, so the
// recommendation scales with whatever chain it runs against.
const gasRingCapacity = 60

type gasAux struct {
	history *ring.History[float64]
}

func gasState(s *agent.State) *gasAux {
	if s.Aux == nil {
		s.Aux = &gasAux{history: ring.NewHistory[float64](gasRingCapacity)}
	}
	return s.Aux.(*gasAux)
}

// Gas implements agent.Analyzer for the Gas variant (spec §4.6).
type Gas struct{}

func (Gas) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	if s.Chain == nil {
		return agent.Result{}, nil
	}
	aux := gasState(s)

	gp, err := s.Chain.GetGasPrice(ctx)
	if err != nil {
		return agent.Result{}, fmt.Errorf("get gas price: %w", err)
	}
	gwei := weiToGwei(gp)
	aux.history.Append(gwei)

	samples := aux.history.Slice()
	avg := average(samples)
	rec := gasRecommendation(gwei, avg)
	predicted := nextBlockExtrapolation(samples)

	last, _ := lastSample(s.History.Slice())

	confidence := 60.0
	sig := &domain.Signal{
		AgentName:  "gas",
		Type:       domain.SignalHold,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("%s at %.2f gwei (avg %.2f, predicted next block %.2f)", rec, gwei, avg, predicted),
		Category:   domain.CategoryGas,
		ReceivedAt: nowMs(),
		Extra: map[string]interface{}{
			"gasGwei":          gwei,
			"recommendation":   rec,
			"predictedNextGwei": predicted,
		},
	}

	hubExtra := map[string]interface{}{
		"gasGwei":        gwei,
		"recommendation": rec,
		"predicted":      predicted,
	}

	return agent.Result{Signal: sig, OnChainConfidence: 0, HubExtra: hubExtra}, nil
}

func gasRecommendation(current, avg float64) string {
	if avg == 0 {
		return "NORMAL"
	}
	ratio := current / avg
	switch {
	case ratio < 0.7:
		return "EXCELLENT"
	case ratio < 0.9:
		return "GOOD"
	case ratio <= 1.1:
		return "NORMAL"
	case ratio <= 1.5:
		return "ELEVATED"
	default:
		return "HIGH"
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// nextBlockExtrapolation linearly extrapolates one step beyond the last two
// samples. With fewer than two samples it returns the last known value.
func nextBlockExtrapolation(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	if n < 2 {
		return samples[n-1]
	}
	delta := samples[n-1] - samples[n-2]
	return samples[n-1] + delta
}
