package hub

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/yeddevall/duckmon-agents-ai/internal/advisor"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/indicators"
	"github.com/yeddevall/duckmon-agents-ai/internal/priceservice"
)

// Self-analysis thresholds (spec §4.7 step 3).
const (
	fullAnalysisMinSamples = 5
	deepAnalysisMinSamples = 20
	atrStopMultiple        = 1.5
	supportBuffer          = 0.99
)

// Kelly heuristic win rates (spec §9 Open Question resolution: with no live
// track record to estimate from at startup, a fixed, conservative win rate is
// assumed per side — 0.55 when the own+consensus score agree and point the
// same direction as the recommendation, 0.50 otherwise. This is documented as
// a deliberate simplification, not a derived constant).
const (
	kellyWinRateAligned   = 0.55
	kellyWinRateDefault   = 0.50
	kellyMaxPositionPct   = 12.5
	kellyPayoffRatio      = 2.0 // assume a 2R average win versus a 1R average loss
)

// RiskLevels is the assembled entry/stop/target/position-size block for an
// analysis result (spec §4.7 step 6).
type RiskLevels struct {
	Entry          float64 `json:"entry"`
	Stop           float64 `json:"stop"`
	Target2R       float64 `json:"target2R"`
	Target3R       float64 `json:"target3R"`
	PositionSizePct float64 `json:"positionSizePct"`
}

// AnalysisResult is the hub's self-computed technical read of the focal
// token, merged with live agent consensus (spec §4.7 step 4-7).
type AnalysisResult struct {
	TokenAddress   string            `json:"tokenAddress"`
	Price          float64           `json:"price"`
	OwnScore       float64           `json:"ownScore"`
	ConsensusScore float64           `json:"consensusScore"`
	MergedScore    float64           `json:"mergedScore"`
	Label          domain.SignalType `json:"label"`
	Support        float64           `json:"support,omitempty"`
	Resistance     float64           `json:"resistance,omitempty"`
	Fibonacci      map[string]float64 `json:"fibonacci,omitempty"`
	OBV            float64           `json:"obv,omitempty"`
	Risk           RiskLevels        `json:"risk"`
	Narrative      string            `json:"narrative"`
	GeneratedAt    int64             `json:"generatedAt"`
}

// Analyzer runs the hub's own technical self-analysis and merges it with the
// live weighted agent consensus (spec §4.7).
type Analyzer struct {
	state   *State
	price   *priceservice.Service
	hub     *SocketHub
	log     zerolog.Logger
	advisor *advisor.Proxy // optional; nil or unconfigured means no enrichment (spec §4.9)
}

func NewAnalyzer(state *State, price *priceservice.Service, socketHub *SocketHub, log zerolog.Logger) *Analyzer {
	return &Analyzer{state: state, price: price, hub: socketHub, log: log}
}

// WithAdvisor wires an optional LLM narrative enrichment into the analyzer.
// Passing nil or an unconfigured proxy disables enrichment entirely; the
// fixed-template narrative from narrativeFor always stands on its own
// (spec §4.7 step 7: "no external model call is required").
func (a *Analyzer) WithAdvisor(p *advisor.Proxy) *Analyzer {
	a.advisor = p
	return a
}

// AnalyzeToken runs one full self-analysis pass for addr and broadcasts the
// result (spec §4.7 steps 1-8).
func (a *Analyzer) AnalyzeToken(ctx context.Context, addr string) {
	sample := a.price.FetchPrice(ctx, addr)
	if sample == nil {
		a.log.Warn().Str("token", addr).Msg("self-analysis: no price available, skipping pass")
		return
	}

	a.state.AppendTokenSample(addr, TokenSample{
		Price:     sample.Price,
		Volume:    sample.Volume24h,
		Timestamp: nowMs(),
	})

	series := a.state.TokenSeries(addr)
	prices := make([]float64, len(series))
	volumes := make([]float64, len(series))
	for i, s := range series {
		prices[i] = s.Price
		volumes[i] = s.Volume
	}

	result := AnalysisResult{
		TokenAddress: addr,
		Price:        sample.Price,
		GeneratedAt:  nowMs(),
	}

	if len(prices) >= fullAnalysisMinSamples {
		result.OwnScore = ownTechnicalScore(prices, volumes)
	}
	if len(prices) >= deepAnalysisMinSamples {
		levels := indicators.SupportResistance(prices, volumes, len(prices))
		result.Support = levels.Support
		result.Resistance = levels.Resistance
		result.Fibonacci = indicators.Fibonacci(prices, len(prices))
		result.OBV = indicators.OBV(prices, volumes)
	}

	consensus := a.state.Consensus()
	if consensus != nil {
		result.ConsensusScore = consensus.Normalized
	}

	result.MergedScore = 0.6*result.OwnScore + 0.4*result.ConsensusScore
	result.Label = labelFromScore(result.MergedScore)
	result.Risk = computeRiskLevels(sample.Price, prices, result)
	result.Narrative = narrativeFor(result)

	a.state.SetAnalysisResult(addr, result)
	a.hub.Broadcast("analysis:result", result)

	if a.advisor != nil && a.advisor.Enabled() {
		go a.enrichNarrative(addr, result)
	}
}

// enrichNarrative asks the advisor proxy for a short additional commentary
// and, if one comes back before its own bounded timeout, appends it to the
// cached analysis result and re-broadcasts. This runs off the analysis
// goroutine entirely so a slow or failing advisor never delays the next
// scheduled pass (spec §4.9: "silent degradation").
func (a *Analyzer) enrichNarrative(addr string, result AnalysisResult) {
	prompt := fmt.Sprintf(
		"Token %s at price %.6f, label %s, merged score %.2f. Respond with JSON {\"commentary\": \"...\"} giving one short sentence of added market color.",
		addr, result.Price, result.Label, result.MergedScore,
	)
	reply := a.advisor.Call(context.Background(), prompt)
	if reply == nil {
		return
	}
	commentary, ok := reply["commentary"].(string)
	if !ok || commentary == "" {
		return
	}

	result.Narrative = result.Narrative + " " + commentary
	a.state.SetAnalysisResult(addr, result)
	a.hub.Broadcast("analysis:result", result)
}

// ownTechnicalScore folds RSI/trend/MACD/Bollinger into a single -1..1 score
// analogous to the per-agent Sign()*confidence contribution used in the
// consensus math, so mergedScore's 0.6/0.4 weighting is comparing like units.
func ownTechnicalScore(prices, volumes []float64) float64 {
	rsi := indicators.RSI(prices)
	trend := indicators.TrendOf(prices)
	macd := indicators.MACDOf(prices)
	pctB := indicators.BollingerPercentB(prices)

	rsiScore := (rsi - 50) / 50
	macdScore := 0.0
	if macd.Line != 0 {
		macdScore = clampUnit(macd.Histogram / math.Abs(macd.Line))
	}
	bbScore := (pctB - 0.5) * 2

	return clampUnit(0.4*trend.Direction*trend.Strength + 0.3*rsiScore + 0.2*macdScore + 0.1*bbScore)
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func labelFromScore(score float64) domain.SignalType {
	switch {
	case score > 0.10:
		return domain.SignalBuy
	case score < -0.10:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// computeRiskLevels derives stop/target/position-size from ATR and the
// support/resistance levels already computed for result (spec §4.7 step 6).
func computeRiskLevels(price float64, prices []float64, result AnalysisResult) RiskLevels {
	atr := indicators.ATR(prices, 14)
	stop := price - atrStopMultiple*atr
	if result.Support > 0 {
		cap := result.Support * supportBuffer
		if cap < stop {
			stop = cap
		}
	}
	if stop <= 0 || stop >= price {
		stop = price * 0.95
	}
	risk := price - stop
	target2R := price + 2*risk
	target3R := price + 3*risk

	winRate := kellyWinRateDefault
	aligned := (result.MergedScore > 0) == (result.OwnScore > 0) && (result.MergedScore > 0) == (result.ConsensusScore > 0)
	if aligned {
		winRate = kellyWinRateAligned
	}
	kelly := winRate - (1-winRate)/kellyPayoffRatio
	positionPct := clampPct(kelly/2*100, 0, kellyMaxPositionPct)

	return RiskLevels{
		Entry:           price,
		Stop:            stop,
		Target2R:        target2R,
		Target3R:        target3R,
		PositionSizePct: positionPct,
	}
}

func clampPct(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// narrativeFor assembles a fixed-template narrative from result's computed
// fields; no external model call is needed for this (spec §4.7 step 7).
func narrativeFor(r AnalysisResult) string {
	var trendWord string
	switch r.Label {
	case domain.SignalBuy:
		trendWord = "leaning bullish"
	case domain.SignalSell:
		trendWord = "leaning bearish"
	default:
		trendWord = "range-bound"
	}

	narrative := fmt.Sprintf(
		"%s at %.6f is %s (merged score %.2f: own %.2f, consensus %.2f).",
		r.TokenAddress, r.Price, trendWord, r.MergedScore, r.OwnScore, r.ConsensusScore,
	)
	if r.Support > 0 && r.Resistance > 0 {
		narrative += fmt.Sprintf(" Support near %.6f, resistance near %.6f.", r.Support, r.Resistance)
	}
	narrative += fmt.Sprintf(
		" Suggested stop %.6f, targets %.6f/%.6f, position size %.1f%%.",
		r.Risk.Stop, r.Risk.Target2R, r.Risk.Target3R, r.Risk.PositionSizePct,
	)
	return narrative
}
