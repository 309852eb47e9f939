package agents

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yeddevall/duckmon-agents-ai/internal/agent"
	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// Whale scan constants (spec §4.6).
const (
	whaleLookbackBlocks = 500
	whaleMinTransfer    = 1_000_000.0 // whole tokens
	whaleMegaFraction   = 0.005
	whaleLargeFraction  = 0.001
)

// whaleAux is the Whale variant's running state: the monotone block cursor
// (spec §8 property #2) and per-address tallies.
type whaleAux struct {
	mu              sync.Mutex
	lastScannedBlock uint64
	initialized      bool
	tallies          map[string]*domain.WhaleTally
	totalSupply      float64
	tokenAddress     common.Address
	tokenDecimals    int
}

func whaleState(s *agent.State, tokenAddr common.Address) *whaleAux {
	if s.Aux == nil {
		s.Aux = &whaleAux{tallies: make(map[string]*domain.WhaleTally), tokenAddress: tokenAddr, tokenDecimals: 18}
	}
	return s.Aux.(*whaleAux)
}

// Whale implements agent.Analyzer for the Whale variant (spec §4.6).
type Whale struct {
	TokenAddress common.Address
}

func (w Whale) Analyze(ctx context.Context, s *agent.State) (agent.Result, error) {
	aux := whaleState(s, w.TokenAddress)
	last, _ := lastSample(s.History.Slice())

	if s.Chain == nil {
		return agent.Result{}, nil
	}

	current, err := s.Chain.GetBlockNumber(ctx)
	if err != nil {
		return agent.Result{}, fmt.Errorf("get block number: %w", err)
	}

	aux.mu.Lock()
	var from uint64
	if !aux.initialized {
		// First scan covers [current-whaleLookbackBlocks, current] inclusive
		// (spec §8 S5's worked example: from=B-500, to=B, 501 blocks), not
		// lastScannedBlock+1's usual one-past-the-last-cursor rule.
		if current > whaleLookbackBlocks {
			from = current - whaleLookbackBlocks
		}
		aux.initialized = true
		if supply, err := s.Chain.GetTotalSupply(ctx, w.TokenAddress); err == nil && supply != nil {
			aux.totalSupply = fromBaseUnits(supply, aux.tokenDecimals)
		}
	} else {
		from = aux.lastScannedBlock + 1
	}
	to := current
	aux.mu.Unlock()

	if from > to {
		return agent.Result{}, nil
	}

	transfers, err := s.Chain.GetTransferLogs(ctx, w.TokenAddress, from, to)
	if err != nil {
		return agent.Result{}, fmt.Errorf("get transfer logs: %w", err)
	}

	aux.mu.Lock()
	aux.lastScannedBlock = to // monotone cursor advance regardless of hit count
	aux.mu.Unlock()

	var biggest *domain.WhaleTally
	var biggestValue float64
	var biggestDirection domain.SignalType

	for _, t := range transfers {
		value := parseBaseUnits(t.Value, aux.tokenDecimals)
		if value < whaleMinTransfer {
			continue
		}
		fromTally := w.tally(aux, t.From)
		toTally := w.tally(aux, t.To)
		fromTally.TotalOut += value
		fromTally.LastSeen = lastSeenNow()
		toTally.TotalIn += value
		toTally.LastSeen = lastSeenNow()
		fromTally.TxCount++
		toTally.TxCount++
		classifyWhaleProfile(fromTally)
		classifyWhaleProfile(toTally)

		if value > biggestValue {
			biggestValue = value
			biggest = toTally
			biggestDirection = inferDirection(fromTally, toTally)
		}
	}

	gasGwei := 0.0
	if gp, err := s.Chain.GetGasPrice(ctx); err == nil && gp != nil {
		gasGwei = weiToGwei(gp)
	}

	if biggest == nil {
		return agent.Result{}, nil
	}

	fraction := 0.0
	if aux.totalSupply > 0 {
		fraction = biggestValue / aux.totalSupply
	}
	class := classifyByFraction(fraction)

	confidence := clamp(50+fraction*10000, 30, 95)
	sig := &domain.Signal{
		AgentName:  "whale",
		Type:       biggestDirection,
		Confidence: confidence,
		Price:      last.Price,
		Reason:     fmt.Sprintf("%s transfer of %.0f tokens (%.3f%% supply)", class, biggestValue, fraction*100),
		Category:   domain.CategoryWhale,
		ReceivedAt: nowMs(),
		Extra: map[string]interface{}{
			"class":    class,
			"amount":   biggestValue,
			"fraction": fraction,
			"gasGwei":  gasGwei,
		},
	}

	hubExtra := map[string]interface{}{
		"class":    class,
		"amount":   biggestValue,
		"fraction": fraction,
		"address":  biggest.Address,
		"gasGwei":  gasGwei,
	}

	return agent.Result{Signal: sig, OnChainConfidence: confidence, HubExtra: hubExtra}, nil
}

func (w Whale) tally(aux *whaleAux, address string) *domain.WhaleTally {
	key := strings.ToLower(address)
	aux.mu.Lock()
	defer aux.mu.Unlock()
	t, ok := aux.tallies[key]
	if !ok {
		t = &domain.WhaleTally{Address: key, FirstSeen: lastSeenNow(), Profile: domain.ProfileNew}
		aux.tallies[key] = t
	}
	return t
}

func classifyWhaleProfile(t *domain.WhaleTally) {
	net := t.NetFlow()
	switch {
	case t.TxCount <= 1:
		t.Profile = domain.ProfileNew
	case net > t.TotalIn*0.3:
		t.Profile = domain.ProfileAccumulator
	case net < -t.TotalOut*0.3:
		t.Profile = domain.ProfileDistributor
	case t.TxCount > 10:
		t.Profile = domain.ProfileTrader
	default:
		t.Profile = domain.ProfileMixed
	}
}

func inferDirection(from, to *domain.WhaleTally) domain.SignalType {
	switch to.Profile {
	case domain.ProfileAccumulator:
		return domain.SignalBuy
	case domain.ProfileDistributor:
		return domain.SignalSell
	default:
		if from.Profile == domain.ProfileDistributor {
			return domain.SignalSell
		}
		return domain.SignalHold
	}
}

func classifyByFraction(fraction float64) string {
	switch {
	case fraction >= whaleMegaFraction:
		return "MEGA"
	case fraction >= whaleLargeFraction:
		return "LARGE"
	default:
		return "WHALE"
	}
}

func fromBaseUnits(v *big.Int, decimals int) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f := new(big.Float).SetInt(v)
	f.Quo(f, scale)
	out, _ := f.Float64()
	return out
}

func parseBaseUnits(decimalStr string, decimals int) float64 {
	v, ok := new(big.Int).SetString(decimalStr, 10)
	if !ok {
		return 0
	}
	return fromBaseUnits(v, decimals)
}
