package priceservice

import (
	"context"
	"math/big"
)

// BondingProgress is the launch-curve completion state of a token (spec §4.2).
type BondingProgress struct {
	Progress    float64 // percent, [0,100]
	IsGraduated bool
}

// BondingReader performs the two on-chain reads getBondingProgress needs:
// current reserve/supply position and the graduation threshold. Concrete
// implementations live alongside the launch-curve contract's ABI.
type BondingReader interface {
	ReserveBalance(ctx context.Context, tokenAddress string) (*big.Int, error)
	GraduationThreshold(ctx context.Context, tokenAddress string) (*big.Int, error)
}

// GetBondingProgress reports how far a token is along its bonding curve.
// Any read failure yields the documented zero-value result rather than an
// error, since callers treat this as a best-effort market-context field
// (spec §4.2).
func (s *Service) GetBondingProgress(ctx context.Context, reader BondingReader, tokenAddress string) BondingProgress {
	if reader == nil {
		return BondingProgress{}
	}

	reserve, err := reader.ReserveBalance(ctx, tokenAddress)
	if err != nil || reserve == nil {
		return BondingProgress{}
	}
	threshold, err := reader.GraduationThreshold(ctx, tokenAddress)
	if err != nil || threshold == nil || threshold.Sign() <= 0 {
		return BondingProgress{}
	}

	ratio := new(big.Float).Quo(new(big.Float).SetInt(reserve), new(big.Float).SetInt(threshold))
	pct, _ := ratio.Float64()
	pct *= 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	return BondingProgress{
		Progress:    pct,
		IsGraduated: pct >= 100,
	}
}
