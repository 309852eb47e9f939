package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// BondingReader implements priceservice.BondingReader against a bonding
// curve contract (spec §4.2). It is a thin, read-only companion to Client —
// kept separate since the curve is a distinct on-chain address from the
// agent registry.
type BondingReader struct {
	client *Client
	curve  common.Address
}

// NewBondingReader wraps client for reads against curveAddr.
func NewBondingReader(client *Client, curveAddr common.Address) *BondingReader {
	return &BondingReader{client: client, curve: curveAddr}
}

// ReserveBalance reads the curve's current reserve for tokenAddress.
func (b *BondingReader) ReserveBalance(ctx context.Context, tokenAddress string) (*big.Int, error) {
	return b.call(ctx, "reserveBalance", tokenAddress)
}

// GraduationThreshold reads the curve's graduation threshold for tokenAddress.
func (b *BondingReader) GraduationThreshold(ctx context.Context, tokenAddress string) (*big.Int, error) {
	return b.call(ctx, "graduationThreshold", tokenAddress)
}

func (b *BondingReader) call(ctx context.Context, method, tokenAddress string) (*big.Int, error) {
	data, err := bondingCurveABI.Pack(method, common.HexToAddress(tokenAddress))
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	raw, err := b.client.eth.CallContract(ctx, ethereum.CallMsg{To: &b.curve, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	out, err := bondingCurveABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: %s unexpected return shape", method)
	}
	return v, nil
}
