package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// SwapQuoter implements priceservice.FallbackQuoter against an on-chain
// swap-quote contract (spec §4.2 step 2: "1 / amountOut(1 native -> token)").
// Kept separate from Client the same way BondingReader is, since the
// quoter is a distinct contract address (the wrapped-native/router pair).
type SwapQuoter struct {
	client *Client
	router common.Address
	wmon   common.Address
}

// NewSwapQuoter wraps client for reads against routerAddr, quoting swaps of
// wmonAddr (the wrapped-native token, WMON_ADDRESS) into arbitrary tokens.
func NewSwapQuoter(client *Client, routerAddr, wmonAddr common.Address) *SwapQuoter {
	return &SwapQuoter{client: client, router: routerAddr, wmon: wmonAddr}
}

// QuoteNativeToToken returns how many base units of tokenAddress a swap of
// oneNative units of the wrapped-native token would yield.
func (q *SwapQuoter) QuoteNativeToToken(ctx context.Context, tokenAddress string, oneNative *big.Int) (*big.Int, error) {
	data, err := swapQuoterABI.Pack("getAmountOut", oneNative, q.wmon, common.HexToAddress(tokenAddress))
	if err != nil {
		return nil, fmt.Errorf("chain: pack getAmountOut: %w", err)
	}
	raw, err := q.client.eth.CallContract(ctx, ethereum.CallMsg{To: &q.router, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call getAmountOut: %w", err)
	}
	out, err := swapQuoterABI.Unpack("getAmountOut", raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack getAmountOut: %w", err)
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: getAmountOut unexpected return shape")
	}
	return amount, nil
}
