package agent

import (
	"math/big"

	"github.com/yeddevall/duckmon-agents-ai/internal/chain"
)

func scaledPrice(price float64) *big.Int {
	if price <= 0 {
		return big.NewInt(0)
	}
	return chain.ToFixed18(price)
}
