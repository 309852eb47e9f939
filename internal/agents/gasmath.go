package agents

import "math/big"

// weiGweiDivisor is the exact divisor spec §8 property #9 guards: gasGwei
// must equal gasWei/1_000_000_000 exactly, not a rounded approximation (the
// original implementation had a formatting bug here).
var weiGweiDivisor = big.NewFloat(1_000_000_000)

// weiToGwei converts a wei gas price to gwei.
func weiToGwei(wei *big.Int) float64 {
	f := new(big.Float).SetInt(wei)
	f.Quo(f, weiGweiDivisor)
	out, _ := f.Float64()
	return out
}
