package chain

import "math/big"

// base18 is the fixed-point scale the registry contract uses for prices
// (1.0 native = 1e18), matching common ERC20 decimals conventions.
var base18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ToFixed18 scales a floating-point "whole token" amount to a base-18 integer.
// All arithmetic inside the client stays on *big.Int; floats only cross the
// boundary here and in FromFixed18 (spec §4.1).
func ToFixed18(amount float64) *big.Int {
	bf := new(big.Float).SetFloat64(amount)
	bf.Mul(bf, new(big.Float).SetInt(base18))
	out, _ := bf.Int(nil)
	return out
}

// FromFixed18 converts a base-18 fixed-point integer back to a float64.
func FromFixed18(v *big.Int) float64 {
	bf := new(big.Float).SetInt(v)
	bf.Quo(bf, new(big.Float).SetInt(base18))
	f, _ := bf.Float64()
	return f
}
