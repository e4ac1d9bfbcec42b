// Package slippage turns an expected swap output and a tolerance into the minimum
// acceptable output passed on-chain.
package slippage

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxTolerance is the ceiling applied to any requested tolerance
const MaxTolerance = 0.99

// Clamp bounds a tolerance to [0, MaxTolerance]. NaN is treated as zero.
func Clamp(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 0
	}
	if s > MaxTolerance {
		return MaxTolerance
	}
	return s
}

// MinOutput returns floor(expected * (1 - Clamp(s))). A nil or non-positive expected
// output gives zero, which disables the bound.
func MinOutput(expected *big.Int, s float64) *big.Int {
	if expected == nil || expected.Sign() <= 0 {
		return new(big.Int)
	}

	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(Clamp(s)))
	out := decimal.NewFromBigInt(expected, 0).Mul(keep).Floor().BigInt()

	if out.Sign() < 0 {
		return new(big.Int)
	}
	if out.Cmp(expected) > 0 {
		return new(big.Int).Set(expected)
	}
	return out
}

// ToBps converts a tolerance into basis points, rounding to the nearest point.
func ToBps(s float64) uint16 {
	return uint16(decimal.NewFromFloat(Clamp(s)).Mul(decimal.NewFromInt(10_000)).Round(0).IntPart())
}
