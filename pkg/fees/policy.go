// Package fees decides how much a submission pays to be included: compute-unit pricing
// for direct Solana broadcasts, the relay tip for bundles and the EVM gas price.
package fees

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/dualexec/executor/pkg/chains"
)

const (
	// DefaultUnitPrice is the compute-unit price in micro-lamports
	DefaultUnitPrice uint64 = 1

	// DefaultUnitLimit is the compute-unit limit of a trade transaction
	DefaultUnitLimit uint32 = 300_000
)

// DefaultMaxTip is the ceiling on any relay tip, in SOL
var DefaultMaxTip = decimal.RequireFromString("0.1")

// Policy holds the fee settings. It is immutable after construction and shared freely.
type Policy struct {
	UnitPrice     uint64
	UnitLimit     uint32
	MaxTip        decimal.Decimal
	GasMultiplier float64
	MaxGasPrice   *big.Int
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		UnitPrice:     DefaultUnitPrice,
		UnitLimit:     DefaultUnitLimit,
		MaxTip:        DefaultMaxTip,
		GasMultiplier: 1.1,
	}
}

// PriorityFee returns the compute-unit price and limit for a direct broadcast.
func (p Policy) PriorityFee() (unitPrice uint64, unitLimit uint32) {
	return p.UnitPrice, p.UnitLimit
}

// RelayTip caps the externally suggested tip at MaxTip. Negative suggestions give zero.
func (p Policy) RelayTip(requested decimal.Decimal) decimal.Decimal {
	if requested.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(requested, p.MaxTip)
}

// TipLamports converts a tip in SOL into lamports, dropping anything below one lamport.
func TipLamports(tip decimal.Decimal) uint64 {
	if !tip.IsPositive() {
		return 0
	}
	return tip.Shift(chains.NativeDecimalsSolana).Truncate(0).BigInt().Uint64()
}

// GasPrice applies the multiplier to a node-suggested gas price and caps the result at
// MaxGasPrice when one is set.
func (p Policy) GasPrice(suggested *big.Int) *big.Int {
	if suggested == nil {
		return nil
	}

	multiplier := p.GasMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	multiplied := new(big.Float).Mul(new(big.Float).SetInt(suggested), big.NewFloat(multiplier))
	final := new(big.Int)
	multiplied.Int(final)

	if p.MaxGasPrice != nil && p.MaxGasPrice.Sign() > 0 && final.Cmp(p.MaxGasPrice) > 0 {
		return new(big.Int).Set(p.MaxGasPrice)
	}
	return final
}
