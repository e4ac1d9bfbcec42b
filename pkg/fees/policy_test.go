package fees

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_PriorityFee(t *testing.T) {
	price, limit := DefaultPolicy().PriorityFee()
	assert.Equal(t, uint64(1), price)
	assert.Equal(t, uint32(300_000), limit)

	price, limit = Policy{UnitPrice: 5000, UnitLimit: 200_000}.PriorityFee()
	assert.Equal(t, uint64(5000), price)
	assert.Equal(t, uint32(200_000), limit)
}

func TestPolicy_RelayTip(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		requested string
		want      string
	}{
		{"0.25", "0.1"},
		{"0.1", "0.1"},
		{"0.00001", "0.00001"},
		{"0", "0"},
		{"-0.5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			got := p.RelayTip(decimal.RequireFromString(tt.requested))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestTipLamports(t *testing.T) {
	assert.Equal(t, uint64(100_000_000), TipLamports(decimal.RequireFromString("0.1")))
	assert.Equal(t, uint64(10_000), TipLamports(decimal.RequireFromString("0.00001")))
	assert.Equal(t, uint64(1), TipLamports(decimal.RequireFromString("0.0000000019")))
	assert.Equal(t, uint64(0), TipLamports(decimal.Zero))
	assert.Equal(t, uint64(0), TipLamports(decimal.RequireFromString("-1")))
}

func TestPolicy_GasPrice(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		max        *big.Int
		suggested  *big.Int
		want       *big.Int
	}{
		{"ten percent buffer", 1.1, nil, big.NewInt(10_000_000_000), big.NewInt(11_000_000_000)},
		{"capped", 1.5, big.NewInt(12_000_000_000), big.NewInt(10_000_000_000), big.NewInt(12_000_000_000)},
		{"non positive multiplier means none", 0, nil, big.NewInt(3_000_000_000), big.NewInt(3_000_000_000)},
		{"nil suggestion", 1.1, nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{GasMultiplier: tt.multiplier, MaxGasPrice: tt.max}
			got := p.GasPrice(tt.suggested)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, 0, tt.want.Cmp(got), "got %s", got)
		})
	}
}
