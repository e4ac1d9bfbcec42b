package contracts

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterABI_Selectors(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	require.NoError(t, err)

	selectors := map[string]string{
		"WETH":          "ad5c4648",
		"getAmountsOut": "d06ca61f",
		"swapExactETHForTokensSupportingFeeOnTransferTokens": "b6f9de95",
	}
	for name, want := range selectors {
		method, ok := parsed.Methods[name]
		require.True(t, ok, name)
		assert.Equal(t, want, hex.EncodeToString(method.ID), name)
	}

	assert.True(t, parsed.Methods["swapExactETHForTokensSupportingFeeOnTransferTokens"].IsPayable())
}

func TestRouterABI_PackSwap(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	require.NoError(t, err)

	path := []common.Address{
		common.HexToAddress("0xae13d989daC2f0dEbFf460aC112a837C89BAa7cd"),
		common.HexToAddress("0x0000000000000000000000000000000000000abc"),
	}
	data, err := parsed.Pack("swapExactETHForTokensSupportingFeeOnTransferTokens",
		big.NewInt(700), path, common.HexToAddress("0x1"), big.NewInt(1_700_000_000))
	require.NoError(t, err)

	// selector + 4 head words + path length + 2 path entries
	assert.Len(t, data, 4+32*7)

	args, err := parsed.Methods["swapExactETHForTokensSupportingFeeOnTransferTokens"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(700).Cmp(args[0].(*big.Int)))
	assert.Equal(t, path, args[1].([]common.Address))
}
