package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualexec/executor/pkg/models"
)

const testEVMKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "0x"+testEVMKey)
	t.Setenv("ROUTER_ADDRESS", "0xD99D1c33F9fC3444f8101754aBC46c52416550D1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMetricsPort, cfg.MetricsPort)
	assert.True(t, cfg.EVM.Enabled)
	assert.Equal(t, 97, cfg.EVM.ChainID)
	assert.Equal(t, testEVMKey, cfg.EVM.PrivateKey)
	assert.Equal(t, 60*time.Second, cfg.EVM.ReceiptTimeout)
	assert.NoError(t, cfg.EVM.Validate())

	assert.False(t, cfg.Solana.Enabled)
	assert.Equal(t, uint64(1), cfg.Solana.UnitPrice)
	assert.Equal(t, uint32(300_000), cfg.Solana.UnitLimit)
	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.Solana.MaxTip))
	assert.Equal(t, time.Second, cfg.Solana.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Solana.PollDeadline)
	assert.Nil(t, cfg.Solana.TipValue)
}

func TestLoadConfig_SolanaOverrides(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	t.Setenv("EVM_ENABLED", "false")
	t.Setenv("SOLANA_ENABLED", "true")
	t.Setenv("SOLANA_PRIVATE_KEY", key.String())
	t.Setenv("USE_JITO", "true")
	t.Setenv("UNIT_PRICE", "5000")
	t.Setenv("UNIT_LIMIT", "250000")
	t.Setenv("JITO_TIP_VALUE", "0.001")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("POLL_DEADLINE", "15")
	t.Setenv("BLOCK_ENGINE_URL", "https://ny.mainnet.block-engine.jito.wtf/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Solana.UseRelay)
	assert.Equal(t, uint64(5000), cfg.Solana.UnitPrice)
	assert.Equal(t, uint32(250_000), cfg.Solana.UnitLimit)
	require.NotNil(t, cfg.Solana.TipValue)
	assert.Equal(t, "0.001", cfg.Solana.TipValue.String())
	assert.Equal(t, 500*time.Millisecond, cfg.Solana.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Solana.PollDeadline)
	assert.Equal(t, "https://ny.mainnet.block-engine.jito.wtf", cfg.Solana.BlockEngineURL)
	assert.NoError(t, cfg.Solana.Validate())
}

func TestLoadConfig_MalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"chain id", "CHAIN_ID", "bsc"},
		{"gas multiplier", "GAS_MULTIPLIER", "-1"},
		{"poll interval", "POLL_INTERVAL", "soon"},
		{"unit limit overflow", "UNIT_LIMIT", "99999999999"},
		{"max tip", "MAX_TIP", "0"},
		{"zero tip", "JITO_TIP_VALUE", "0"},
		{"tip below one lamport", "JITO_TIP_VALUE", "0.0000000001"},
		{"negative tip", "JITO_TIP_VALUE", "-0.001"},
		{"tip percentile", "JITO_TIP_PERCENTILE", "60"},
		{"commitment", "SOLANA_COMMITMENT", "rooted"},
		{"log level", "LOG_LEVEL", "loud"},
		{"rpc url", "RPC_URL", "not a url"},
		{"boolean", "USE_JITO", "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadConfig_NoChainEnabled(t *testing.T) {
	t.Setenv("EVM_ENABLED", "false")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestEVMConfig_Validate(t *testing.T) {
	valid := EVMConfig{PrivateKey: testEVMKey, RouterAddress: "0x10ED43C718714eb63d5aA57B78B54704E256024E"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		cfg   EVMConfig
		field string
	}{
		{"missing key", EVMConfig{RouterAddress: valid.RouterAddress}, "PRIVATE_KEY"},
		{"bad key", EVMConfig{PrivateKey: "zz", RouterAddress: valid.RouterAddress}, "PRIVATE_KEY"},
		{"bad router", EVMConfig{PrivateKey: testEVMKey, RouterAddress: "0x1234"}, "ROUTER_ADDRESS"},
		{"empty router", EVMConfig{PrivateKey: testEVMKey}, "ROUTER_ADDRESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var cfgErr *models.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSolanaConfig_Validate(t *testing.T) {
	err := SolanaConfig{PrivateKey: "not-base58-0OIl"}.Validate()
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SOLANA_PRIVATE_KEY", cfgErr.Field)

	err = SolanaConfig{
		PrivateKey:   solana.NewWallet().PrivateKey.String(),
		PollInterval: 20 * time.Second,
		PollDeadline: 10 * time.Second,
	}.Validate()
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "POLL_INTERVAL", cfgErr.Field)
}
