package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
)

// Config holds the configuration for the executor service
type Config struct {
	Port           string
	MetricsPort    string
	MetricsAPIKey  string
	RateLimit      float64
	RateBurst      int
	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
	EVM            EVMConfig
	Solana         SolanaConfig
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// EVMConfig holds the configuration of the EVM chain
type EVMConfig struct {
	Enabled             bool
	ChainID             int
	RPCURL              string
	PrivateKey          string
	RouterAddress       string
	GasMultiplier       float64
	MaxGasPrice         *big.Int
	GasPriceRefresh     time.Duration
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
}

// SolanaConfig holds the configuration of the Solana cluster and the bundle relay
type SolanaConfig struct {
	Enabled        bool
	RPCURL         string
	PrivateKey     string
	Commitment     string
	UnitPrice      uint64
	UnitLimit      uint32
	UseRelay       bool
	BlockEngineURL string
	RelayAuthUUID  string
	// TipValue is a fixed tip in SOL; nil means the tip floor API is used
	TipValue       *decimal.Decimal
	TipFloorURL    string
	TipPercentile  int
	MaxTip         decimal.Decimal
	PollInterval   time.Duration
	PollDeadline   time.Duration
	JupiterBaseURL string
}

// Validate checks the values that cannot be defaulted. The error is a *models.ConfigError.
func (c EVMConfig) Validate() error {
	if c.PrivateKey == "" {
		return &models.ConfigError{Field: "PRIVATE_KEY", Reason: "is required"}
	}
	if _, err := crypto.HexToECDSA(c.PrivateKey); err != nil {
		return &models.ConfigError{Field: "PRIVATE_KEY", Reason: "is not a valid hex encoded secp256k1 key"}
	}
	if !common.IsHexAddress(c.RouterAddress) {
		return &models.ConfigError{
			Field:  "ROUTER_ADDRESS",
			Reason: fmt.Sprintf("%q is not a valid address", c.RouterAddress),
		}
	}
	return nil
}

// Validate checks the values that cannot be defaulted. The error is a *models.ConfigError.
func (c SolanaConfig) Validate() error {
	if c.PrivateKey == "" {
		return &models.ConfigError{Field: "SOLANA_PRIVATE_KEY", Reason: "is required"}
	}
	if _, err := solana.PrivateKeyFromBase58(c.PrivateKey); err != nil {
		return &models.ConfigError{Field: "SOLANA_PRIVATE_KEY", Reason: "is not a valid base58 keypair"}
	}
	if c.PollInterval > c.PollDeadline {
		return &models.ConfigError{Field: "POLL_INTERVAL", Reason: "must not exceed POLL_DEADLINE"}
	}
	return nil
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	port, err := GetEnvPort()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	rateLimit, rateBurst, err := GetEnvRateLimit()
	if err != nil {
		return nil, err
	}

	circuitBreaker, err := GetEnvCircuitBreaker()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	evmConfig, err := GetEnvEVM()
	if err != nil {
		return nil, err
	}

	solanaConfig, err := GetEnvSolana()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           port,
		MetricsPort:    metricsPort,
		MetricsAPIKey:  os.Getenv("METRICS_API_KEY"),
		RateLimit:      rateLimit,
		RateBurst:      rateBurst,
		CircuitBreaker: circuitBreaker,
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
		EVM:    evmConfig,
		Solana: solanaConfig,
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if !cfg.EVM.Enabled && !cfg.Solana.Enabled {
		return fmt.Errorf("at least one of EVM_ENABLED or SOLANA_ENABLED must be true")
	}
	if cfg.Port == cfg.MetricsPort {
		return fmt.Errorf("PORT and METRICS_PORT must differ, both are %s", cfg.Port)
	}
	return nil
}
