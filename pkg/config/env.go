package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/logger"
)

const (
	// DefaultPort is the port of the trade API
	DefaultPort = "8080"

	// DefaultMetricsPort defines the default port for the health and metrics server
	DefaultMetricsPort = "9090"

	// DefaultRateLimit is the sustained number of inbound trade requests per second
	DefaultRateLimit = 10.0

	// DefaultRateBurst is the number of requests allowed above the sustained rate
	DefaultRateBurst = 20

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 5 * time.Second

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 15 * time.Second

	// EVM

	DefaultEVMEnabled = true

	// DefaultRPCURL is a public BSC testnet endpoint
	DefaultRPCURL = "https://data-seed-prebsc-1-s1.bnbchain.org:8545"

	// DefaultChainID is BSC testnet
	DefaultChainID = 97

	// DefaultGasMultiplier adds a 10% buffer to the suggested gas price
	DefaultGasMultiplier = 1.1

	// DefaultMaxGasPrice defines the maximum gas price for transactions
	DefaultMaxGasPrice = "20000000000" // 20 Gwei

	DefaultGasPriceRefresh     = 15 * time.Second
	DefaultReceiptPollInterval = time.Second
	DefaultReceiptTimeout      = 60 * time.Second

	// Solana

	DefaultSolanaEnabled = false

	DefaultSolanaRPCURL     = "https://api.mainnet-beta.solana.com"
	DefaultSolanaCommitment = "confirmed"

	// DefaultUnitPrice is the compute-unit price in micro-lamports
	DefaultUnitPrice = 1

	// DefaultUnitLimit is the compute-unit limit for a trade transaction
	DefaultUnitLimit = 300_000

	DefaultUseJito        = false
	DefaultBlockEngineURL = "https://mainnet.block-engine.jito.wtf"
	DefaultTipFloorURL    = "https://bundles.jito.wtf/api/v1/bundles/tip_floor"
	DefaultTipPercentile  = 50

	// DefaultMaxTip is the tip ceiling in SOL
	DefaultMaxTip = "0.1"

	DefaultPollInterval = time.Second
	DefaultPollDeadline = 10 * time.Second

	DefaultJupiterBaseURL = "https://quote-api.jup.ag"
)

var validTipPercentiles = map[int]bool{25: true, 50: true, 75: true, 95: true, 99: true}

func parseBool(name, value string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", name, value)
}

// parseDuration accepts Go durations ("1500ms") or a plain number of seconds
func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%s must be greater than 0", name)
		}
		return time.Duration(secs) * time.Second, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", name, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return parsed, nil
}

func parsePort(name, value, def string) (string, error) {
	if value == "" {
		return def, nil
	}
	if _, err := strconv.Atoi(value); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid integer", name, value)
	}
	return value, nil
}

func parseURL(name, value, def string) (string, error) {
	if value == "" {
		return def, nil
	}
	if _, err := url.ParseRequestURI(value); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid URL", name, value)
	}
	return value, nil
}

// GetEnvPort returns the trade API port from environment variables
func GetEnvPort() (string, error) {
	return parsePort("PORT", os.Getenv("PORT"), DefaultPort)
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	return parsePort("METRICS_PORT", os.Getenv("METRICS_PORT"), DefaultMetricsPort)
}

// GetEnvRateLimit returns the inbound rate limit and burst from environment variables
func GetEnvRateLimit() (float64, int, error) {
	limit := DefaultRateLimit
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("invalid RATE_LIMIT value: %s, must be a positive number", v)
		}
		limit = parsed
	}

	burst := DefaultRateBurst
	if v := os.Getenv("RATE_BURST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("invalid RATE_BURST value: %s, must be a positive integer", v)
		}
		burst = parsed
	}
	return limit, burst, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL value: %w", err)
	}
	return level, nil
}

// GetEnvLogColoring returns whether log prefixes are colored
func GetEnvLogColoring() (bool, error) {
	return parseBool("LOG_COLORING", os.Getenv("LOG_COLORING"), false)
}

// GetEnvCircuitBreaker returns the circuit breaker configuration from environment variables
func GetEnvCircuitBreaker() (CircuitBreakerConfig, error) {
	enabled, err := parseBool("CIRCUIT_BREAKER_ENABLED", os.Getenv("CIRCUIT_BREAKER_ENABLED"), DefaultCircuitBreakerEnabled)
	if err != nil {
		return CircuitBreakerConfig{}, err
	}

	threshold := DefaultCircuitBreakerThreshold
	if v := os.Getenv("CIRCUIT_BREAKER_THRESHOLD"); v != "" {
		threshold, err = strconv.Atoi(v)
		if err != nil {
			return CircuitBreakerConfig{}, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", v)
		}
		if threshold <= 0 {
			return CircuitBreakerConfig{}, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
		}
	}

	window, err := parseDuration("CIRCUIT_BREAKER_WINDOW", os.Getenv("CIRCUIT_BREAKER_WINDOW"), DefaultCircuitBreakerWindow)
	if err != nil {
		return CircuitBreakerConfig{}, err
	}

	reset, err := parseDuration("CIRCUIT_BREAKER_RESET", os.Getenv("CIRCUIT_BREAKER_RESET"), DefaultCircuitBreakerReset)
	if err != nil {
		return CircuitBreakerConfig{}, err
	}

	return CircuitBreakerConfig{
		Enabled:        enabled,
		Threshold:      threshold,
		WindowDuration: window,
		ResetTimeout:   reset,
	}, nil
}

// GetEnvMaxGasPrice returns the maximum gas price from environment variables
func GetEnvMaxGasPrice() (*big.Int, error) {
	maxGasPrice := os.Getenv("MAX_GAS_PRICE")
	if maxGasPrice == "" {
		maxGasPrice = DefaultMaxGasPrice
	}

	maxGasPriceBig := new(big.Int)
	if _, ok := maxGasPriceBig.SetString(maxGasPrice, 10); !ok {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s, must be a valid integer string", maxGasPrice)
	}

	if maxGasPriceBig.Sign() < 0 {
		return nil, fmt.Errorf("MAX_GAS_PRICE must be greater than or equal to 0")
	}
	return maxGasPriceBig, nil
}

// GetEnvEVM returns the EVM section. Semantic checks (key and router address) are left
// to EVMConfig.Validate so that a bad section disables the chain instead of the process.
func GetEnvEVM() (EVMConfig, error) {
	enabled, err := parseBool("EVM_ENABLED", os.Getenv("EVM_ENABLED"), DefaultEVMEnabled)
	if err != nil {
		return EVMConfig{}, err
	}

	rpcURL, err := parseURL("RPC_URL", os.Getenv("RPC_URL"), DefaultRPCURL)
	if err != nil {
		return EVMConfig{}, err
	}

	chainID := DefaultChainID
	if v := os.Getenv("CHAIN_ID"); v != "" {
		chainID, err = strconv.Atoi(v)
		if err != nil || chainID <= 0 {
			return EVMConfig{}, fmt.Errorf("invalid CHAIN_ID value: %s, must be a positive integer", v)
		}
	}

	gasMultiplier := DefaultGasMultiplier
	if v := os.Getenv("GAS_MULTIPLIER"); v != "" {
		gasMultiplier, err = strconv.ParseFloat(v, 64)
		if err != nil || gasMultiplier <= 0 {
			return EVMConfig{}, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a positive number", v)
		}
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return EVMConfig{}, err
	}

	refresh, err := parseDuration("GAS_PRICE_REFRESH", os.Getenv("GAS_PRICE_REFRESH"), DefaultGasPriceRefresh)
	if err != nil {
		return EVMConfig{}, err
	}

	pollInterval, err := parseDuration("RECEIPT_POLL_INTERVAL", os.Getenv("RECEIPT_POLL_INTERVAL"), DefaultReceiptPollInterval)
	if err != nil {
		return EVMConfig{}, err
	}

	receiptTimeout, err := parseDuration("RECEIPT_TIMEOUT", os.Getenv("RECEIPT_TIMEOUT"), DefaultReceiptTimeout)
	if err != nil {
		return EVMConfig{}, err
	}

	return EVMConfig{
		Enabled:             enabled,
		ChainID:             chainID,
		RPCURL:              rpcURL,
		PrivateKey:          strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x"),
		RouterAddress:       os.Getenv("ROUTER_ADDRESS"),
		GasMultiplier:       gasMultiplier,
		MaxGasPrice:         maxGasPrice,
		GasPriceRefresh:     refresh,
		ReceiptPollInterval: pollInterval,
		ReceiptTimeout:      receiptTimeout,
	}, nil
}

// GetEnvSolana returns the Solana section from environment variables
func GetEnvSolana() (SolanaConfig, error) {
	enabled, err := parseBool("SOLANA_ENABLED", os.Getenv("SOLANA_ENABLED"), DefaultSolanaEnabled)
	if err != nil {
		return SolanaConfig{}, err
	}

	rpcURL, err := parseURL("SOLANA_RPC_URL", os.Getenv("SOLANA_RPC_URL"), DefaultSolanaRPCURL)
	if err != nil {
		return SolanaConfig{}, err
	}

	commitment := os.Getenv("SOLANA_COMMITMENT")
	switch commitment {
	case "":
		commitment = DefaultSolanaCommitment
	case "processed", "confirmed", "finalized":
	default:
		return SolanaConfig{}, fmt.Errorf("invalid SOLANA_COMMITMENT value: %s, must be processed, confirmed or finalized", commitment)
	}

	unitPrice := uint64(DefaultUnitPrice)
	if v := os.Getenv("UNIT_PRICE"); v != "" {
		unitPrice, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return SolanaConfig{}, fmt.Errorf("invalid UNIT_PRICE value: %s, must be a non-negative integer", v)
		}
	}

	unitLimit := uint64(DefaultUnitLimit)
	if v := os.Getenv("UNIT_LIMIT"); v != "" {
		unitLimit, err = strconv.ParseUint(v, 10, 32)
		if err != nil || unitLimit == 0 {
			return SolanaConfig{}, fmt.Errorf("invalid UNIT_LIMIT value: %s, must be a positive 32-bit integer", v)
		}
	}

	useJito, err := parseBool("USE_JITO", os.Getenv("USE_JITO"), DefaultUseJito)
	if err != nil {
		return SolanaConfig{}, err
	}

	blockEngineURL, err := parseURL("BLOCK_ENGINE_URL", os.Getenv("BLOCK_ENGINE_URL"), DefaultBlockEngineURL)
	if err != nil {
		return SolanaConfig{}, err
	}

	tipFloorURL, err := parseURL("JITO_TIP_FLOOR_URL", os.Getenv("JITO_TIP_FLOOR_URL"), DefaultTipFloorURL)
	if err != nil {
		return SolanaConfig{}, err
	}

	var tipValue *decimal.Decimal
	if v := os.Getenv("JITO_TIP_VALUE"); v != "" {
		parsed, err := decimal.NewFromString(v)
		if err != nil || parsed.Shift(chains.NativeDecimalsSolana).LessThan(decimal.NewFromInt(1)) {
			return SolanaConfig{}, fmt.Errorf("invalid JITO_TIP_VALUE value: %s, must be at least one lamport (0.000000001)", v)
		}
		tipValue = &parsed
	}

	tipPercentile := DefaultTipPercentile
	if v := os.Getenv("JITO_TIP_PERCENTILE"); v != "" {
		tipPercentile, err = strconv.Atoi(v)
		if err != nil || !validTipPercentiles[tipPercentile] {
			return SolanaConfig{}, fmt.Errorf("invalid JITO_TIP_PERCENTILE value: %s, must be one of 25, 50, 75, 95, 99", v)
		}
	}

	maxTipStr := os.Getenv("MAX_TIP")
	if maxTipStr == "" {
		maxTipStr = DefaultMaxTip
	}
	maxTip, err := decimal.NewFromString(maxTipStr)
	if err != nil || !maxTip.IsPositive() {
		return SolanaConfig{}, fmt.Errorf("invalid MAX_TIP value: %s, must be a positive decimal", maxTipStr)
	}

	pollInterval, err := parseDuration("POLL_INTERVAL", os.Getenv("POLL_INTERVAL"), DefaultPollInterval)
	if err != nil {
		return SolanaConfig{}, err
	}

	pollDeadline, err := parseDuration("POLL_DEADLINE", os.Getenv("POLL_DEADLINE"), DefaultPollDeadline)
	if err != nil {
		return SolanaConfig{}, err
	}

	jupiterURL, err := parseURL("JUPITER_BASE_URL", os.Getenv("JUPITER_BASE_URL"), DefaultJupiterBaseURL)
	if err != nil {
		return SolanaConfig{}, err
	}

	return SolanaConfig{
		Enabled:        enabled,
		RPCURL:         rpcURL,
		PrivateKey:     os.Getenv("SOLANA_PRIVATE_KEY"),
		Commitment:     commitment,
		UnitPrice:      unitPrice,
		UnitLimit:      uint32(unitLimit),
		UseRelay:       useJito,
		BlockEngineURL: strings.TrimRight(blockEngineURL, "/"),
		RelayAuthUUID:  os.Getenv("JITO_AUTH_UUID"),
		TipValue:       tipValue,
		TipFloorURL:    tipFloorURL,
		TipPercentile:  tipPercentile,
		MaxTip:         maxTip,
		PollInterval:   pollInterval,
		PollDeadline:   pollDeadline,
		JupiterBaseURL: strings.TrimRight(jupiterURL, "/"),
	}, nil
}
