package chains

import "fmt"

// Solana is the label used for the Solana cluster, which has no numeric chain id.
const Solana = "sol"

const (
	// NativeDecimalsEVM is the number of decimals of the native asset on EVM chains (wei)
	NativeDecimalsEVM = 18

	// NativeDecimalsSolana is the number of decimals of SOL (lamports)
	NativeDecimalsSolana = 9

	// WrappedSOLMint is the mint of wrapped SOL, the input asset of Solana buys
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// ChainList contains the list of known EVM chain IDs
var ChainList = []int{
	1,     // Ethereum
	56,    // Binance Smart Chain
	97,    // Binance Smart Chain testnet
	137,   // Polygon
	8453,  // Base
	42161, // Arbitrum
}

// chainLabels maps chain IDs to the short labels used in logs and metric labels
var chainLabels = map[int]string{
	1:     "eth",
	56:    "bsc",
	97:    "bsc-testnet",
	137:   "pol",
	8453:  "base",
	42161: "arb",
}

// chainNames maps chain IDs to their display names
var chainNames = map[int]string{
	1:     "ETHEREUM",
	56:    "BSC",
	97:    "BSC_TESTNET",
	137:   "POLYGON",
	8453:  "BASE",
	42161: "ARBITRUM",
}

// DefaultRouters are well-known V2-style routers; ROUTER_ADDRESS overrides them
var DefaultRouters = map[int]string{
	1:  "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", // Uniswap V2
	56: "0x10ED43C718714eb63d5aA57B78B54704E256024E", // PancakeSwap V2
	97: "0xD99D1c33F9fC3444f8101754aBC46c52416550D1", // PancakeSwap V2 testnet
}

// GetChainName returns the name of the chain for a given chain ID
func GetChainName(chainID int) string {
	name, exists := chainNames[chainID]
	if !exists {
		return ""
	}
	return name
}

// Label returns the log/metric label for an EVM chain ID
func Label(chainID int) string {
	if label, ok := chainLabels[chainID]; ok {
		return label
	}
	return fmt.Sprintf("chain-%d", chainID)
}
