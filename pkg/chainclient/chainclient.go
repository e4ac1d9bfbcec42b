package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/config"
	"github.com/dualexec/executor/pkg/contracts"
	"github.com/dualexec/executor/pkg/fees"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
	"github.com/dualexec/executor/pkg/models"
)

// GasPriceSuggester is the part of a node client used to price transactions
type GasPriceSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Client contains the node connection, router binding and signer of the EVM chain
type Client struct {
	ChainID       int
	Label         string
	RPCURL        string
	RouterAddress common.Address
	Client        *ethclient.Client
	Router        *contracts.Router

	// Auth is shared by every trade and never mutated after construction
	Auth *bind.TransactOpts

	policy    fees.Policy
	gasOracle GasPriceSuggester
	logger    logger.Logger

	mu              sync.RWMutex
	currentGasPrice *big.Int
}

// New dials the node, checks it serves the configured chain and binds the router
func New(ctx context.Context, cfg config.EVMConfig, policy fees.Policy, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := newClient(cfg.ChainID, policy, nil, log)
	client.RPCURL = cfg.RPCURL
	client.RouterAddress = common.HexToAddress(cfg.RouterAddress)

	if err := client.connect(ctx, cfg.PrivateKey); err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %w", cfg.ChainID, err)
	}

	return client, nil
}

func newClient(chainID int, policy fees.Policy, oracle GasPriceSuggester, log logger.Logger) *Client {
	return &Client{
		ChainID:   chainID,
		Label:     chains.Label(chainID),
		policy:    policy,
		gasOracle: oracle,
		logger:    log,
	}
}

// UpdateGasPrice refreshes the gas price from the node, applying the fee policy
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	if c.gasOracle == nil {
		return nil, fmt.Errorf("client not connected")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	suggested, err := c.gasOracle.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	finalGasPrice := c.policy.GasPrice(suggested)

	c.mu.Lock()
	c.currentGasPrice = finalGasPrice
	c.mu.Unlock()

	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(finalGasPrice), big.NewFloat(1e9)).Float64()
	metrics.GasPrice.WithLabelValues(c.Label).Set(gwei)

	return finalGasPrice, nil
}

// GasPrice returns the last refreshed gas price, or nil to let the node price the call
func (c *Client) GasPrice() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentGasPrice == nil {
		return nil
	}
	return new(big.Int).Set(c.currentGasPrice)
}

// GetLatestBlockNumber gets the latest block number from the chain
func (c *Client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	if c.Client == nil {
		return 0, fmt.Errorf("client not connected")
	}

	return c.Client.BlockNumber(ctx)
}

// Connected reports whether the node connection is established
func (c *Client) Connected() bool {
	return c.Client != nil
}

// connect establishes connections to blockchain RPC and initializes contract instances
func (c *Client) connect(ctx context.Context, privateKey string) error {
	client, err := ethclient.Dial(c.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to client: %w", err)
	}

	nodeChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if nodeChainID.Int64() != int64(c.ChainID) {
		client.Close()
		return &models.ConfigError{
			Field:  "CHAIN_ID",
			Reason: fmt.Sprintf("configured %d but node at %s serves %s", c.ChainID, c.RPCURL, nodeChainID),
		}
	}

	auth, err := createAuthenticator(privateKey, nodeChainID)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	router, err := contracts.NewRouter(c.RouterAddress, client)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to initialize router contract: %w", err)
	}

	c.Client = client
	c.gasOracle = client
	c.Auth = auth
	c.Router = router
	return nil
}

// Helper function to create authenticator
func createAuthenticator(privateKeyHex string, chainID *big.Int) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	return auth, nil
}

// Chain returns the chain label used in logs, metrics and the status endpoint
func (c *Client) Chain() string {
	return c.Label
}

// Status reports the connection details of the chain for the status endpoint
func (c *Client) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"chain_id":       c.ChainID,
		"name":           chains.GetChainName(c.ChainID),
		"rpc_url":        c.RPCURL,
		"router_address": c.RouterAddress.Hex(),
		"connected":      c.Connected(),
	}
	if c.Auth != nil {
		status["signer"] = c.Auth.From.Hex()
	}
	if gasPrice := c.GasPrice(); gasPrice != nil {
		status["gas_price"] = gasPrice.String()
	}
	if c.Connected() {
		if blockNumber, err := c.GetLatestBlockNumber(ctx); err == nil {
			status["latest_block"] = blockNumber
		}
	}
	return status
}
