// Package jito talks to a Jito block engine: tip accounts, bundle submission and
// bundle status lookups over JSON-RPC, plus the public tip floor feed.
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/patrickmn/go-cache"
	"github.com/ybbus/jsonrpc/v3"

	"github.com/dualexec/executor/pkg/logger"
)

const (
	bundlesPath = "/api/v1/bundles"

	tipAccountsKey = "tip_accounts"
	tipAccountsTTL = 10 * time.Minute
)

// Bundle confirmation levels reported by getBundleStatuses
const (
	StatusProcessed = "processed"
	StatusConfirmed = "confirmed"
	StatusFinalized = "finalized"
)

// BundleStatus is one entry of a getBundleStatuses response
type BundleStatus struct {
	BundleID           string          `json:"bundle_id"`
	Transactions       []string        `json:"transactions"`
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                json.RawMessage `json:"err"`
}

// Landed reports whether the bundle reached at least confirmed commitment
func (s BundleStatus) Landed() bool {
	return s.ConfirmationStatus == StatusConfirmed || s.ConfirmationStatus == StatusFinalized
}

// Failed reports whether the bundle landed with an execution error
func (s BundleStatus) Failed() bool {
	if len(s.Err) == 0 || string(s.Err) == "null" {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.Err, &fields); err != nil {
		return true
	}
	_, ok := fields["Ok"]
	return !ok
}

type bundleStatusesResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value []*BundleStatus `json:"value"`
}

// Client is a block engine JSON-RPC client. Safe for concurrent use.
type Client struct {
	rpc         jsonrpc.RPCClient
	tipAccounts *cache.Cache
	logger      logger.Logger
}

// NewClient creates a client for the block engine at baseURL. authUUID is optional.
func NewClient(baseURL, authUUID string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = createHTTPClient()
	}

	opts := &jsonrpc.RPCClientOpts{HTTPClient: httpClient}
	if authUUID != "" {
		opts.CustomHeaders = map[string]string{"x-jito-auth": authUUID}
	}

	return &Client{
		rpc:         jsonrpc.NewClientWithOpts(baseURL+bundlesPath, opts),
		tipAccounts: cache.New(tipAccountsTTL, 2*tipAccountsTTL),
		logger:      log,
	}
}

// GetTipAccounts returns the block engine's tip accounts, cached for ten minutes
func (c *Client) GetTipAccounts(ctx context.Context) ([]solana.PublicKey, error) {
	if cached, ok := c.tipAccounts.Get(tipAccountsKey); ok {
		return cached.([]solana.PublicKey), nil
	}

	var raw []string
	if err := c.rpc.CallFor(ctx, &raw, "getTipAccounts"); err != nil {
		return nil, fmt.Errorf("getTipAccounts: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("getTipAccounts: block engine returned no accounts")
	}

	accounts := make([]solana.PublicKey, 0, len(raw))
	for _, s := range raw {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("getTipAccounts: invalid account %q: %w", s, err)
		}
		accounts = append(accounts, pk)
	}

	c.tipAccounts.SetDefault(tipAccountsKey, accounts)
	return accounts, nil
}

// GetTipAccount picks one tip account at random to spread write locks
func (c *Client) GetTipAccount(ctx context.Context) (solana.PublicKey, error) {
	accounts, err := c.GetTipAccounts(ctx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return accounts[rand.Intn(len(accounts))], nil
}

// SendBundle submits signed transactions as one atomic bundle and returns its id
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	encoded := make([]string, 0, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("encode bundle transaction %d: %w", i, err)
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(raw))
	}

	res, err := c.rpc.Call(ctx, "sendBundle", encoded, map[string]string{"encoding": "base64"})
	if err != nil {
		return "", err
	}
	if res.Error != nil {
		return "", res.Error
	}

	bundleID, err := res.GetString()
	if err != nil {
		return "", fmt.Errorf("sendBundle: unexpected result: %w", err)
	}
	return bundleID, nil
}

// GetBundleStatuses returns the known statuses for the given bundle ids. Unknown
// bundles are omitted, so an empty result means "not landed yet".
func (c *Client) GetBundleStatuses(ctx context.Context, ids []string) ([]BundleStatus, error) {
	var result bundleStatusesResult
	if err := c.rpc.CallFor(ctx, &result, "getBundleStatuses", [][]string{ids}); err != nil {
		return nil, fmt.Errorf("getBundleStatuses: %w", err)
	}

	statuses := make([]BundleStatus, 0, len(result.Value))
	for _, s := range result.Value {
		if s != nil {
			statuses = append(statuses, *s)
		}
	}
	return statuses, nil
}

func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
