// Package jupiter sources Solana swap instructions from the Jupiter aggregator API.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/dualexec/executor/pkg/logger"
)

// Quote is a Jupiter route quote. The raw response is kept because it is echoed
// back verbatim when requesting swap instructions.
type Quote struct {
	InputMint            string  `json:"inputMint"`
	OutputMint           string  `json:"outputMint"`
	InAmount             string  `json:"inAmount"`
	OutAmount            string  `json:"outAmount"`
	OtherAmountThreshold string  `json:"otherAmountThreshold"`
	SlippageBps          int     `json:"slippageBps"`
	PriceImpactPct       string  `json:"priceImpactPct"`
	ContextSlot          uint64  `json:"contextSlot"`
	TimeTaken            float64 `json:"timeTaken"`

	raw json.RawMessage
}

// ExpectedOutput parses OutAmount
func (q *Quote) ExpectedOutput() (*big.Int, error) {
	out, ok := new(big.Int).SetString(q.OutAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid outAmount %q", q.OutAmount)
	}
	return out, nil
}

// WithMinOutput returns a copy whose otherAmountThreshold, the on-chain minimum
// output, is replaced by minOut.
func (q *Quote) WithMinOutput(minOut *big.Int) (*Quote, error) {
	src := q.raw
	if len(src) == 0 {
		var err error
		if src, err = json.Marshal(q); err != nil {
			return nil, err
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(src, &fields); err != nil {
		return nil, fmt.Errorf("decode raw quote: %w", err)
	}
	threshold, _ := json.Marshal(minOut.String())
	fields["otherAmountThreshold"] = threshold

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	patched := *q
	patched.OtherAmountThreshold = minOut.String()
	patched.raw = raw
	return &patched, nil
}

type accountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type instruction struct {
	ProgramID string        `json:"programId"`
	Accounts  []accountMeta `json:"accounts"`
	Data      string        `json:"data"`
}

type swapInstructionsResponse struct {
	ComputeBudgetInstructions   []instruction `json:"computeBudgetInstructions"`
	SetupInstructions           []instruction `json:"setupInstructions"`
	SwapInstruction             *instruction  `json:"swapInstruction"`
	CleanupInstruction          *instruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string      `json:"addressLookupTableAddresses"`
	Error                       string        `json:"error"`
}

// Client is a Jupiter API client
type Client struct {
	base       string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a client for the API at base, e.g. https://quote-api.jup.ag
func NewClient(base string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &Client{base: base, httpClient: httpClient, logger: log}
}

// GetQuote quotes a swap of amount base units of inputMint into outputMint. Routes are
// restricted to ones expressible as a legacy transaction.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(int(slippageBps)))
	q.Set("asLegacyTransaction", "true")

	body, err := c.do(ctx, http.MethodGet, c.base+"/v6/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}

	var out Quote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	if out.OutAmount == "" {
		return nil, fmt.Errorf("jupiter quote: no route from %s to %s", inputMint, outputMint)
	}
	out.raw = body
	return &out, nil
}

// SwapInstructions returns the setup, swap and cleanup instructions executing quote for
// user. Compute budget instructions suggested by Jupiter are dropped; the caller's
// fee policy decides those.
func (c *Client) SwapInstructions(ctx context.Context, quote *Quote, user solana.PublicKey) ([]solana.Instruction, error) {
	payload, err := json.Marshal(map[string]any{
		"quoteResponse":       quote.raw,
		"userPublicKey":       user.String(),
		"wrapAndUnwrapSol":    true,
		"asLegacyTransaction": true,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodPost, c.base+"/v6/swap-instructions", payload)
	if err != nil {
		return nil, fmt.Errorf("jupiter swap-instructions: %w", err)
	}

	var resp swapInstructionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("jupiter swap-instructions: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("jupiter swap-instructions: %s", resp.Error)
	}
	if resp.SwapInstruction == nil {
		return nil, fmt.Errorf("jupiter swap-instructions: response has no swap instruction")
	}
	if len(resp.AddressLookupTableAddresses) > 0 {
		return nil, fmt.Errorf("jupiter swap-instructions: route needs %d lookup tables", len(resp.AddressLookupTableAddresses))
	}

	raw := append([]instruction{}, resp.SetupInstructions...)
	raw = append(raw, *resp.SwapInstruction)
	if resp.CleanupInstruction != nil {
		raw = append(raw, *resp.CleanupInstruction)
	}

	instructions := make([]solana.Instruction, 0, len(raw))
	for i, ix := range raw {
		decoded, err := ix.decode()
		if err != nil {
			return nil, fmt.Errorf("jupiter swap-instructions: instruction %d: %w", i, err)
		}
		instructions = append(instructions, decoded)
	}
	return instructions, nil
}

func (ix instruction) decode() (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(ix.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}

	accounts := make(solana.AccountMetaSlice, 0, len(ix.Accounts))
	for _, a := range ix.Accounts {
		pk, err := solana.PublicKeyFromBase58(a.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Pubkey, err)
		}
		accounts = append(accounts, solana.NewAccountMeta(pk, a.IsWritable, a.IsSigner))
	}

	data, err := base64.StdEncoding.DecodeString(ix.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}

	return solana.NewInstruction(programID, accounts, data), nil
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
