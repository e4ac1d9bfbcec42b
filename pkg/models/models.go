package models

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dualexec/executor/pkg/slippage"
)

// TxStatus is the outcome reported for a submitted transaction
type TxStatus string

const (
	// StatusSuccess means the transaction was included and executed successfully
	StatusSuccess TxStatus = "success"
	// StatusReverted means the transaction was included but failed
	StatusReverted TxStatus = "reverted"
	// StatusPending means the transaction was broadcast but inclusion was not observed in time
	StatusPending TxStatus = "pending"
)

// Submission modes
const (
	ModeDirect = "direct"
	ModeRelay  = "relay"
)

// MaxDeadlineOffset bounds how far in the future a trade deadline may be set
const MaxDeadlineOffset = 24 * time.Hour

// TradeIntent is one already-decided purchase of a target asset with native currency
type TradeIntent struct {
	Target         string
	InputAmount    decimal.Decimal
	Slippage       float64
	DeadlineOffset time.Duration
}

// NewTradeIntent validates raw inbound values. The slippage is clamped, never rejected,
// unless it is not a number at all.
func NewTradeIntent(target, amount string, slippageTolerance float64, deadlineSecs uint64) (*TradeIntent, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, &ValidationError{Field: "target_token", Reason: "is required"}
	}

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, &ValidationError{Field: "amount_in", Reason: fmt.Sprintf("%q is not a decimal number", amount)}
	}
	if !value.IsPositive() {
		return nil, &ValidationError{Field: "amount_in", Reason: "must be greater than zero"}
	}

	if math.IsNaN(slippageTolerance) || math.IsInf(slippageTolerance, 0) {
		return nil, &ValidationError{Field: "slippage", Reason: "must be a finite number"}
	}

	if deadlineSecs > uint64(MaxDeadlineOffset/time.Second) {
		return nil, &ValidationError{
			Field:  "deadline_secs",
			Reason: fmt.Sprintf("must not exceed %d seconds", uint64(MaxDeadlineOffset/time.Second)),
		}
	}

	return &TradeIntent{
		Target:         target,
		InputAmount:    value,
		Slippage:       slippage.Clamp(slippageTolerance),
		DeadlineOffset: time.Duration(deadlineSecs) * time.Second,
	}, nil
}

// AtomicAmount converts the input amount into integer base units of an asset with the
// given number of decimals. Amounts finer than one base unit are rejected.
func (t *TradeIntent) AtomicAmount(decimals int32) (*big.Int, error) {
	shifted := t.InputAmount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, &ValidationError{
			Field:  "amount_in",
			Reason: fmt.Sprintf("%s has more than %d decimal places", t.InputAmount, decimals),
		}
	}
	return shifted.BigInt(), nil
}

// PriceQuote is an advisory expected output for a given input
type PriceQuote struct {
	InputAmount    *big.Int
	ExpectedOutput *big.Int
}

// Transaction identifies one submitted transaction and its observed outcome
type Transaction struct {
	ID     string   `json:"tx_hash"`
	Status TxStatus `json:"status"`
}

// BundleHandle is the relay-assigned id of a submitted bundle
type BundleHandle struct {
	ID          string    `json:"bundle_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionResult is what a submission reports back to the caller
type SubmissionResult struct {
	Chain        string
	Mode         string
	Transactions []Transaction
	Bundle       *BundleHandle
	MinOutput    *big.Int
	Elapsed      time.Duration
}

// Primary returns the trade transaction, which is always the first one.
func (r *SubmissionResult) Primary() Transaction {
	if r == nil || len(r.Transactions) == 0 {
		return Transaction{}
	}
	return r.Transactions[0]
}
