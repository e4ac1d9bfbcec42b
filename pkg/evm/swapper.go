// Package evm buys tokens with the native currency through a UniswapV2-style router
// and waits for the transaction receipt.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
	"github.com/dualexec/executor/pkg/models"
	"github.com/dualexec/executor/pkg/poller"
	"github.com/dualexec/executor/pkg/slippage"
)

// Router is the part of the router binding used by the swapper
type Router interface {
	WETH(opts *bind.CallOpts) (common.Address, error)
	GetAmountsOut(opts *bind.CallOpts, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	SwapExactETHForTokensSupportingFeeOnTransferTokens(opts *bind.TransactOpts, amountOutMin *big.Int, path []common.Address, to common.Address, deadline *big.Int) (*types.Transaction, error)
}

// GasPricer supplies the gas price of new transactions. A nil price lets the node decide.
type GasPricer interface {
	GasPrice() *big.Int
}

// SwapPlan is a fully parameterized swap. It is built once and submitted at most once.
type SwapPlan struct {
	Path      []common.Address
	AmountIn  *big.Int
	Quote     *models.PriceQuote
	MinOutput *big.Int
	Deadline  *big.Int
	Recipient common.Address

	consumed atomic.Bool
}

// UseRelay is always false: EVM trades are broadcast directly.
func (p *SwapPlan) UseRelay() bool { return false }

// Swapper plans and submits swaps for one chain and one signer
type Swapper struct {
	chain       string
	router      Router
	receipts    ReceiptFetcher
	auth        *bind.TransactOpts
	gas         GasPricer
	receiptOpts poller.Options
	logger      logger.Logger
	now         func() time.Time
}

// NewSwapper creates a swapper. auth is shared and only ever copied.
func NewSwapper(
	chainID int,
	router Router,
	receipts ReceiptFetcher,
	auth *bind.TransactOpts,
	gas GasPricer,
	receiptOpts poller.Options,
	log logger.Logger,
) *Swapper {
	label := chains.Label(chainID)
	receiptOpts.Chain = label
	receiptOpts.Kind = "receipt"

	return &Swapper{
		chain:       label,
		router:      router,
		receipts:    receipts,
		auth:        auth,
		gas:         gas,
		receiptOpts: receiptOpts,
		logger:      log,
		now:         time.Now,
	}
}

// Plan resolves the wrapped native asset, quotes the swap and derives the output
// bound and deadline. A failed quote is not fatal: the bound degrades to zero.
func (s *Swapper) Plan(ctx context.Context, intent *models.TradeIntent) (*SwapPlan, error) {
	if !common.IsHexAddress(intent.Target) {
		return nil, &models.ValidationError{Field: "target_token", Reason: fmt.Sprintf("%q is not an address", intent.Target)}
	}
	target := common.HexToAddress(intent.Target)

	amountIn, err := intent.AtomicAmount(chains.NativeDecimalsEVM)
	if err != nil {
		return nil, err
	}

	weth, err := s.router.WETH(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wrapped native asset: %w", err)
	}

	path := []common.Address{weth, target}

	plan := &SwapPlan{
		Path:      path,
		AmountIn:  amountIn,
		MinOutput: new(big.Int),
		Deadline:  big.NewInt(s.now().Add(intent.DeadlineOffset).Unix()),
		Recipient: s.auth.From,
	}

	amounts, err := s.router.GetAmountsOut(&bind.CallOpts{Context: ctx}, amountIn, path)
	switch {
	case err != nil:
		metrics.QuoteFallbacks.WithLabelValues(s.chain).Inc()
		s.logger.ErrorWithChain(s.chain, "Quote for %s failed, submitting without output bound: %v", target.Hex(), err)
	case len(amounts) < len(path):
		metrics.QuoteFallbacks.WithLabelValues(s.chain).Inc()
		s.logger.ErrorWithChain(s.chain, "Quote for %s returned %d amounts, submitting without output bound", target.Hex(), len(amounts))
	default:
		expected := amounts[len(amounts)-1]
		plan.Quote = &models.PriceQuote{InputAmount: amountIn, ExpectedOutput: expected}
		plan.MinOutput = slippage.MinOutput(expected, intent.Slippage)
		s.logger.DebugWithChain(s.chain, "Quote for %s: expected %s, min %s (slippage %.4f)",
			target.Hex(), expected, plan.MinOutput, intent.Slippage)
	}

	return plan, nil
}

// Submit broadcasts the swap and waits for its receipt. Reaching the receipt deadline
// is not an error: the transaction is reported as pending.
func (s *Swapper) Submit(ctx context.Context, plan *SwapPlan) (*models.SubmissionResult, error) {
	if plan.consumed.Swap(true) {
		return nil, models.ErrPlanConsumed
	}

	start := s.now()

	opts := *s.auth
	opts.Context = ctx
	opts.Value = plan.AmountIn
	if s.gas != nil {
		opts.GasPrice = s.gas.GasPrice()
	}

	tx, err := s.router.SwapExactETHForTokensSupportingFeeOnTransferTokens(
		&opts, plan.MinOutput, plan.Path, plan.Recipient, plan.Deadline)
	if err != nil {
		return nil, &models.BroadcastError{Chain: s.chain, Err: err}
	}

	s.logger.NoticeWithChain(s.chain, "Swap tx sent: %s (value %s, min out %s)",
		tx.Hash().Hex(), plan.AmountIn, plan.MinOutput)

	status, err := WaitForReceipt(ctx, s.logger, s.receipts, s.receiptOpts, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", tx.Hash().Hex(), err)
	}

	elapsed := s.now().Sub(start)
	s.logger.InfoWithChain(s.chain, "Swap %s %s, tx elapsed: %s", tx.Hash().Hex(), status, elapsed)

	return &models.SubmissionResult{
		Chain:        s.chain,
		Mode:         models.ModeDirect,
		Transactions: []models.Transaction{{ID: tx.Hash().Hex(), Status: status}},
		MinOutput:    plan.MinOutput,
		Elapsed:      elapsed,
	}, nil
}
