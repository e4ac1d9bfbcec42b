// Package svm buys SPL tokens with SOL, either broadcasting directly with a priority fee
// or as a Jito bundle carrying a tip.
package svm

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/fees"
	"github.com/dualexec/executor/pkg/jupiter"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
	"github.com/dualexec/executor/pkg/slippage"
)

// QuoteSource prices a swap and returns the instructions executing it. Satisfied by
// *jupiter.Client.
type QuoteSource interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*jupiter.Quote, error)
	SwapInstructions(ctx context.Context, quote *jupiter.Quote, user solana.PublicKey) ([]solana.Instruction, error)
}

// Plan is a fully built Solana trade. It is submitted at most once.
type Plan struct {
	// Instructions of the trade, without any compute budget instructions
	Instructions []solana.Instruction
	Signer       solana.PrivateKey
	Quote        *models.PriceQuote
	MinOutput    *big.Int
	UnitPrice    uint64
	UnitLimit    uint32
	Relay        bool

	consumed atomic.Bool
}

// UseRelay reports whether the plan goes out as a bundle
func (p *Plan) UseRelay() bool { return p.Relay }

func (p *Plan) consume() error {
	if p.consumed.Swap(true) {
		return models.ErrPlanConsumed
	}
	return nil
}

// Builder turns trade intents into plans for one signer
type Builder struct {
	quotes   QuoteSource
	signer   solana.PrivateKey
	policy   fees.Policy
	useRelay bool
	logger   logger.Logger
}

// NewBuilder creates a builder. The signer is referenced by every plan, never copied.
func NewBuilder(quotes QuoteSource, signer solana.PrivateKey, policy fees.Policy, useRelay bool, log logger.Logger) *Builder {
	return &Builder{
		quotes:   quotes,
		signer:   signer,
		policy:   policy,
		useRelay: useRelay,
		logger:   log,
	}
}

// Plan quotes a SOL to target swap and fetches its instructions with the minimum output
// derived from the quote. Without a quote there are no instructions, so a failed quote
// is a *models.QuoteError.
func (b *Builder) Plan(ctx context.Context, intent *models.TradeIntent) (*Plan, error) {
	target, err := solana.PublicKeyFromBase58(intent.Target)
	if err != nil {
		return nil, &models.ValidationError{Field: "target_token", Reason: fmt.Sprintf("%q is not a base58 mint address", intent.Target)}
	}

	amountIn, err := intent.AtomicAmount(chains.NativeDecimalsSolana)
	if err != nil {
		return nil, err
	}
	if !amountIn.IsUint64() {
		return nil, &models.ValidationError{Field: "amount_in", Reason: "exceeds the lamport range"}
	}

	quote, err := b.quotes.GetQuote(ctx, chains.WrappedSOLMint, target.String(), amountIn.Uint64(), slippage.ToBps(intent.Slippage))
	if err != nil {
		return nil, &models.QuoteError{Err: err}
	}
	expected, err := quote.ExpectedOutput()
	if err != nil {
		return nil, &models.QuoteError{Err: err}
	}

	minOut := slippage.MinOutput(expected, intent.Slippage)
	bounded, err := quote.WithMinOutput(minOut)
	if err != nil {
		return nil, &models.QuoteError{Err: err}
	}

	instructions, err := b.quotes.SwapInstructions(ctx, bounded, b.signer.PublicKey())
	if err != nil {
		return nil, &models.QuoteError{Err: err}
	}

	b.logger.DebugWithChain(chains.Solana, "Quote for %s: expected %s, min %s (slippage %.4f), %d instructions",
		target, expected, minOut, intent.Slippage, len(instructions))

	unitPrice, unitLimit := b.policy.PriorityFee()
	return &Plan{
		Instructions: instructions,
		Signer:       b.signer,
		Quote:        &models.PriceQuote{InputAmount: amountIn, ExpectedOutput: expected},
		MinOutput:    minOut,
		UnitPrice:    unitPrice,
		UnitLimit:    unitLimit,
		Relay:        b.useRelay,
	}, nil
}

// signTransaction builds and signs a transaction paid for by signer
func signTransaction(instructions []solana.Instruction, blockhash solana.Hash, signer solana.PrivateKey) (*solana.Transaction, error) {
	payer := signer.PublicKey()
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
