package executor

import (
	"context"
	"strings"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
)

// DefaultDeadlineSecs applies when a request leaves deadline_secs out
const DefaultDeadlineSecs = 60

// BuyRequest is the inbound buy order. BuyAmountBNB is the field name older orchestrators
// send the input amount under; AmountIn wins when both are set.
type BuyRequest struct {
	TargetToken  string  `json:"target_token"`
	AmountIn     string  `json:"amount_in"`
	BuyAmountBNB string  `json:"buy_amount_bnb"`
	Slippage     float64 `json:"slippage"`
	DeadlineSecs uint64  `json:"deadline_secs"`
}

// Amount returns the input amount, falling back to buy_amount_bnb
func (r BuyRequest) Amount() string {
	if strings.TrimSpace(r.AmountIn) != "" {
		return r.AmountIn
	}
	return r.BuyAmountBNB
}

// Service routes buy requests to the executor of the requested chain
type Service struct {
	evm    Executor
	solana Executor
	logger logger.Logger
}

// NewService creates the service. A nil executor means the chain is not enabled.
func NewService(evm, solana Executor, log logger.Logger) *Service {
	if evm == nil {
		evm = Disabled("evm", &models.ConfigError{Field: "EVM_ENABLED", Reason: "EVM trading is not enabled"})
	}
	if solana == nil {
		solana = Disabled("sol", &models.ConfigError{Field: "SOLANA_ENABLED", Reason: "Solana trading is not enabled"})
	}
	return &Service{evm: evm, solana: solana, logger: log}
}

// EVMChain is the label of the EVM executor
func (s *Service) EVMChain() string { return s.evm.Chain() }

// SolanaChain is the label of the Solana executor
func (s *Service) SolanaChain() string { return s.solana.Chain() }

// BuyEVM buys an ERC20 token with the native currency of the configured EVM chain
func (s *Service) BuyEVM(ctx context.Context, req BuyRequest) (*models.SubmissionResult, error) {
	return s.buy(ctx, s.evm, req)
}

// BuySolana buys an SPL token with SOL
func (s *Service) BuySolana(ctx context.Context, req BuyRequest) (*models.SubmissionResult, error) {
	return s.buy(ctx, s.solana, req)
}

func (s *Service) buy(ctx context.Context, exec Executor, req BuyRequest) (*models.SubmissionResult, error) {
	deadline := req.DeadlineSecs
	if deadline == 0 {
		deadline = DefaultDeadlineSecs
	}

	intent, err := models.NewTradeIntent(req.TargetToken, req.Amount(), req.Slippage, deadline)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithChain(exec.Chain(), "Buy %s with %s (slippage %.4f, deadline %s)",
		intent.Target, intent.InputAmount, intent.Slippage, intent.DeadlineOffset)

	return exec.Execute(ctx, intent)
}
