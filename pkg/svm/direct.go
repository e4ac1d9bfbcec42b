package svm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
	"github.com/dualexec/executor/pkg/poller"
)

// DirectSubmitter broadcasts plans through the RPC node with a compute-unit price
type DirectSubmitter struct {
	rpc         RPC
	blockhashes *BlockhashCache
	commitment  rpc.CommitmentType
	pollOpts    poller.Options
	logger      logger.Logger
	now         func() time.Time
}

// NewDirectSubmitter creates a direct submitter. The signature wait uses pollOpts.
func NewDirectSubmitter(client RPC, blockhashes *BlockhashCache, commitment rpc.CommitmentType, pollOpts poller.Options, log logger.Logger) *DirectSubmitter {
	pollOpts.Chain = chains.Solana
	pollOpts.Kind = "signature"
	return &DirectSubmitter{
		rpc:         client,
		blockhashes: blockhashes,
		commitment:  commitment,
		pollOpts:    pollOpts,
		logger:      log,
		now:         time.Now,
	}
}

// Submit prepends the compute budget instructions, broadcasts the trade and waits for the
// signature to reach the configured commitment. Reaching the deadline reports pending.
func (s *DirectSubmitter) Submit(ctx context.Context, plan *Plan) (*models.SubmissionResult, error) {
	if err := plan.consume(); err != nil {
		return nil, err
	}
	start := s.now()

	instructions := make([]solana.Instruction, 0, len(plan.Instructions)+2)
	instructions = append(instructions,
		computebudget.NewSetComputeUnitPriceInstruction(plan.UnitPrice).Build(),
		computebudget.NewSetComputeUnitLimitInstruction(plan.UnitLimit).Build(),
	)
	instructions = append(instructions, plan.Instructions...)

	blockhash, err := s.blockhashes.Get(ctx)
	if err != nil {
		return nil, &models.BroadcastError{Chain: chains.Solana, Err: fmt.Errorf("failed to get blockhash: %w", err)}
	}

	tx, err := signTransaction(instructions, blockhash, plan.Signer)
	if err != nil {
		return nil, err
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return nil, &models.BroadcastError{Chain: chains.Solana, Err: err}
	}
	s.logger.NoticeWithChain(chains.Solana, "Swap tx sent: %s (unit price %d, limit %d, min out %s)",
		sig, plan.UnitPrice, plan.UnitLimit, plan.MinOutput)

	status, err := WaitForSignature(ctx, s.logger, s.rpc, s.pollOpts, sig, s.commitment)
	if err != nil {
		return nil, fmt.Errorf("waiting for signature %s: %w", sig, err)
	}

	elapsed := s.now().Sub(start)
	s.logger.InfoWithChain(chains.Solana, "Swap %s %s, tx elapsed: %s", sig, status, elapsed)

	return &models.SubmissionResult{
		Chain:        chains.Solana,
		Mode:         models.ModeDirect,
		Transactions: []models.Transaction{{ID: sig.String(), Status: status}},
		MinOutput:    plan.MinOutput,
		Elapsed:      elapsed,
	}, nil
}

func commitmentRank(status string) int {
	switch status {
	case string(rpc.ConfirmationStatusProcessed):
		return 1
	case string(rpc.ConfirmationStatusConfirmed):
		return 2
	case string(rpc.ConfirmationStatusFinalized):
		return 3
	}
	return 0
}

// WaitForSignature polls the signature status until the transaction failed or reached
// commitment. Fetch errors are transient. At the deadline the transaction is pending.
func WaitForSignature(
	ctx context.Context,
	log logger.Logger,
	client RPC,
	opts poller.Options,
	sig solana.Signature,
	commitment rpc.CommitmentType,
) (models.TxStatus, error) {
	want := commitmentRank(string(commitment))
	if want == 0 {
		want = commitmentRank(string(rpc.ConfirmationStatusConfirmed))
	}

	fetch := func(ctx context.Context, sig solana.Signature) ([]*rpc.SignatureStatusesResult, error) {
		res, err := client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return nil, err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return nil, nil
		}
		return res.Value, nil
	}
	done := func(statuses []*rpc.SignatureStatusesResult) bool {
		if len(statuses) == 0 || statuses[0] == nil {
			return false
		}
		st := statuses[0]
		return st.Err != nil || commitmentRank(string(st.ConfirmationStatus)) >= want
	}

	statuses, err := poller.Poll(ctx, log, opts, sig, fetch, done)
	if errors.Is(err, poller.ErrTimeout) {
		log.NoticeWithChain(opts.Chain, "Transaction pending (not %s yet): %s", commitment, sig)
		return models.StatusPending, nil
	}
	if err != nil {
		return "", err
	}

	if statuses[0].Err != nil {
		log.ErrorWithChain(opts.Chain, "Transaction %s failed: %v", sig, statuses[0].Err)
		return models.StatusReverted, nil
	}
	return models.StatusSuccess, nil
}
