package svm

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/dualexec/executor/pkg/chains"
	"github.com/dualexec/executor/pkg/fees"
	"github.com/dualexec/executor/pkg/jito"
	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
	"github.com/dualexec/executor/pkg/models"
	"github.com/dualexec/executor/pkg/poller"
)

// Relay is the bundle relay. Satisfied by *jito.Client.
type Relay interface {
	GetTipAccount(ctx context.Context) (solana.PublicKey, error)
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
	GetBundleStatuses(ctx context.Context, ids []string) ([]jito.BundleStatus, error)
}

// BundleSubmitter sends plans as a two transaction bundle: the trade, then the tip
type BundleSubmitter struct {
	relay       Relay
	tips        jito.TipSource
	blockhashes *BlockhashCache
	policy      fees.Policy
	pollOpts    poller.Options
	logger      logger.Logger
	now         func() time.Time
}

func NewBundleSubmitter(
	relay Relay,
	tips jito.TipSource,
	blockhashes *BlockhashCache,
	policy fees.Policy,
	pollOpts poller.Options,
	log logger.Logger,
) *BundleSubmitter {
	pollOpts.Chain = chains.Solana
	pollOpts.Kind = "bundle"
	return &BundleSubmitter{
		relay:       relay,
		tips:        tips,
		blockhashes: blockhashes,
		policy:      policy,
		pollOpts:    pollOpts,
		logger:      log,
		now:         time.Now,
	}
}

// Submit builds the trade and tip transactions on one blockhash, sends them as a bundle
// and polls the relay until the bundle lands. Not landing before the deadline is an
// error wrapping models.ErrPollTimeout.
func (s *BundleSubmitter) Submit(ctx context.Context, plan *Plan) (*models.SubmissionResult, error) {
	if err := plan.consume(); err != nil {
		return nil, err
	}
	start := s.now()

	tipAccount, err := s.relay.GetTipAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tip account: %w", err)
	}

	requested, err := s.tips.TipValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tip value: %w", err)
	}
	tip := s.policy.RelayTip(requested)
	lamports := fees.TipLamports(tip)
	if !tip.Equal(requested) {
		s.logger.InfoWithChain(chains.Solana, "Tip %s SOL capped to %s SOL", requested, tip)
	}
	if lamports == 0 {
		return nil, fmt.Errorf("relay tip %s SOL is below one lamport, refusing to send an unpaid bundle", tip)
	}
	metrics.RelayTipLamports.Observe(float64(lamports))

	blockhash, err := s.blockhashes.Get(ctx)
	if err != nil {
		return nil, &models.BroadcastError{Chain: chains.Solana, Err: fmt.Errorf("failed to get blockhash: %w", err)}
	}

	tradeTx, err := signTransaction(plan.Instructions, blockhash, plan.Signer)
	if err != nil {
		return nil, err
	}
	tipIx := system.NewTransferInstruction(lamports, plan.Signer.PublicKey(), tipAccount).Build()
	tipTx, err := signTransaction([]solana.Instruction{tipIx}, blockhash, plan.Signer)
	if err != nil {
		return nil, err
	}

	bundleID, err := s.relay.SendBundle(ctx, []*solana.Transaction{tradeTx, tipTx})
	if err != nil {
		return nil, &models.BroadcastError{Chain: chains.Solana, Err: err}
	}
	handle := &models.BundleHandle{ID: bundleID, SubmittedAt: s.now()}
	s.logger.NoticeWithChain(chains.Solana, "Bundle sent: %s (trade %s, tip %d lamports to %s)",
		bundleID, tradeTx.Signatures[0], lamports, tipAccount)

	fetch := func(ctx context.Context, id string) ([]jito.BundleStatus, error) {
		return s.relay.GetBundleStatuses(ctx, []string{id})
	}
	landed := func(statuses []jito.BundleStatus) bool {
		return len(statuses) > 0 && statuses[0].Landed()
	}

	statuses, err := poller.Poll(ctx, s.logger, s.pollOpts, bundleID, fetch, landed)
	if err != nil {
		return nil, err
	}

	status := models.StatusSuccess
	if statuses[0].Failed() {
		status = models.StatusReverted
	}

	ids := statuses[0].Transactions
	if len(ids) == 0 {
		ids = []string{tradeTx.Signatures[0].String(), tipTx.Signatures[0].String()}
	}
	txs := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		txs = append(txs, models.Transaction{ID: id, Status: status})
	}

	elapsed := s.now().Sub(start)
	s.logger.InfoWithChain(chains.Solana, "Bundle %s landed in slot %d (%s), tx elapsed: %s",
		bundleID, statuses[0].Slot, statuses[0].ConfirmationStatus, elapsed)

	return &models.SubmissionResult{
		Chain:        chains.Solana,
		Mode:         models.ModeRelay,
		Transactions: txs,
		Bundle:       handle,
		MinOutput:    plan.MinOutput,
		Elapsed:      elapsed,
	}, nil
}
