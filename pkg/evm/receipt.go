package evm

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/models"
	"github.com/dualexec/executor/pkg/poller"
)

// ReceiptFetcher looks up transaction receipts. Satisfied by *ethclient.Client.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WaitForReceipt polls until the transaction's receipt appears. ethereum.NotFound keeps
// the wait going, any other lookup error ends it. At the deadline the transaction is
// reported as pending.
func WaitForReceipt(
	ctx context.Context,
	log logger.Logger,
	fetcher ReceiptFetcher,
	opts poller.Options,
	hash common.Hash,
) (models.TxStatus, error) {
	fetch := func(ctx context.Context, h common.Hash) ([]*types.Receipt, error) {
		receipt, err := fetcher.TransactionReceipt(ctx, h)
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, poller.Permanent(err)
		}
		return []*types.Receipt{receipt}, nil
	}
	found := func(receipts []*types.Receipt) bool {
		return len(receipts) > 0 && receipts[0] != nil
	}

	receipts, err := poller.Poll(ctx, log, opts, hash, fetch, found)
	if errors.Is(err, poller.ErrTimeout) {
		log.NoticeWithChain(opts.Chain, "Transaction pending (no receipt yet): %s", hash.Hex())
		return models.StatusPending, nil
	}
	if err != nil {
		return "", err
	}

	if receipts[0].Status == types.ReceiptStatusSuccessful {
		return models.StatusSuccess, nil
	}
	return models.StatusReverted, nil
}
