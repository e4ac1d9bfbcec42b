package svm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// DefaultBlockhashTTL is how long a fetched blockhash is reused
	DefaultBlockhashTTL = 2 * time.Second

	// a blockhash stays valid for ~150 blocks, about a minute
	maxStaleBlockhash = 30 * time.Second
)

// RPC is the part of the Solana RPC client used by the submitters. Satisfied by *rpc.Client.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var errEmptyBlockhash = errors.New("node returned no blockhash")

type cachedBlockhash struct {
	hash      solana.Hash
	fetchedAt time.Time
}

// BlockhashCache hands out a recent blockhash, refreshing it from the node after ttl.
type BlockhashCache struct {
	rpc        RPC
	commitment rpc.CommitmentType
	ttl        time.Duration

	mu      sync.RWMutex
	current *cachedBlockhash
	now     func() time.Time
}

func NewBlockhashCache(client RPC, commitment rpc.CommitmentType, ttl time.Duration) *BlockhashCache {
	if ttl <= 0 {
		ttl = DefaultBlockhashTTL
	}
	return &BlockhashCache{
		rpc:        client,
		commitment: commitment,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached blockhash while fresh, else fetches a new one. If the fetch fails,
// a cached blockhash that is not yet stale is returned instead.
func (c *BlockhashCache) Get(ctx context.Context) (solana.Hash, error) {
	c.mu.RLock()
	cached := c.current
	c.mu.RUnlock()

	if cached != nil && c.now().Sub(cached.fetchedAt) < c.ttl {
		return cached.hash, nil
	}

	res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err == nil && (res == nil || res.Value == nil) {
		err = errEmptyBlockhash
	}
	if err != nil {
		if cached != nil && c.now().Sub(cached.fetchedAt) < maxStaleBlockhash {
			return cached.hash, nil
		}
		return solana.Hash{}, err
	}

	c.mu.Lock()
	c.current = &cachedBlockhash{hash: res.Value.Blockhash, fetchedAt: c.now()}
	c.mu.Unlock()

	return res.Value.Blockhash, nil
}
