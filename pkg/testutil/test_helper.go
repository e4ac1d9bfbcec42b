package testutil

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	DefaultTestTimeout = 5 * time.Second

	// SimulatedChainID is the chain id used by the simulated backend
	SimulatedChainID = 1337
)

// SetupSimulation creates a simulated chain with one funded account
func SetupSimulation(t *testing.T) (*simulated.Backend, *bind.TransactOpts, common.Address) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err, "Failed to generate private key")

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(SimulatedChainID))
	require.NoError(t, err, "Failed to create transactor")

	balance := CreateBigInt("10000000000000000000") // 10 ETH
	address := auth.From
	//nolint:SA1019 // Using deprecated GenesisAccount for compatibility
	genesisAlloc := map[common.Address]core.GenesisAccount{
		address: {
			Balance: balance,
		},
	}

	sim := simulated.NewBackend(genesisAlloc)
	t.Cleanup(func() { _ = sim.Close() })

	return sim, auth, address
}

// SendTransfer signs and sends a plain value transfer without mining it
func SendTransfer(t *testing.T, ctx context.Context, client simulated.Client, auth *bind.TransactOpts, to common.Address, value *big.Int) *types.Transaction {
	nonce, err := client.PendingNonceAt(ctx, auth.From)
	require.NoError(t, err)

	gasPrice, err := client.SuggestGasPrice(ctx)
	require.NoError(t, err)

	tx := types.NewTransaction(nonce, to, value, 21_000, gasPrice, nil)
	signed, err := auth.Signer(auth.From, tx)
	require.NoError(t, err)

	require.NoError(t, client.SendTransaction(ctx, signed))
	return signed
}

// GenerateAddress creates a random address for testing
func GenerateAddress() common.Address {
	privateKey, _ := crypto.GenerateKey()
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// CreateBigInt parses a string into a big.Int
func CreateBigInt(value string) *big.Int {
	result := new(big.Int)
	result.SetString(value, 10)
	return result
}

// AssertBigIntEqual compares two big.Int values for equality in tests
func AssertBigIntEqual(t *testing.T, expected, actual *big.Int, msgAndArgs ...interface{}) {
	if expected == nil && actual == nil {
		return
	}

	if (expected == nil && actual != nil) || (expected != nil && actual == nil) {
		assert.Fail(t, "Values not equal", msgAndArgs...)
		return
	}

	assert.Equal(t, 0, expected.Cmp(actual), msgAndArgs...)
}

// TestContext returns a context bounded by DefaultTestTimeout
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	t.Cleanup(cancel)
	return ctx
}
