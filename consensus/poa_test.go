package consensus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/config"
	"github.com/tolelom/purgeledger/consensus"
	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/internal/testutil"
	"github.com/tolelom/purgeledger/vm"
	"github.com/tolelom/purgeledger/wallet"
)

type node struct {
	poa     *consensus.PoA
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	commits int
}

func newNode(t *testing.T, validator *wallet.Wallet, funded string) *node {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Validators = []string{validator.PubKey()}
	cfg.Genesis.Alloc[funded] = 100

	state := testutil.NewStateDB()
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	require.NoError(t, bc.Init())
	genesis, err := config.CreateGenesisBlock(cfg, state, validator.PrivKey())
	require.NoError(t, err)
	require.NoError(t, bc.AddBlock(genesis))

	n := &node{bc: bc, state: state, mempool: core.NewMempool(cfg.Genesis.ChainID)}
	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventBlockCommit, func(events.Event) { n.commits++ })
	exec := vm.NewExecutor(state, emitter, nil)
	n.poa = consensus.New(cfg, bc, state, n.mempool, exec, emitter, validator.PrivKey())
	return n
}

// TestProduceBlockDropsFailingTxs verifies rejected transactions are left
// out of the block and removed from the mempool.
func TestProduceBlockDropsFailingTxs(t *testing.T) {
	validator, err := wallet.Generate()
	require.NoError(t, err)
	alice, err := wallet.Generate()
	require.NoError(t, err)
	bob, err := wallet.Generate()
	require.NoError(t, err)
	n := newNode(t, validator, alice.PubKey())

	good, err := alice.Transfer("purge-dev", bob.PubKey(), 40, 0, 0)
	require.NoError(t, err)
	bad, err := bob.Transfer("purge-dev", alice.PubKey(), 10, 0, 0)
	require.NoError(t, err)
	require.NoError(t, n.mempool.Add(good))
	require.NoError(t, n.mempool.Add(bad))

	require.True(t, n.poa.IsProposer())
	block, err := n.poa.ProduceBlock()
	require.NoError(t, err)
	assert.Equal(t, int64(1), block.Header.Height)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, good.ID, block.Transactions[0].ID)
	assert.Equal(t, core.ComputeTxRoot(block.Transactions), block.Header.TxRoot)
	assert.Equal(t, 0, n.mempool.Size())
	assert.Equal(t, 1, n.commits)

	acc, err := n.state.GetAccount(bob.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(40), acc.Balance)
	assert.Equal(t, uint64(0), acc.Nonce)
	assert.Equal(t, int64(1), n.bc.Height())
}

// TestValidateBlock verifies proposer, signature and linkage checks.
func TestValidateBlock(t *testing.T) {
	validator, err := wallet.Generate()
	require.NoError(t, err)
	n := newNode(t, validator, validator.PubKey())

	block := core.NewBlock(1, n.bc.Tip().Hash, validator.PubKey(), nil)
	block.Header.ChainID = "purge-dev"
	block.Sign(validator.PrivKey())
	require.NoError(t, n.poa.ValidateBlock(block))

	foreign := core.NewBlock(1, n.bc.Tip().Hash, validator.PubKey(), nil)
	foreign.Header.ChainID = "elsewhere"
	foreign.Sign(validator.PrivKey())
	assert.Error(t, n.poa.ValidateBlock(foreign))

	stranger, err := wallet.Generate()
	require.NoError(t, err)
	forged := core.NewBlock(1, n.bc.Tip().Hash, stranger.PubKey(), nil)
	forged.Sign(stranger.PrivKey())
	assert.Error(t, n.poa.ValidateBlock(forged))

	unlinked := core.NewBlock(1, config.GenesisHash, validator.PubKey(), nil)
	unlinked.Header.ChainID = "purge-dev"
	unlinked.Sign(validator.PrivKey())
	assert.ErrorIs(t, n.poa.ValidateBlock(unlinked), core.ErrBadLink)
}

// TestNotProposer verifies a node outside the validator set does not
// produce blocks.
func TestNotProposer(t *testing.T) {
	validator, err := wallet.Generate()
	require.NoError(t, err)
	n := newNode(t, validator, validator.PubKey())
	outsider, err := wallet.Generate()
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Validators = []string{validator.PubKey()}
	other := consensus.New(cfg, n.bc, n.state, n.mempool, vm.NewExecutor(n.state, nil, nil), events.NewEmitter(), outsider.PrivKey())
	_, err = other.ProduceBlock()
	require.ErrorIs(t, err, consensus.ErrNotProposer)
}

// TestRunProducesUntilCancelled verifies the loop commits blocks on its
// own and returns once the context is cancelled.
func TestRunProducesUntilCancelled(t *testing.T) {
	validator, err := wallet.Generate()
	require.NoError(t, err)
	n := newNode(t, validator, validator.PubKey())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		n.poa.Run(ctx, 5*time.Millisecond)
	}()
	require.Eventually(t, func() bool { return n.bc.Height() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-stopped
}
