package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/crypto"
	"github.com/tolelom/purgeledger/internal/testutil"
	"github.com/tolelom/purgeledger/storage"
)

func openBackends(t *testing.T) map[string]storage.DB {
	t.Helper()
	level, err := storage.Open(storage.BackendLevelDB, t.TempDir())
	require.NoError(t, err)
	bolt, err := storage.Open(storage.BackendBolt, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]storage.DB{"leveldb": level, "bolt": bolt, "mem": testutil.NewMemDB()}
}

// TestBackends verifies every DB backend honours the same contract.
func TestBackends(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.ErrorIs(t, err, core.ErrNotFound)

			require.NoError(t, db.Set([]byte("p:b"), []byte("2")))
			require.NoError(t, db.Set([]byte("p:a"), []byte("1")))
			require.NoError(t, db.Set([]byte("q:a"), []byte("x")))

			batch := db.NewBatch()
			batch.Set([]byte("p:c"), []byte("3"))
			batch.Delete([]byte("p:b"))
			require.NoError(t, batch.Write())

			it := db.NewIterator([]byte("p:"))
			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Error())
			it.Release()
			require.Equal(t, []string{"p:a", "p:c"}, keys)
		})
	}
	_, err := storage.Open("rocks", t.TempDir())
	require.Error(t, err)
}

// TestStateDBSnapshotRevert verifies a revert discards every write made
// after the snapshot.
func TestStateDBSnapshotRevert(t *testing.T) {
	state := testutil.NewStateDB()
	_, err := state.GetGameState()
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, state.SetGameState(&core.GameState{Level: 1}))
	snap, err := state.Snapshot()
	require.NoError(t, err)
	require.NoError(t, state.SetGameState(&core.GameState{Level: 2}))
	require.NoError(t, state.SetPlayer(&core.PlayerState{Owner: "alice", TotalMints: 3}))
	require.NoError(t, state.RevertToSnapshot(snap))

	gs, err := state.GetGameState()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), gs.Level)
	p, err := state.GetPlayer("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Owner)
	assert.Zero(t, p.TotalMints)
}

// TestStateDBRootAndCommit verifies the root is independent of write order
// and unchanged by committing.
func TestStateDBRootAndCommit(t *testing.T) {
	a, b := testutil.NewStateDB(), testutil.NewStateDB()
	page := &core.TicketPage{Level: 1, TraitID: 4, Count: 1}
	page.Seats[0] = "alice"

	require.NoError(t, a.SetAccount(&core.Account{Address: "alice", Balance: 5}))
	require.NoError(t, a.SetTicketPage(page))
	require.NoError(t, b.SetTicketPage(page))
	require.NoError(t, b.SetAccount(&core.Account{Address: "alice", Balance: 5}))

	root := a.ComputeRoot()
	require.Equal(t, root, b.ComputeRoot())
	require.NoError(t, a.Commit())
	require.Equal(t, root, a.ComputeRoot())

	got, err := a.GetTicketPage(core.TicketKey{Level: 1, TraitID: 4})
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, got.Players())
}

// TestBlockStoreCommit verifies a committed block is reachable by hash,
// height and tip on a real backend.
func TestBlockStoreCommit(t *testing.T) {
	db, err := storage.Open(storage.BackendBolt, t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	store := storage.NewBlockStore(db)

	tip, err := store.GetTip()
	require.NoError(t, err)
	require.Empty(t, tip)

	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	block := core.NewBlock(1, "", pub.Hex(), nil)
	block.Sign(priv)
	require.NoError(t, store.CommitBlock(block))

	tip, err = store.GetTip()
	require.NoError(t, err)
	require.Equal(t, block.Hash, tip)
	byHeight, err := store.GetBlockByHeight(1)
	require.NoError(t, err)
	require.Equal(t, block.Hash, byHeight.Hash)

	bc := core.NewBlockchain(store)
	require.NoError(t, bc.Init())
	require.Equal(t, int64(1), bc.Height())
}
