package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/indexer"
	"github.com/tolelom/purgeledger/internal/testutil"
	_ "github.com/tolelom/purgeledger/vm/modules/economy"
	_ "github.com/tolelom/purgeledger/vm/modules/rewards"
)

// TestBetsByPlayer verifies placed bets are indexed under their player.
func TestBetsByPlayer(t *testing.T) {
	h := testutil.NewHarness(t)
	idx := indexer.New(testutil.NewMemDB(), h.Emitter)
	authority, player := h.NewWallet(), h.NewWallet()

	h.MustExec(authority, core.TxInitEconomy, core.InitEconomyPayload{MinBet: 1})
	h.MustExec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 5, BetID: 1})
	h.MustExec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 5, BetID: 2})

	bets, err := idx.GetBetsByPlayer(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, bets)

	none, err := idx.GetBetsByPlayer(authority.PubKey())
	require.NoError(t, err)
	require.Empty(t, none)
}

// TestTicketsByPlayer verifies seats are indexed per page and dropped when
// the page is cleared.
func TestTicketsByPlayer(t *testing.T) {
	h := testutil.NewHarness(t)
	idx := indexer.New(testutil.NewMemDB(), h.Emitter)
	game, player := h.NewWallet(), h.NewWallet()
	h.MustExec(game, core.TxInitRewards, core.InitRewardsPayload{})

	seat := func(trait uint16) {
		h.MustExec(game, core.TxAddTraitTicket, core.TraitTicketPayload{Level: 1, TraitID: trait, Player: player.PubKey()})
	}
	seat(7)
	seat(7)
	seat(8)

	pages, err := idx.GetTicketsByPlayer(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, []string{"1:7:0", "1:8:0"}, pages)

	h.MustExec(game, core.TxClearTicketPage, core.ClearTicketPagePayload{Level: 1, TraitID: 7})
	pages, err = idx.GetTicketsByPlayer(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, []string{"1:8:0"}, pages)
}

// TestEventLog verifies every delivered event is logged in order and that
// the sequence survives a restart.
func TestEventLog(t *testing.T) {
	h := testutil.NewHarness(t)
	db := testutil.NewMemDB()
	idx := indexer.New(db, h.Emitter)
	authority := h.NewWallet()

	h.MustExec(authority, core.TxInitRewards, core.InitRewardsPayload{})
	err := h.Exec(authority, core.TxInitRewards, core.InitRewardsPayload{})
	require.ErrorIs(t, err, core.ErrAlreadyInitialized)

	logged, err := idx.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, logged, 3)
	assert.Equal(t, events.EventRewardsInitialized, logged[0].Type)
	assert.Equal(t, events.EventTxExecuted, logged[1].Type)
	assert.Equal(t, events.EventTxRejected, logged[2].Type)
	for i, ev := range logged {
		assert.Equal(t, uint64(i), ev.Seq)
	}

	page, err := idx.Events(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(1), page[0].Seq)

	emitter := events.NewEmitter()
	restarted := indexer.New(db, emitter)
	emitter.Emit(events.Event{Type: events.EventBlockCommit})
	all, err := restarted.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, uint64(3), all[3].Seq)
}
