package economy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/internal/testutil"
	_ "github.com/tolelom/purgeledger/vm/modules/economy"
	"github.com/tolelom/purgeledger/wallet"
)

func setup(t *testing.T) (*testutil.Harness, *wallet.Wallet) {
	t.Helper()
	h := testutil.NewHarness(t)
	authority := h.NewWallet()
	h.MustExec(authority, core.TxInitEconomy, core.InitEconomyPayload{
		MinBet:       100,
		MinBurn:      10,
		HouseEdgeBps: 250,
		BurnTaxBps:   100,
	})
	return h, authority
}

func economy(t *testing.T, h *testutil.Harness) *core.EconomyState {
	t.Helper()
	st, err := h.State.GetEconomyState()
	require.NoError(t, err)
	return st
}

// TestInitializeTwiceFails verifies the singleton can only be created once.
func TestInitializeTwiceFails(t *testing.T) {
	h, authority := setup(t)
	st := economy(t, h)
	require.Equal(t, authority.PubKey(), st.Authority)
	require.Equal(t, uint64(100), st.MinBet)

	err := h.Exec(authority, core.TxInitEconomy, core.InitEconomyPayload{})
	require.ErrorIs(t, err, core.ErrAlreadyInitialized)
}

// TestOperationsBeforeInitialize verifies ledger ops fail cleanly on a
// fresh state.
func TestOperationsBeforeInitialize(t *testing.T) {
	h := testutil.NewHarness(t)
	err := h.Exec(h.NewWallet(), core.TxPlaceBet, core.PlaceBetPayload{Amount: 1})
	require.ErrorIs(t, err, core.ErrNotInitialized)
}

// TestConfigureRequiresAuthority verifies only the authority may change
// parameters and that omitted fields are left alone.
func TestConfigureRequiresAuthority(t *testing.T) {
	h, authority := setup(t)
	minBet := uint64(500)

	err := h.Exec(h.NewWallet(), core.TxConfigureEconomy, core.ConfigureEconomyPayload{MinBet: &minBet})
	require.ErrorIs(t, err, core.ErrUnauthorized)
	require.Equal(t, uint64(100), economy(t, h).MinBet)

	h.MustExec(authority, core.TxConfigureEconomy, core.ConfigureEconomyPayload{MinBet: &minBet})
	st := economy(t, h)
	require.Equal(t, uint64(500), st.MinBet)
	require.Equal(t, uint64(10), st.MinBurn)

	tooHigh := uint16(core.BasisPoints + 1)
	err = h.Exec(authority, core.TxConfigureEconomy, core.ConfigureEconomyPayload{HouseEdgeBps: &tooHigh})
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

// TestPlaceBet verifies the bet record, counter, stake lane and custody
// collection of a new wager.
func TestPlaceBet(t *testing.T) {
	h, _ := setup(t)
	player := h.NewWallet()

	err := h.Exec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 99, Risk: 1, TargetLevel: 2, BetID: 1})
	require.ErrorIs(t, err, core.ErrBelowMinimumBet)

	h.MustExec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 150, Risk: 1, TargetLevel: 2, BetID: 1})

	bet, err := h.State.GetBet(player.PubKey(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), bet.Amount)
	assert.Equal(t, h.Height(), bet.SlotPlaced)
	assert.False(t, bet.Resolved)
	assert.Nil(t, bet.Result)

	require.Equal(t, uint64(1), economy(t, h).TotalBets)

	stake, err := h.State.GetStake(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, core.StakeLane{Risk: 1, Principal: 150, TargetLevel: 2}, stake.Lanes[0])

	require.Equal(t, uint64(150), h.Custody.Total("collect", custody.Purge))
	placed := h.Events(events.EventBetPlaced)
	require.Len(t, placed, 1)
	require.Equal(t, player.PubKey(), placed[0].Data["player"])
}

// TestPlaceBetIsIdempotent verifies a replayed identical placement is a
// no-op while a conflicting one is rejected.
func TestPlaceBetIsIdempotent(t *testing.T) {
	h, _ := setup(t)
	player := h.NewWallet()
	bet := core.PlaceBetPayload{Amount: 150, Risk: 1, TargetLevel: 2, BetID: 7}

	h.MustExec(player, core.TxPlaceBet, bet)
	h.MustExec(player, core.TxPlaceBet, bet)
	require.Equal(t, uint64(1), economy(t, h).TotalBets)
	require.Equal(t, uint64(150), h.Custody.Total("collect", custody.Purge))

	bet.Amount = 200
	err := h.Exec(player, core.TxPlaceBet, bet)
	require.ErrorIs(t, err, core.ErrBetExists)
}

// TestStakeLanesFull verifies a fourth distinct tier cannot be staked while
// three lanes are occupied, and that a matching tier joins its lane.
func TestStakeLanesFull(t *testing.T) {
	h, _ := setup(t)
	player := h.NewWallet()
	for i := uint64(0); i < core.StakeLaneCount; i++ {
		h.MustExec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 100, Risk: uint8(i), TargetLevel: 1, BetID: i})
	}
	err := h.Exec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 100, Risk: 9, TargetLevel: 1, BetID: 10})
	require.ErrorIs(t, err, core.ErrStakeLanesFull)
	_, err = h.State.GetBet(player.PubKey(), 10)
	require.ErrorIs(t, err, core.ErrNotFound)

	h.MustExec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 100, Risk: 0, TargetLevel: 1, BetID: 11})
	stake, err := h.State.GetStake(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, uint64(200), stake.Lanes[0].Principal)
}

// TestSettleBetLoss verifies a loss adds exactly the wager to the pool and a
// second settlement is rejected.
func TestSettleBetLoss(t *testing.T) {
	h, authority := setup(t)
	player := h.NewWallet()
	h.MustExec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 300, Risk: 2, TargetLevel: 3, BetID: 1})

	settle := core.SettleBetPayload{Player: player.PubKey(), BetID: 1, Result: false}
	err := h.Exec(player, core.TxSettleBet, settle)
	require.ErrorIs(t, err, core.ErrUnauthorized)

	h.MustExec(authority, core.TxSettleBet, settle)
	require.Equal(t, uint64(300), economy(t, h).JackpotPoolPurge)

	bet, err := h.State.GetBet(player.PubKey(), 1)
	require.NoError(t, err)
	require.True(t, bet.Resolved)
	require.NotNil(t, bet.Result)
	require.False(t, *bet.Result)
	require.NotNil(t, bet.SlotResolved)

	stake, err := h.State.GetStake(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, core.StakeLane{}, stake.Lanes[0], "lane freed at zero principal")

	err = h.Exec(authority, core.TxSettleBet, settle)
	require.ErrorIs(t, err, core.ErrBetAlreadyResolved)
	require.Equal(t, uint64(300), economy(t, h).JackpotPoolPurge)
}

// TestSettleBetWinFloorsPool verifies a win subtracts the payout and clamps
// the pool at zero.
func TestSettleBetWinFloorsPool(t *testing.T) {
	h, authority := setup(t)
	loser, winner := h.NewWallet(), h.NewWallet()
	h.MustExec(loser, core.TxPlaceBet, core.PlaceBetPayload{Amount: 400, BetID: 1})
	h.MustExec(winner, core.TxPlaceBet, core.PlaceBetPayload{Amount: 100, BetID: 1})
	h.MustExec(authority, core.TxSettleBet, core.SettleBetPayload{Player: loser.PubKey(), BetID: 1})
	require.Equal(t, uint64(400), economy(t, h).JackpotPoolPurge)

	h.MustExec(authority, core.TxSettleBet, core.SettleBetPayload{Player: winner.PubKey(), BetID: 1, Result: true, Payout: 150})
	require.Equal(t, uint64(250), economy(t, h).JackpotPoolPurge)

	h.MustExec(winner, core.TxPlaceBet, core.PlaceBetPayload{Amount: 100, BetID: 2})
	h.MustExec(authority, core.TxSettleBet, core.SettleBetPayload{Player: winner.PubKey(), BetID: 2, Result: true, Payout: 1_000})
	require.Zero(t, economy(t, h).JackpotPoolPurge)
	require.Equal(t, uint64(1_150), h.Custody.Total("payout", custody.Purge))
}

// TestRecordBurn verifies the minimum and the monotonic counter.
func TestRecordBurn(t *testing.T) {
	h, _ := setup(t)
	player := h.NewWallet()

	err := h.Exec(player, core.TxRecordBurn, core.RecordBurnPayload{Amount: 9})
	require.ErrorIs(t, err, core.ErrBelowMinimumBurn)

	h.MustExec(player, core.TxRecordBurn, core.RecordBurnPayload{Amount: 10})
	h.MustExec(player, core.TxRecordBurn, core.RecordBurnPayload{Amount: 25})
	require.Equal(t, uint64(35), economy(t, h).TotalBurned)
	require.Equal(t, uint64(35), h.Custody.Total("burn", custody.Purge))
}

// TestAffiliateClaims verifies accrual is additive and claims are capped at
// the pending balance.
func TestAffiliateClaims(t *testing.T) {
	h, authority := setup(t)
	const seed = "code-1"

	err := h.Exec(h.NewWallet(), core.TxAwardAffiliate, core.AwardAffiliatePayload{CodeSeed: seed, Amount: 5})
	require.ErrorIs(t, err, core.ErrUnauthorized)

	h.MustExec(authority, core.TxAwardAffiliate, core.AwardAffiliatePayload{CodeSeed: seed, Amount: 60})
	h.MustExec(authority, core.TxAwardAffiliate, core.AwardAffiliatePayload{CodeSeed: seed, Amount: 40, AmountLamports: 7})

	aff, err := h.State.GetAffiliate(seed)
	require.NoError(t, err)
	require.Equal(t, uint64(100), aff.TotalEarned)
	require.Equal(t, uint64(100), aff.PendingClaim)
	require.Equal(t, uint64(7), aff.PendingClaimLamports)

	err = h.Exec(authority, core.TxClaimAffiliate, core.ClaimAffiliatePayload{CodeSeed: seed, Amount: 101})
	require.ErrorIs(t, err, core.ErrPayoutExceeded)
	aff, err = h.State.GetAffiliate(seed)
	require.NoError(t, err)
	require.Equal(t, uint64(100), aff.PendingClaim)

	h.MustExec(authority, core.TxClaimAffiliate, core.ClaimAffiliatePayload{CodeSeed: seed, Amount: 30})
	aff, err = h.State.GetAffiliate(seed)
	require.NoError(t, err)
	require.Equal(t, uint64(70), aff.PendingClaim)
	require.Equal(t, uint64(100), aff.TotalEarned)
	require.Equal(t, h.Height(), aff.LastClaimSlot)

	h.MustExec(authority, core.TxClaimAffiliate, core.ClaimAffiliatePayload{CodeSeed: seed, Amount: 70})
	aff, err = h.State.GetAffiliate(seed)
	require.NoError(t, err)
	require.Zero(t, aff.PendingClaim)
}

// TestSyncJackpot verifies levels may not move backwards.
func TestSyncJackpot(t *testing.T) {
	h, authority := setup(t)
	h.MustExec(authority, core.TxSyncJackpot, core.SyncJackpotPayload{Level: 2, Amount: 50})
	h.MustExec(authority, core.TxSyncJackpot, core.SyncJackpotPayload{Level: 2, Amount: 25})
	err := h.Exec(authority, core.TxSyncJackpot, core.SyncJackpotPayload{Level: 1, Amount: 1})
	require.ErrorIs(t, err, core.ErrJackpotRotation)

	st := economy(t, h)
	require.Equal(t, uint32(2), st.LastLevelSynced)
	require.Equal(t, uint64(75), st.JackpotPoolSol)
}

// TestCustodyFailureRollsBack verifies a refused transfer leaves no trace of
// the wager.
func TestCustodyFailureRollsBack(t *testing.T) {
	h, _ := setup(t)
	player := h.NewWallet()
	h.Custody.Fail = true

	err := h.Exec(player, core.TxPlaceBet, core.PlaceBetPayload{Amount: 150, BetID: 1})
	require.ErrorIs(t, err, custody.ErrRefused)
	require.Zero(t, economy(t, h).TotalBets)
	_, err = h.State.GetBet(player.PubKey(), 1)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Empty(t, h.Events(events.EventBetPlaced))
	require.Len(t, h.Events(events.EventTxRejected), 1)
}

// TestPlaceBetRejectsZeroAmount verifies a zero wager is refused even when
// the minimum bet is zero, leaving no record and no stake lane.
func TestPlaceBetRejectsZeroAmount(t *testing.T) {
	h := testutil.NewHarness(t)
	h.MustExec(h.NewWallet(), core.TxInitEconomy, core.InitEconomyPayload{})
	player := h.NewWallet()

	err := h.Exec(player, core.TxPlaceBet, core.PlaceBetPayload{Risk: 1, TargetLevel: 2, BetID: 1})
	require.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = h.State.GetBet(player.PubKey(), 1)
	require.ErrorIs(t, err, core.ErrNotFound)
	stake, err := h.State.GetStake(player.PubKey())
	require.NoError(t, err)
	require.Equal(t, [core.StakeLaneCount]core.StakeLane{}, stake.Lanes)
}
