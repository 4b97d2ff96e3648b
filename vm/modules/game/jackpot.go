package game

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/entropy"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
	"github.com/tolelom/purgeledger/vm/modules/rewards"
)

// credit adds winnings to a player's claimable balances.
func credit(state core.State, owner string, lamports, purge uint64) (*core.PlayerState, error) {
	player, err := state.GetPlayer(owner)
	if err != nil {
		return nil, err
	}
	player.ClaimableLamports = core.SatAdd(player.ClaimableLamports, lamports)
	player.ClaimablePurge = core.SatAdd(player.ClaimablePurge, purge)
	return player, state.SetPlayer(player)
}

// handleJackpotDaily runs one daily rotation. Each fulfilled RNG word pays a
// single day; the rotation index makes a replayed day fail.
func handleJackpotDaily(ctx *vm.Context, payload json.RawMessage) error {
	var p core.JackpotDailyPayload
	if err := vm.Decode(payload, &p, "daily jackpot"); err != nil {
		return err
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	if err := requirePhase(st, core.PhasePurgeWindow); err != nil {
		return err
	}
	if p.Day != st.DailyIndex {
		return fmt.Errorf("day %d, expected %d: %w", p.Day, st.DailyIndex, core.ErrJackpotRotation)
	}
	draws := uint64(st.Config.JackpotsPerDay)
	if st.DailyIndex == math.MaxUint32 || uint64(st.JackpotCounter)+draws > math.MaxUint16 {
		return fmt.Errorf("level %d rotation exhausted: %w", st.Level, core.ErrJackpotRotation)
	}
	req, err := freshWord(ctx.State, st)
	if err != nil {
		return err
	}

	perLamports := core.Bps(st.PrizePool, st.Config.DailyJackpotBps) / draws
	perPurge := core.Bps(st.CoinPrizePool, st.Config.DailyJackpotBps) / draws
	word := [32]byte(st.RngWord)
	traits := uint64(st.Config.TraitCount)

	var paidLamports, paidPurge uint64
	winners := 0
	for i := range draws {
		trait := uint16(entropy.Pick(word, traits, entropy.DomainDailyTrait, uint64(p.Day), i))
		count, err := rewards.CountTickets(ctx.State, st.Level, trait)
		if err != nil {
			return err
		}
		if count == 0 {
			continue
		}
		seat := entropy.Pick(word, count, entropy.DomainDailySeat, uint64(p.Day), i)
		winner, err := rewards.SeatAt(ctx.State, st.Level, trait, seat)
		if err != nil {
			return err
		}
		lamports := min(perLamports, st.PrizePool)
		purge := min(perPurge, st.CoinPrizePool)
		st.PrizePool -= lamports
		st.CoinPrizePool -= purge
		if _, err := credit(ctx.State, winner, lamports, purge); err != nil {
			return err
		}
		paidLamports += lamports
		paidPurge += purge
		winners++
		ctx.Emit(events.EventJackpotPaid, map[string]any{
			"kind":     "daily",
			"level":    st.Level,
			"day":      p.Day,
			"draw":     i,
			"trait_id": trait,
			"seat":     seat,
			"winner":   winner,
			"lamports": lamports,
			"purge":    purge,
		})
	}

	req.Consumed = true
	st.DailyIndex = core.SatAdd32(st.DailyIndex, 1)
	st.JackpotCounter = core.SatAdd16(st.JackpotCounter, uint16(draws))
	if err := ctx.State.SetRngRequest(req); err != nil {
		return err
	}
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventJackpotDaily, map[string]any{
		"level":         st.Level,
		"day":           p.Day,
		"draws":         draws,
		"winners":       winners,
		"paid_lamports": paidLamports,
		"paid_purge":    paidPurge,
		"prize_pool":    st.PrizePool,
	})
	return nil
}

// mapPayout resolves the payout of a map reward entry. Entries without an
// explicit amount take the configured share of the pool, raised to the
// minimum when the pool can cover it.
func mapPayout(entry core.MapRewardEntry, pool uint64, rs *core.RewardsState) uint64 {
	if entry.AmountLamports > 0 {
		return entry.AmountLamports
	}
	amount := core.Bps(pool, rs.MapRewardBps)
	if amount < rs.MapRewardMinimum && pool >= rs.MapRewardMinimum {
		amount = rs.MapRewardMinimum
	}
	return amount
}

func handleJackpotMap(ctx *vm.Context, payload json.RawMessage) error {
	var p core.JackpotMapPayload
	if err := vm.Decode(payload, &p, "map jackpot"); err != nil {
		return err
	}
	if p.Max == 0 {
		return fmt.Errorf("max must be positive: %w", core.ErrInvalidArgument)
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	if err := requirePhase(st, core.PhasePurgeWindow, core.PhaseEndgame); err != nil {
		return err
	}
	if p.Round != st.JackpotCounter {
		return fmt.Errorf("round %d, expected %d: %w", p.Round, st.JackpotCounter, core.ErrJackpotRotation)
	}
	// The last counter value is never consumed, so a pinned counter cannot
	// open the same round twice.
	if st.JackpotCounter == math.MaxUint16 {
		return fmt.Errorf("level %d rotation exhausted: %w", st.Level, core.ErrJackpotRotation)
	}
	rs, err := rewards.Load(ctx.State)
	if err != nil {
		return err
	}
	q, err := ctx.State.GetMapRewardQueue()
	if err != nil {
		return err
	}
	if q.Len() == 0 {
		return fmt.Errorf("map reward queue: %w", core.ErrQueueEmpty)
	}

	n := min(uint64(p.Max), q.Len())
	var paid uint64
	for range n {
		entry, remaining, err := rewards.PopMapReward(ctx.State, rs)
		if err != nil {
			return err
		}
		amount := min(mapPayout(entry, st.PrizePool, rs), st.PrizePool)
		st.PrizePool -= amount
		if _, err := credit(ctx.State, entry.Player, amount, 0); err != nil {
			return err
		}
		paid += amount
		ctx.Emit(events.EventMapRewardPopped, rewards.MapRewardPoppedData(entry, remaining))
		ctx.Emit(events.EventJackpotPaid, map[string]any{
			"kind":     "map",
			"level":    st.Level,
			"round":    p.Round,
			"trait_id": entry.TraitID,
			"winner":   entry.Player,
			"lamports": amount,
			"purge":    uint64(0),
		})
	}

	st.JackpotCounter = core.SatAdd16(st.JackpotCounter, 1)
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventJackpotMap, map[string]any{
		"level":         st.Level,
		"round":         p.Round,
		"entries":       n,
		"paid_lamports": paid,
		"prize_pool":    st.PrizePool,
	})
	return nil
}

func handleClaimWinnings(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ClaimWinningsPayload
	if err := vm.Decode(payload, &p, "claim winnings"); err != nil {
		return err
	}
	if p.Lamports == 0 && p.Purge == 0 {
		return fmt.Errorf("nothing to claim: %w", core.ErrInvalidArgument)
	}
	if _, err := Load(ctx.State); err != nil {
		return err
	}
	player, err := ctx.State.GetPlayer(ctx.Caller())
	if err != nil {
		return err
	}
	if p.Lamports > player.ClaimableLamports {
		return fmt.Errorf("lamports %d > claimable %d: %w", p.Lamports, player.ClaimableLamports, core.ErrPayoutExceeded)
	}
	if p.Purge > player.ClaimablePurge {
		return fmt.Errorf("purge %d > claimable %d: %w", p.Purge, player.ClaimablePurge, core.ErrPayoutExceeded)
	}
	if p.Lamports > 0 {
		if err := ctx.Custody.Payout(player.Owner, custody.Lamports, p.Lamports); err != nil {
			return fmt.Errorf("pay lamports: %w", err)
		}
	}
	if p.Purge > 0 {
		if err := ctx.Custody.Payout(player.Owner, custody.Purge, p.Purge); err != nil {
			return fmt.Errorf("pay purge: %w", err)
		}
	}
	player.ClaimableLamports -= p.Lamports
	player.ClaimablePurge -= p.Purge
	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}
	ctx.Emit(events.EventWinningsClaimed, map[string]any{
		"player":   player.Owner,
		"lamports": p.Lamports,
		"purge":    p.Purge,
	})
	return nil
}
