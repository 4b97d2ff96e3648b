// Package economy implements the EconomyLedger: wagers, the stake lane
// table, burn accounting and affiliate accrual, plus the native token
// transfer that funds transaction fees.
package economy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

func init() {
	vm.Register(core.TxInitEconomy, handleInitialize)
	vm.Register(core.TxConfigureEconomy, handleConfigure)
	vm.Register(core.TxPlaceBet, handlePlaceBet)
	vm.Register(core.TxSettleBet, handleSettleBet)
	vm.Register(core.TxRecordBurn, handleRecordBurn)
	vm.Register(core.TxAwardAffiliate, handleAwardAffiliate)
	vm.Register(core.TxClaimAffiliate, handleClaimAffiliate)
	vm.Register(core.TxSyncJackpot, handleSyncJackpot)
}

// Initialize creates the EconomyLedger singleton. An empty p.Authority makes
// caller the authority. Genesis calls this directly.
func Initialize(state core.State, caller string, p core.InitEconomyPayload) (*core.EconomyState, error) {
	if _, err := state.GetEconomyState(); err == nil {
		return nil, fmt.Errorf("economy: %w", core.ErrAlreadyInitialized)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if p.HouseEdgeBps > core.BasisPoints || p.BurnTaxBps > core.BasisPoints {
		return nil, fmt.Errorf("economy: bps above %d: %w", core.BasisPoints, core.ErrInvalidArgument)
	}
	authority := p.Authority
	if authority == "" {
		authority = caller
	}
	st := &core.EconomyState{
		Authority:    authority,
		MinBet:       p.MinBet,
		MinBurn:      p.MinBurn,
		HouseEdgeBps: p.HouseEdgeBps,
		BurnTaxBps:   p.BurnTaxBps,
	}
	if err := state.SetEconomyState(st); err != nil {
		return nil, err
	}
	return st, nil
}

// load returns the singleton, reporting a missing one as ErrNotInitialized.
func load(state core.State) (*core.EconomyState, error) {
	st, err := state.GetEconomyState()
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("economy: %w", core.ErrNotInitialized)
	}
	return st, err
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.InitEconomyPayload
	if err := vm.Decode(payload, &p, "econ initialize"); err != nil {
		return err
	}
	st, err := Initialize(ctx.State, ctx.Caller(), p)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventEconomyInitialized, map[string]any{
		"authority": st.Authority,
		"min_bet":   st.MinBet,
		"min_burn":  st.MinBurn,
	})
	return nil
}

func handleConfigure(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ConfigureEconomyPayload
	if err := vm.Decode(payload, &p, "econ configure"); err != nil {
		return err
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "economy authority"); err != nil {
		return err
	}
	if (p.HouseEdgeBps != nil && *p.HouseEdgeBps > core.BasisPoints) ||
		(p.BurnTaxBps != nil && *p.BurnTaxBps > core.BasisPoints) {
		return fmt.Errorf("economy: bps above %d: %w", core.BasisPoints, core.ErrInvalidArgument)
	}
	if p.MinBet != nil {
		st.MinBet = *p.MinBet
	}
	if p.MinBurn != nil {
		st.MinBurn = *p.MinBurn
	}
	if p.HouseEdgeBps != nil {
		st.HouseEdgeBps = *p.HouseEdgeBps
	}
	if p.BurnTaxBps != nil {
		st.BurnTaxBps = *p.BurnTaxBps
	}
	if err := ctx.State.SetEconomyState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventEconomyConfigured, map[string]any{
		"min_bet":        st.MinBet,
		"min_burn":       st.MinBurn,
		"house_edge_bps": st.HouseEdgeBps,
		"burn_tax_bps":   st.BurnTaxBps,
	})
	return nil
}

func handlePlaceBet(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PlaceBetPayload
	if err := vm.Decode(payload, &p, "place bet"); err != nil {
		return err
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("bet amount must be positive: %w", core.ErrInvalidArgument)
	}
	if p.Amount < st.MinBet {
		return fmt.Errorf("bet %d < minimum %d: %w", p.Amount, st.MinBet, core.ErrBelowMinimumBet)
	}

	player := ctx.Caller()
	existing, err := ctx.State.GetBet(player, p.BetID)
	switch {
	case err == nil:
		if !existing.Resolved && existing.Amount == p.Amount &&
			existing.Risk == p.Risk && existing.TargetLevel == p.TargetLevel {
			return nil // replayed placement of the same wager
		}
		return fmt.Errorf("bet %d: %w", p.BetID, core.ErrBetExists)
	case !errors.Is(err, core.ErrNotFound):
		return err
	}

	stake, err := ctx.State.GetStake(player)
	if err != nil {
		return err
	}
	lane, err := stake.Allocate(p.Risk, p.TargetLevel, p.Amount)
	if err != nil {
		return fmt.Errorf("bet %d: %w", p.BetID, err)
	}

	if err := ctx.Custody.Collect(player, custody.Purge, p.Amount); err != nil {
		return fmt.Errorf("collect wager: %w", err)
	}

	bet := &core.BetRecord{
		Player:      player,
		BetID:       p.BetID,
		Amount:      p.Amount,
		Risk:        p.Risk,
		TargetLevel: p.TargetLevel,
		SlotPlaced:  ctx.Slot(),
	}
	st.TotalBets = core.SatAdd(st.TotalBets, 1)
	if err := ctx.State.SetBet(bet); err != nil {
		return err
	}
	if err := ctx.State.SetStake(stake); err != nil {
		return err
	}
	if err := ctx.State.SetEconomyState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventBetPlaced, map[string]any{
		"player":     player,
		"bet_id":     p.BetID,
		"amount":     p.Amount,
		"risk":       p.Risk,
		"lane":       lane,
		"total_bets": st.TotalBets,
	})
	return nil
}

func handleSettleBet(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SettleBetPayload
	if err := vm.Decode(payload, &p, "settle bet"); err != nil {
		return err
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "economy authority"); err != nil {
		return err
	}
	bet, err := ctx.State.GetBet(p.Player, p.BetID)
	if err != nil {
		return fmt.Errorf("bet %s/%d: %w", p.Player, p.BetID, err)
	}
	if bet.Resolved {
		return fmt.Errorf("bet %s/%d: %w", p.Player, p.BetID, core.ErrBetAlreadyResolved)
	}
	stake, err := ctx.State.GetStake(p.Player)
	if err != nil {
		return err
	}

	if p.Result {
		if p.Payout > 0 {
			if err := ctx.Custody.Payout(p.Player, custody.Purge, p.Payout); err != nil {
				return fmt.Errorf("pay winnings: %w", err)
			}
		}
		st.JackpotPoolPurge = core.SatSub(st.JackpotPoolPurge, p.Payout)
	} else {
		st.JackpotPoolPurge = core.SatAdd(st.JackpotPoolPurge, bet.Amount)
	}
	stake.Release(bet.Risk, bet.TargetLevel, bet.Amount)

	result := p.Result
	slot := ctx.Slot()
	bet.Resolved = true
	bet.Result = &result
	bet.SlotResolved = &slot

	if err := ctx.State.SetBet(bet); err != nil {
		return err
	}
	if err := ctx.State.SetStake(stake); err != nil {
		return err
	}
	if err := ctx.State.SetEconomyState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventBetSettled, map[string]any{
		"player":             p.Player,
		"bet_id":             p.BetID,
		"result":             p.Result,
		"payout":             p.Payout,
		"jackpot_pool_purge": st.JackpotPoolPurge,
	})
	return nil
}

func handleRecordBurn(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RecordBurnPayload
	if err := vm.Decode(payload, &p, "record burn"); err != nil {
		return err
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if p.Amount < st.MinBurn {
		return fmt.Errorf("burn %d < minimum %d: %w", p.Amount, st.MinBurn, core.ErrBelowMinimumBurn)
	}
	if err := ctx.Custody.Burn(ctx.Caller(), custody.Purge, p.Amount); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	st.TotalBurned = core.SatAdd(st.TotalBurned, p.Amount)
	if err := ctx.State.SetEconomyState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventBurnRecorded, map[string]any{
		"player":       ctx.Caller(),
		"amount":       p.Amount,
		"total_burned": st.TotalBurned,
	})
	return nil
}

func handleAwardAffiliate(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AwardAffiliatePayload
	if err := vm.Decode(payload, &p, "award affiliate"); err != nil {
		return err
	}
	if p.CodeSeed == "" {
		return fmt.Errorf("code_seed required: %w", core.ErrInvalidArgument)
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "economy authority"); err != nil {
		return err
	}
	aff, err := affiliate(ctx.State, p.CodeSeed)
	if err != nil {
		return err
	}
	aff.TotalEarned = core.SatAdd(aff.TotalEarned, p.Amount)
	aff.PendingClaim = core.SatAdd(aff.PendingClaim, p.Amount)
	aff.PendingClaimLamports = core.SatAdd(aff.PendingClaimLamports, p.AmountLamports)
	aff.LastLevel = st.LastLevelSynced
	if err := ctx.State.SetAffiliate(aff); err != nil {
		return err
	}
	ctx.Emit(events.EventAffiliateRewarded, map[string]any{
		"code_seed":     p.CodeSeed,
		"amount":        p.Amount,
		"pending_claim": aff.PendingClaim,
	})
	return nil
}

func handleClaimAffiliate(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ClaimAffiliatePayload
	if err := vm.Decode(payload, &p, "claim affiliate"); err != nil {
		return err
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "economy authority"); err != nil {
		return err
	}
	aff, err := ctx.State.GetAffiliate(p.CodeSeed)
	if err != nil {
		return fmt.Errorf("affiliate %s: %w", p.CodeSeed, err)
	}
	if p.Amount > aff.PendingClaim {
		return fmt.Errorf("claim %d > pending %d: %w", p.Amount, aff.PendingClaim, core.ErrPayoutExceeded)
	}
	if p.Amount > 0 {
		if err := ctx.Custody.Payout(ctx.Caller(), custody.Purge, p.Amount); err != nil {
			return fmt.Errorf("pay affiliate: %w", err)
		}
	}
	aff.PendingClaim = core.SatSub(aff.PendingClaim, p.Amount)
	aff.LastClaimSlot = ctx.Slot()
	if err := ctx.State.SetAffiliate(aff); err != nil {
		return err
	}
	ctx.Emit(events.EventAffiliateClaimed, map[string]any{
		"code_seed":     p.CodeSeed,
		"receiver":      ctx.Caller(),
		"amount":        p.Amount,
		"pending_claim": aff.PendingClaim,
	})
	return nil
}

func handleSyncJackpot(ctx *vm.Context, payload json.RawMessage) error {
	var p core.SyncJackpotPayload
	if err := vm.Decode(payload, &p, "sync jackpot"); err != nil {
		return err
	}
	st, err := load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "economy authority"); err != nil {
		return err
	}
	if p.Level < st.LastLevelSynced {
		return fmt.Errorf("sync level %d behind %d: %w", p.Level, st.LastLevelSynced, core.ErrJackpotRotation)
	}
	st.LastLevelSynced = p.Level
	st.JackpotPoolSol = core.SatAdd(st.JackpotPoolSol, p.Amount)
	if err := ctx.State.SetEconomyState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventJackpotSynced, map[string]any{
		"level":            p.Level,
		"amount":           p.Amount,
		"jackpot_pool_sol": st.JackpotPoolSol,
	})
	return nil
}

// affiliate loads the accrual for codeSeed, creating an empty one on first
// reference.
func affiliate(state core.State, codeSeed string) (*core.AffiliateAccrual, error) {
	aff, err := state.GetAffiliate(codeSeed)
	if errors.Is(err, core.ErrNotFound) {
		return &core.AffiliateAccrual{CodeSeed: codeSeed}, nil
	}
	return aff, err
}
