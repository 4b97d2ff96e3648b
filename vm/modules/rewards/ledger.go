// Package rewards implements the RewardsLedger: the map-reward queue, the
// paginated trait ticket registry and the deferred trophy vault.
package rewards

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

func init() {
	vm.Register(core.TxInitRewards, handleInitialize)
	vm.Register(core.TxAwardTrophy, handleAwardTrophy)
	vm.Register(core.TxProcessEndLevel, handleProcessEndLevel)
	vm.Register(core.TxEnqueueMapReward, handleEnqueueMapReward)
	vm.Register(core.TxPopMapReward, handlePopMapReward)
	vm.Register(core.TxAddTraitTicket, handleAddTraitTicket)
	vm.Register(core.TxClearTicketPage, handleClearTicketPage)
}

// Initialize creates the RewardsLedger singleton, its trophy vault and its
// empty map-reward queue. Genesis calls this directly.
func Initialize(state core.State, caller string, p core.InitRewardsPayload) (*core.RewardsState, error) {
	if _, err := state.GetRewardsState(); err == nil {
		return nil, fmt.Errorf("rewards: %w", core.ErrAlreadyInitialized)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if p.MapRewardBps > core.BasisPoints {
		return nil, fmt.Errorf("rewards: map_reward_basis_points above %d: %w", core.BasisPoints, core.ErrInvalidArgument)
	}
	authority := p.Authority
	if authority == "" {
		authority = caller
	}
	gameAuthority := p.GameAuthority
	if gameAuthority == "" {
		gameAuthority = authority
	}
	st := &core.RewardsState{
		Authority:        authority,
		GameAuthority:    gameAuthority,
		MapRewardBps:     p.MapRewardBps,
		MapRewardMinimum: p.MapRewardMinimum,
		CoinLedger:       p.CoinLedger,
		GameLedger:       p.GameLedger,
	}
	if err := state.SetRewardsState(st); err != nil {
		return nil, err
	}
	if err := state.SetTrophyVault(&core.TrophyVault{}); err != nil {
		return nil, err
	}
	if err := state.SetMapRewardQueue(&core.MapRewardQueue{}); err != nil {
		return nil, err
	}
	return st, nil
}

// Load returns the RewardsLedger singleton, reporting a missing one as
// core.ErrNotInitialized.
func Load(state core.State) (*core.RewardsState, error) {
	st, err := state.GetRewardsState()
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("rewards: %w", core.ErrNotInitialized)
	}
	return st, err
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.InitRewardsPayload
	if err := vm.Decode(payload, &p, "rewards initialize"); err != nil {
		return err
	}
	st, err := Initialize(ctx.State, ctx.Caller(), p)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventRewardsInitialized, map[string]any{
		"authority":      st.Authority,
		"game_authority": st.GameAuthority,
	})
	return nil
}

func handleAwardTrophy(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AwardTrophyPayload
	if err := vm.Decode(payload, &p, "award trophy"); err != nil {
		return err
	}
	if p.Data != "" {
		if b, err := hex.DecodeString(p.Data); err != nil || len(b) > 16 {
			return fmt.Errorf("trophy data must be at most 16 hex-encoded bytes: %w", core.ErrInvalidArgument)
		}
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "rewards authority"); err != nil {
		return err
	}
	vault, err := ctx.State.GetTrophyVault()
	if err != nil {
		return err
	}
	vault.PendingAmount = core.SatAdd(vault.PendingAmount, p.DeferredLamports)
	if err := ctx.State.SetTrophyVault(vault); err != nil {
		return err
	}
	ctx.Emit(events.EventTrophyAwarded, map[string]any{
		"level":             p.Level,
		"kind":              p.Kind,
		"data":              p.Data,
		"deferred_lamports": p.DeferredLamports,
		"pending_amount":    vault.PendingAmount,
	})
	return nil
}

// handleProcessEndLevel settles the vault for a level. Up to
// CarryoverLamports of the pending balance stays in the vault for the next
// level; the rest moves to TotalPaid.
func handleProcessEndLevel(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ProcessEndLevelPayload
	if err := vm.Decode(payload, &p, "process end level"); err != nil {
		return err
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "rewards authority"); err != nil {
		return err
	}
	vault, err := ctx.State.GetTrophyVault()
	if err != nil {
		return err
	}
	if p.Level <= vault.LastLevelPaid {
		return fmt.Errorf("level %d (last paid %d): %w", p.Level, vault.LastLevelPaid, core.ErrLevelAlreadySettled)
	}

	carry := min(p.CarryoverLamports, vault.PendingAmount)
	paid := vault.PendingAmount - carry
	vault.TotalPaid = core.SatAdd(vault.TotalPaid, paid)
	vault.PendingAmount = carry
	vault.LastLevelPaid = p.Level
	st.LastLevelProcessed = p.Level

	if err := ctx.State.SetTrophyVault(vault); err != nil {
		return err
	}
	if err := ctx.State.SetRewardsState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventLevelSettled, map[string]any{
		"level":      p.Level,
		"paid":       paid,
		"carryover":  carry,
		"total_paid": vault.TotalPaid,
	})
	return nil
}
