// Package game implements the GameLedger: the level and phase state
// machine, the prize pools, the single-slot RNG request, the map mint
// queue and the jackpot rotations that pay out of the RewardsLedger's
// ticket registry.
package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

// Defaults applied to zero config fields at initialization.
const (
	DefaultDailyJackpotBps = 1000
	DefaultTraitCount      = 256
	DefaultJackpotsPerDay  = 1
	DefaultEndgameBatch    = 16
)

func init() {
	vm.Register(core.TxInitGame, handleInitialize)
	vm.Register(core.TxConfigureGame, handleConfigure)
	vm.Register(core.TxMint, handleMint)
	vm.Register(core.TxPurge, handlePurge)
	vm.Register(core.TxAdvancePhase, handleAdvancePhase)
	vm.Register(core.TxAdvanceLevel, handleAdvanceLevel)
	vm.Register(core.TxRequestRng, handleRequestRng)
	vm.Register(core.TxFulfillRng, handleFulfillRng)
	vm.Register(core.TxQueueMapMint, handleQueueMapMint)
	vm.Register(core.TxDequeueMapMint, handleDequeueMapMint)
	vm.Register(core.TxJackpotDaily, handleJackpotDaily)
	vm.Register(core.TxJackpotMap, handleJackpotMap)
	vm.Register(core.TxFinalizeEndgame, handleFinalizeEndgame)
	vm.Register(core.TxClaimWinnings, handleClaimWinnings)
}

// Initialize creates the GameLedger singleton at level 1 in the Minting
// phase with an empty map mint queue. Genesis calls this directly.
func Initialize(state core.State, caller string, p core.InitGamePayload) (*core.GameState, error) {
	if _, err := state.GetGameState(); err == nil {
		return nil, fmt.Errorf("game: %w", core.ErrAlreadyInitialized)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	cfg := p.Config
	if cfg.MaxLevel < 1 {
		return nil, fmt.Errorf("game: max_level must be at least 1: %w", core.ErrInvalidArgument)
	}
	if cfg.DailyJackpotBps > core.BasisPoints {
		return nil, fmt.Errorf("game: daily_jackpot_bps above %d: %w", core.BasisPoints, core.ErrInvalidArgument)
	}
	if cfg.DailyJackpotBps == 0 {
		cfg.DailyJackpotBps = DefaultDailyJackpotBps
	}
	if cfg.TraitCount == 0 {
		cfg.TraitCount = DefaultTraitCount
	}
	if cfg.JackpotsPerDay == 0 {
		cfg.JackpotsPerDay = DefaultJackpotsPerDay
	}
	authority := p.Authority
	if authority == "" {
		authority = caller
	}
	if cfg.RngProvider == "" {
		cfg.RngProvider = authority
	}
	st := &core.GameState{
		Authority: authority,
		Config:    cfg,
		Level:     1,
		Phase:     core.PhaseMinting,
	}
	if err := state.SetGameState(st); err != nil {
		return nil, err
	}
	if err := state.SetMapMintQueue(&core.MapMintQueue{}); err != nil {
		return nil, err
	}
	return st, nil
}

// Load returns the GameLedger singleton, reporting a missing one as
// core.ErrNotInitialized.
func Load(state core.State) (*core.GameState, error) {
	st, err := state.GetGameState()
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("game: %w", core.ErrNotInitialized)
	}
	return st, err
}

func requirePhase(st *core.GameState, allowed ...core.GamePhase) error {
	for _, p := range allowed {
		if st.Phase == p {
			return nil
		}
	}
	return fmt.Errorf("phase %s, need %v: %w", st.Phase, allowed, core.ErrPhaseMismatch)
}

func handleInitialize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.InitGamePayload
	if err := vm.Decode(payload, &p, "game initialize"); err != nil {
		return err
	}
	st, err := Initialize(ctx.State, ctx.Caller(), p)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventGameInitialized, map[string]any{
		"authority":    st.Authority,
		"max_level":    st.Config.MaxLevel,
		"rng_provider": st.Config.RngProvider,
	})
	return nil
}

func handleConfigure(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ConfigureGamePayload
	if err := vm.Decode(payload, &p, "game configure"); err != nil {
		return err
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	if p.DailyJackpotBps != nil && *p.DailyJackpotBps > core.BasisPoints {
		return fmt.Errorf("daily_jackpot_bps above %d: %w", core.BasisPoints, core.ErrInvalidArgument)
	}
	if p.JackpotsPerDay != nil && *p.JackpotsPerDay == 0 {
		return fmt.Errorf("jackpots_per_day must be positive: %w", core.ErrInvalidArgument)
	}
	if p.RngProvider != nil && *p.RngProvider == "" {
		return fmt.Errorf("rng_provider required: %w", core.ErrInvalidArgument)
	}

	cfg := &st.Config
	if p.PriceLamports != nil {
		cfg.PriceLamports = *p.PriceLamports
	}
	if p.PricePurge != nil {
		cfg.PricePurge = *p.PricePurge
	}
	if p.JackpotsPerDay != nil {
		cfg.JackpotsPerDay = *p.JackpotsPerDay
	}
	if p.EarlyPurgeThreshold != nil {
		cfg.EarlyPurgeThreshold = *p.EarlyPurgeThreshold
	}
	if p.RngProvider != nil {
		cfg.RngProvider = *p.RngProvider
	}
	if p.DailyJackpotBps != nil {
		cfg.DailyJackpotBps = *p.DailyJackpotBps
	}
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventGameConfigured, map[string]any{"config": st.Config})
	return nil
}
