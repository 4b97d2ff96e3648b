package game

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

// mintCost resolves the per-currency cost of a mint.
func mintCost(cfg core.GameConfig, quantity uint16, pay core.MintPayment) (sol, purge uint64, err error) {
	switch pay.Kind {
	case core.PaySol:
		return core.SatMul(cfg.PriceLamports, uint64(quantity)), 0, nil
	case core.PayPurge:
		return 0, core.SatMul(cfg.PricePurge, uint64(quantity)), nil
	case core.PayHybrid:
		return pay.Sol, pay.Purge, nil
	default:
		return 0, 0, fmt.Errorf("payment kind %q: %w", pay.Kind, core.ErrInvalidArgument)
	}
}

func handleMint(ctx *vm.Context, payload json.RawMessage) error {
	var p core.MintPayload
	if err := vm.Decode(payload, &p, "mint"); err != nil {
		return err
	}
	if p.Quantity == 0 {
		return fmt.Errorf("quantity must be positive: %w", core.ErrInvalidArgument)
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := requirePhase(st, core.PhaseMinting); err != nil {
		return err
	}
	sol, purge, err := mintCost(st.Config, p.Quantity, p.Payment)
	if err != nil {
		return err
	}
	player, err := ctx.State.GetPlayer(ctx.Caller())
	if err != nil {
		return err
	}

	if sol > 0 {
		if err := ctx.Custody.Collect(ctx.Caller(), custody.Lamports, sol); err != nil {
			return fmt.Errorf("collect mint lamports: %w", err)
		}
		st.NextPrizePool = core.SatAdd(st.NextPrizePool, sol)
	}
	if purge > 0 {
		if err := ctx.Custody.Collect(ctx.Caller(), custody.Purge, purge); err != nil {
			return fmt.Errorf("collect mint purge: %w", err)
		}
		st.CoinPrizePool = core.SatAdd(st.CoinPrizePool, purge)
	}

	switch {
	case player.TotalMints > 0 && player.LastLevelInteraction == st.Level:
	case player.TotalMints > 0 && player.LastLevelInteraction+1 == st.Level:
		player.MintStreak = core.SatAdd32(player.MintStreak, 1)
	default:
		player.MintStreak = 1
	}
	player.TotalMints = core.SatAdd(player.TotalMints, uint64(p.Quantity))
	player.LastLevelInteraction = st.Level

	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventMinted, map[string]any{
		"player":      player.Owner,
		"level":       st.Level,
		"quantity":    p.Quantity,
		"payment":     p.Payment.Kind,
		"cost_sol":    sol,
		"cost_purge":  purge,
		"mint_streak": player.MintStreak,
	})
	return nil
}

func handlePurge(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PurgePayload
	if err := vm.Decode(payload, &p, "purge"); err != nil {
		return err
	}
	if len(p.TokenIDs) == 0 {
		return fmt.Errorf("no tokens to purge: %w", core.ErrInvalidArgument)
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := requirePhase(st, core.PhasePurgeWindow); err != nil {
		return err
	}
	player, err := ctx.State.GetPlayer(ctx.Caller())
	if err != nil {
		return err
	}
	if err := ctx.Custody.BurnTokens(ctx.Caller(), p.TokenIDs); err != nil {
		return fmt.Errorf("burn tokens: %w", err)
	}
	player.TotalPurges = core.SatAdd(player.TotalPurges, uint64(len(p.TokenIDs)))
	if err := ctx.State.SetPlayer(player); err != nil {
		return err
	}
	ctx.Emit(events.EventPurged, map[string]any{
		"player":         player.Owner,
		"level":          st.Level,
		"token_ids":      p.TokenIDs,
		"use_purge_coin": p.UsePurgeCoin,
		"total_purges":   player.TotalPurges,
	})
	return nil
}

func handleAdvancePhase(ctx *vm.Context, _ json.RawMessage) error {
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	next, ok := st.Phase.Next()
	if !ok {
		return fmt.Errorf("phase %s ends the level, advance the level instead: %w", st.Phase, core.ErrPhaseMismatch)
	}
	if st.Phase == core.PhaseEndgame {
		q, err := ctx.State.GetMapMintQueue()
		if err != nil {
			return err
		}
		if n := q.Len(); n > 0 {
			return fmt.Errorf("%d map mint items pending: %w", n, core.ErrQueueNotDrained)
		}
	}
	from := st.Phase
	st.Phase = next
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventPhaseAdvanced, map[string]any{
		"level": st.Level,
		"from":  from,
		"to":    next,
	})
	return nil
}

// handleAdvanceLevel settles the prize pools and opens the next level. The
// sum of prize_pool and next_prize_pool is preserved across the transition.
func handleAdvanceLevel(ctx *vm.Context, payload json.RawMessage) error {
	var p core.AdvanceLevelPayload
	if len(payload) > 0 {
		if err := vm.Decode(payload, &p, "advance level"); err != nil {
			return err
		}
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	if st.Level >= st.Config.MaxLevel {
		return fmt.Errorf("level %d of %d: %w", st.Level, st.Config.MaxLevel, core.ErrMaxLevelReached)
	}
	if !p.Force {
		if err := requirePhase(st, core.PhaseMaintenance); err != nil {
			return err
		}
	}

	st.LastLevelPrizePool = st.PrizePool
	st.Carryover = st.PrizePool
	st.PrizePool = core.SatAdd(st.NextPrizePool, st.Carryover)
	st.NextPrizePool = 0
	st.JackpotCounter = 0
	st.DailyIndex = 0
	st.PendingEndgameCursor = 0
	st.Level++
	st.Phase = core.PhaseMinting

	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventLevelAdvanced, map[string]any{
		"level":      st.Level,
		"forced":     p.Force,
		"prize_pool": st.PrizePool,
		"carryover":  st.Carryover,
	})
	return nil
}
