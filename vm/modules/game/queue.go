package game

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

func saveQueue(state core.State, st *core.GameState, q *core.MapMintQueue) error {
	if err := state.SetMapMintQueue(q); err != nil {
		return err
	}
	st.MapQueueLen = uint32(q.Len())
	return state.SetGameState(st)
}

func dequeuedData(item core.MapMintItem, queueLen uint64) map[string]any {
	return map[string]any{
		"player":    item.Player,
		"trait_id":  item.TraitID,
		"level":     item.Level,
		"queue_len": queueLen,
	}
}

func handleQueueMapMint(ctx *vm.Context, payload json.RawMessage) error {
	var p core.QueueMapMintPayload
	if err := vm.Decode(payload, &p, "queue map mint"); err != nil {
		return err
	}
	if p.Player == "" {
		return fmt.Errorf("player required: %w", core.ErrInvalidArgument)
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	q, err := ctx.State.GetMapMintQueue()
	if err != nil {
		return err
	}
	item := core.MapMintItem{Player: p.Player, TraitID: p.TraitID, Level: p.Level}
	if err := q.Push(item); err != nil {
		return fmt.Errorf("map mint queue: %w", err)
	}
	if err := saveQueue(ctx.State, st, q); err != nil {
		return err
	}
	ctx.Emit(events.EventMapMintQueued, map[string]any{
		"player":    item.Player,
		"trait_id":  item.TraitID,
		"level":     item.Level,
		"queue_len": q.Len(),
	})
	return nil
}

func handleDequeueMapMint(ctx *vm.Context, _ json.RawMessage) error {
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	q, err := ctx.State.GetMapMintQueue()
	if err != nil {
		return err
	}
	item, err := q.Pop()
	if err != nil {
		return fmt.Errorf("map mint queue: %w", err)
	}
	if err := saveQueue(ctx.State, st, q); err != nil {
		return err
	}
	ctx.Emit(events.EventMapMintDequeued, dequeuedData(item, q.Len()))
	return nil
}

// handleFinalizeEndgame drains one batch of map mint work during Endgame.
// An already empty queue is a successful no-op step.
func handleFinalizeEndgame(ctx *vm.Context, payload json.RawMessage) error {
	var p core.FinalizeEndgamePayload
	if len(payload) > 0 {
		if err := vm.Decode(payload, &p, "finalize endgame step"); err != nil {
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
	if err := requirePhase(st, core.PhaseEndgame); err != nil {
		return err
	}
	batch := uint64(p.Batch)
	if batch == 0 {
		batch = DefaultEndgameBatch
	}
	q, err := ctx.State.GetMapMintQueue()
	if err != nil {
		return err
	}
	n := min(batch, q.Len())
	for range n {
		item, err := q.Pop()
		if err != nil {
			return fmt.Errorf("map mint queue: %w", err)
		}
		ctx.Emit(events.EventMapMintDequeued, dequeuedData(item, q.Len()))
	}
	st.PendingEndgameCursor = core.SatAdd32(st.PendingEndgameCursor, uint32(n))
	if err := saveQueue(ctx.State, st, q); err != nil {
		return err
	}
	ctx.Emit(events.EventEndgameStep, map[string]any{
		"drained":   n,
		"cursor":    st.PendingEndgameCursor,
		"remaining": q.Len(),
	})
	return nil
}
