package rewards

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

// PushMapReward appends entry to the map-reward queue and refreshes the
// length mirror. It returns the new queue length.
func PushMapReward(state core.State, st *core.RewardsState, entry core.MapRewardEntry) (uint64, error) {
	q, err := state.GetMapRewardQueue()
	if err != nil {
		return 0, err
	}
	if err := q.Push(entry); err != nil {
		return q.Len(), fmt.Errorf("map reward queue: %w", err)
	}
	return q.Len(), saveQueue(state, st, q)
}

// PopMapReward removes the oldest map-reward entry and refreshes the length
// mirror. It returns the entry and the remaining queue length.
func PopMapReward(state core.State, st *core.RewardsState) (core.MapRewardEntry, uint64, error) {
	q, err := state.GetMapRewardQueue()
	if err != nil {
		return core.MapRewardEntry{}, 0, err
	}
	entry, err := q.Pop()
	if err != nil {
		return entry, 0, fmt.Errorf("map reward queue: %w", err)
	}
	return entry, q.Len(), saveQueue(state, st, q)
}

func saveQueue(state core.State, st *core.RewardsState, q *core.MapRewardQueue) error {
	if err := state.SetMapRewardQueue(q); err != nil {
		return err
	}
	st.MapQueueLen = uint32(q.Len())
	return state.SetRewardsState(st)
}

func handleEnqueueMapReward(ctx *vm.Context, payload json.RawMessage) error {
	var p core.MapRewardPayload
	if err := vm.Decode(payload, &p, "enqueue map reward"); err != nil {
		return err
	}
	if p.Player == "" {
		return fmt.Errorf("player required: %w", core.ErrInvalidArgument)
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.GameAuthority, "game authority"); err != nil {
		return err
	}
	n, err := PushMapReward(ctx.State, st, core.MapRewardEntry{
		Player:         p.Player,
		TraitID:        p.TraitID,
		Level:          p.Level,
		AmountLamports: p.AmountLamports,
	})
	if err != nil {
		return err
	}
	ctx.Emit(events.EventMapRewardQueued, map[string]any{
		"player":          p.Player,
		"trait_id":        p.TraitID,
		"level":           p.Level,
		"amount_lamports": p.AmountLamports,
		"queue_len":       n,
	})
	return nil
}

func handlePopMapReward(ctx *vm.Context, _ json.RawMessage) error {
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.GameAuthority, "game authority"); err != nil {
		return err
	}
	entry, n, err := PopMapReward(ctx.State, st)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventMapRewardPopped, MapRewardPoppedData(entry, n))
	return nil
}

// MapRewardPoppedData is the event payload for a popped map-reward entry.
func MapRewardPoppedData(entry core.MapRewardEntry, queueLen uint64) map[string]any {
	return map[string]any{
		"player":          entry.Player,
		"trait_id":        entry.TraitID,
		"level":           entry.Level,
		"amount_lamports": entry.AmountLamports,
		"queue_len":       queueLen,
	}
}
