package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

func handleRequestRng(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RequestRngPayload
	if err := vm.Decode(payload, &p, "request rng"); err != nil {
		return err
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.Authority, "game authority"); err != nil {
		return err
	}
	if st.RngLocked {
		return fmt.Errorf("requested at slot %d: %w", st.RngLastRequestSlot, core.ErrRngRequestPending)
	}
	slot := ctx.Slot()
	st.RngLocked = true
	st.RngLastRequestSlot = slot
	if err := ctx.State.SetRngRequest(&core.RngRequest{Slot: slot, Tag: p.Tag}); err != nil {
		return err
	}
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventRngRequested, map[string]any{
		"slot": slot,
		"tag":  p.Tag,
	})
	return nil
}

func handleFulfillRng(ctx *vm.Context, payload json.RawMessage) error {
	var p core.FulfillRngPayload
	if err := vm.Decode(payload, &p, "fulfill rng"); err != nil {
		return err
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if !st.RngLocked {
		return fmt.Errorf("no outstanding request: %w", core.ErrRngNotLocked)
	}
	if err := ctx.RequireAuthority(st.Config.RngProvider, "rng provider"); err != nil {
		return err
	}
	req, err := ctx.State.GetRngRequest()
	if err != nil {
		return err
	}
	st.RngWord = p.Word
	st.RngLocked = false
	req.Fulfilled = true
	if err := ctx.State.SetRngRequest(req); err != nil {
		return err
	}
	if err := ctx.State.SetGameState(st); err != nil {
		return err
	}
	ctx.Emit(events.EventRngFulfilled, map[string]any{
		"slot": req.Slot,
		"word": p.Word,
	})
	return nil
}

// freshWord returns the fulfilled RNG request a consumer may draw from.
// The returned request must be marked consumed by the caller.
func freshWord(state core.State, st *core.GameState) (*core.RngRequest, error) {
	if st.RngLocked {
		return nil, fmt.Errorf("awaiting fulfillment: %w", core.ErrRngRequestPending)
	}
	req, err := state.GetRngRequest()
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("no word requested: %w", core.ErrRngStale)
	}
	if err != nil {
		return nil, err
	}
	if !req.Fulfilled || req.Consumed {
		return nil, fmt.Errorf("word from slot %d: %w", req.Slot, core.ErrRngStale)
	}
	return req, nil
}
