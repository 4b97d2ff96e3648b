package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

// Pages returns the occupied ticket pages of (level, trait) in page order.
// A cleared page keeps its slot, so empty pages are skipped and enumeration
// stops at the first page that was never written.
func Pages(state core.State, level uint32, trait uint16) ([]*core.TicketPage, error) {
	var pages []*core.TicketPage
	for idx := 0; idx <= math.MaxUint16; idx++ {
		page, err := state.GetTicketPage(core.TicketKey{Level: level, TraitID: trait, PageIndex: uint16(idx)})
		if errors.Is(err, core.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if page.Count == 0 {
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// CountTickets returns the number of seats held across the pages of
// (level, trait).
func CountTickets(state core.State, level uint32, trait uint16) (uint64, error) {
	pages, err := Pages(state, level, trait)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, p := range pages {
		n += uint64(p.Count)
	}
	return n, nil
}

// SeatAt returns the holder of the idx-th seat across the pages of
// (level, trait), counting in page then seat order.
func SeatAt(state core.State, level uint32, trait uint16, idx uint64) (string, error) {
	pages, err := Pages(state, level, trait)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if idx < uint64(p.Count) {
			return p.Seats[idx], nil
		}
		idx -= uint64(p.Count)
	}
	return "", fmt.Errorf("seat %d of %d/%d: %w", idx, level, trait, core.ErrNotFound)
}

func handleAddTraitTicket(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TraitTicketPayload
	if err := vm.Decode(payload, &p, "add trait ticket"); err != nil {
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

	key := p.Key()
	page, err := ctx.State.GetTicketPage(key)
	if errors.Is(err, core.ErrNotFound) {
		page = &core.TicketPage{}
	} else if err != nil {
		return err
	}
	if err := page.EnsureHeader(key); err != nil {
		return err
	}
	pos, err := page.Push(p.Player)
	if err != nil {
		return fmt.Errorf("page %s: %w", key, err)
	}
	if err := ctx.State.SetTicketPage(page); err != nil {
		return err
	}
	ctx.Emit(events.EventTraitTicketAdded, map[string]any{
		"level":      p.Level,
		"trait_id":   p.TraitID,
		"page_index": p.PageIndex,
		"position":   pos,
		"player":     p.Player,
	})
	return nil
}

func handleClearTicketPage(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ClearTicketPagePayload
	if err := vm.Decode(payload, &p, "clear trait ticket page"); err != nil {
		return err
	}
	st, err := Load(ctx.State)
	if err != nil {
		return err
	}
	if err := ctx.RequireAuthority(st.GameAuthority, "game authority"); err != nil {
		return err
	}
	key := p.Key()
	page, err := ctx.State.GetTicketPage(key)
	if err != nil {
		return fmt.Errorf("page %s: %w", key, err)
	}
	if err := page.EnsureHeader(key); err != nil {
		return err
	}
	cleared := page.Count
	page.Clear()
	if err := ctx.State.SetTicketPage(page); err != nil {
		return err
	}
	ctx.Emit(events.EventTraitTicketCleared, map[string]any{
		"level":      p.Level,
		"trait_id":   p.TraitID,
		"page_index": p.PageIndex,
		"cleared":    cleared,
	})
	return nil
}
