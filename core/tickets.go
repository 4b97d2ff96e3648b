package core

import "fmt"

// TicketPageCapacity is the number of seats on a single trait ticket page.
const TicketPageCapacity = 64

// TicketKey addresses one page of the trait ticket registry.
type TicketKey struct {
	Level     uint32 `json:"level"`
	TraitID   uint16 `json:"trait_id"`
	PageIndex uint16 `json:"page_index"`
}

// String renders the key in the form used for storage addressing.
func (k TicketKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.Level, k.TraitID, k.PageIndex)
}

// TicketPage is a capacity-bounded, key-locked registry of participants for
// one (level, trait, page) bucket.
type TicketPage struct {
	Level     uint32                     `json:"level"`
	TraitID   uint16                     `json:"trait_id"`
	PageIndex uint16                     `json:"page_index"`
	Count     uint16                     `json:"count"`
	Seats     [TicketPageCapacity]string `json:"seats"`
}

// Key returns the page's header as a TicketKey.
func (p *TicketPage) Key() TicketKey {
	return TicketKey{Level: p.Level, TraitID: p.TraitID, PageIndex: p.PageIndex}
}

// EnsureHeader binds an empty page to k, or checks that a non-empty page is
// already bound to k.
func (p *TicketPage) EnsureHeader(k TicketKey) error {
	if p.Count == 0 {
		p.Level = k.Level
		p.TraitID = k.TraitID
		p.PageIndex = k.PageIndex
		return nil
	}
	if p.Key() != k {
		return fmt.Errorf("%w: page holds %s, got %s", ErrTicketPageMismatch, p.Key(), k)
	}
	return nil
}

// Push seats player at the next free position and returns that position.
func (p *TicketPage) Push(player string) (uint16, error) {
	if int(p.Count) >= TicketPageCapacity {
		return 0, ErrTicketPageFull
	}
	pos := p.Count
	p.Seats[pos] = player
	p.Count++
	return pos, nil
}

// Clear empties the page but keeps the header.
func (p *TicketPage) Clear() {
	p.Count = 0
	p.Seats = [TicketPageCapacity]string{}
}

// Players returns the occupied seats in seat order.
func (p *TicketPage) Players() []string {
	out := make([]string, p.Count)
	copy(out, p.Seats[:p.Count])
	return out
}
