package custody

import (
	"fmt"
	"sync"
)

// Movement is one call observed by a Recorder.
type Movement struct {
	Op       string
	Owner    string
	Asset    Asset
	Amount   uint64
	TokenIDs []uint64
}

// Recorder is a Custodian that logs every movement. Set Fail to make the
// next calls return ErrRefused.
type Recorder struct {
	mu        sync.Mutex
	movements []Movement
	Fail      bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(m Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return fmt.Errorf("%w: %s %d %s for %s", ErrRefused, m.Op, m.Amount, m.Asset, m.Owner)
	}
	r.movements = append(r.movements, m)
	return nil
}

func (r *Recorder) Collect(owner string, asset Asset, amount uint64) error {
	return r.record(Movement{Op: "collect", Owner: owner, Asset: asset, Amount: amount})
}

func (r *Recorder) Payout(owner string, asset Asset, amount uint64) error {
	return r.record(Movement{Op: "payout", Owner: owner, Asset: asset, Amount: amount})
}

func (r *Recorder) Burn(owner string, asset Asset, amount uint64) error {
	return r.record(Movement{Op: "burn", Owner: owner, Asset: asset, Amount: amount})
}

func (r *Recorder) BurnTokens(owner string, tokenIDs []uint64) error {
	ids := append([]uint64(nil), tokenIDs...)
	return r.record(Movement{Op: "burn_tokens", Owner: owner, TokenIDs: ids})
}

// Movements returns a copy of everything recorded so far.
func (r *Recorder) Movements() []Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Movement(nil), r.movements...)
}

// Total sums the amounts of op for asset.
func (r *Recorder) Total(op string, asset Asset) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum uint64
	for _, m := range r.movements {
		if m.Op == op && m.Asset == asset {
			sum += m.Amount
		}
	}
	return sum
}
