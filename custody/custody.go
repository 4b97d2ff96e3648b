// Package custody defines the asset-custody collaborator the ledgers call
// when an operation moves real value. The ledgers only keep the books;
// moving lamports, burning coin and burning collectibles happens behind
// this interface.
package custody

import "errors"

// Asset names a fungible balance custody can move.
type Asset string

const (
	Lamports Asset = "lamports"
	Purge    Asset = "purge"
)

// ErrRefused is returned by custodians that reject a movement. The executor
// reverts the surrounding transaction.
var ErrRefused = errors.New("custody refused transfer")

// Custodian moves assets on behalf of the ledgers. Every call is synchronous
// and must either fully succeed or return an error with no effect.
type Custodian interface {
	// Collect pulls amount of asset from owner into ledger custody.
	Collect(owner string, asset Asset, amount uint64) error
	// Payout releases amount of asset from ledger custody to owner.
	Payout(owner string, asset Asset, amount uint64) error
	// Burn destroys amount of a fungible asset held by owner.
	Burn(owner string, asset Asset, amount uint64) error
	// BurnTokens destroys the listed collectibles held by owner.
	BurnTokens(owner string, tokenIDs []uint64) error
}

// Nop accepts every movement without doing anything. Nodes that settle
// value off-ledger run with it.
type Nop struct{}

func (Nop) Collect(string, Asset, uint64) error { return nil }
func (Nop) Payout(string, Asset, uint64) error  { return nil }
func (Nop) Burn(string, Asset, uint64) error    { return nil }
func (Nop) BurnTokens(string, []uint64) error   { return nil }
