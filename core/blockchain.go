package core

import (
	"errors"
	"fmt"
	"sync"
)

// MaxBlockRange caps the number of blocks Range returns.
const MaxBlockRange = 100

// ErrBadLink is returned for a block that does not extend the tip.
var ErrBadLink = errors.New("block does not extend the tip")

// BlockStore is the persistence interface used by Blockchain.
// Implementations live in the storage package.
type BlockStore interface {
	GetBlock(hash string) (*Block, error)
	PutBlock(block *Block) error
	GetBlockByHeight(height int64) (*Block, error)
	PutBlockByHeight(height int64, hash string) error
	// GetTip returns the current tip hash, or ("", nil) for a fresh chain.
	GetTip() (string, error)
	SetTip(hash string) error
	// CommitBlock atomically writes the block, its height index entry and
	// the tip pointer.
	CommitBlock(block *Block) error
}

// Blockchain tracks the canonical tip over a BlockStore. The tip is the
// only in-memory state; everything else is read through the store.
type Blockchain struct {
	mu    sync.RWMutex
	store BlockStore
	tip   *Block
}

// NewBlockchain returns a Blockchain backed by store. Init loads a
// persisted tip.
func NewBlockchain(store BlockStore) *Blockchain {
	return &Blockchain{store: store}
}

// Init loads the persisted tip. A fresh store leaves the chain empty.
func (bc *Blockchain) Init() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tipHash, err := bc.store.GetTip()
	if err != nil {
		return fmt.Errorf("get tip: %w", err)
	}
	if tipHash == "" {
		return nil
	}
	tip, err := bc.store.GetBlock(tipHash)
	if err != nil {
		return fmt.Errorf("load tip block %s: %w", tipHash, err)
	}
	bc.tip = tip
	return nil
}

// extends checks that b sits directly on top of tip. Any block extends an
// empty chain.
func extends(tip, b *Block) error {
	if tip == nil {
		return nil
	}
	if want := tip.Header.Height + 1; b.Header.Height != want {
		return fmt.Errorf("%w: height %d, want %d", ErrBadLink, b.Header.Height, want)
	}
	if b.Header.PrevHash != tip.Hash {
		return fmt.Errorf("%w: prev_hash %s, want %s", ErrBadLink, b.Header.PrevHash, tip.Hash)
	}
	return nil
}

// CheckNext reports whether b could be appended right now.
func (bc *Blockchain) CheckNext(b *Block) error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return extends(bc.tip, b)
}

// AddBlock appends block after checking its linkage, then persists it and
// advances the tip.
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if err := extends(bc.tip, block); err != nil {
		return err
	}
	if err := bc.store.CommitBlock(block); err != nil {
		return fmt.Errorf("commit block %d: %w", block.Header.Height, err)
	}
	bc.tip = block
	return nil
}

// GetBlock returns a block by its hash.
func (bc *Blockchain) GetBlock(hash string) (*Block, error) {
	return bc.store.GetBlock(hash)
}

// GetBlockByHeight returns the block at the given height.
func (bc *Blockchain) GetBlockByHeight(height int64) (*Block, error) {
	return bc.store.GetBlockByHeight(height)
}

// Range returns up to limit consecutive blocks starting at height from,
// stopping at the tip. limit is clamped to [1, MaxBlockRange]. An empty
// chain yields no blocks.
func (bc *Blockchain) Range(from int64, limit int) ([]*Block, error) {
	if from < 0 {
		return nil, fmt.Errorf("negative height %d: %w", from, ErrInvalidArgument)
	}
	limit = max(1, min(limit, MaxBlockRange))
	if bc.Tip() == nil {
		return nil, nil
	}
	top := bc.Height()
	var out []*Block
	for h := from; h <= top && len(out) < limit; h++ {
		b, err := bc.store.GetBlockByHeight(h)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", h, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Tip returns the current chain tip, or nil for a fresh chain.
func (bc *Blockchain) Tip() *Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.tip
}

// Height returns the height of the current tip (0 for a fresh chain).
func (bc *Blockchain) Height() int64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if bc.tip == nil {
		return 0
	}
	return bc.tip.Header.Height
}
