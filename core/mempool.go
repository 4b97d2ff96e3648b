package core

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

const (
	maxMempoolSize = 10_000
	maxTxAge       = int64(time.Hour)       // reject txs older than 1 hour
	maxTxFuture    = int64(5 * time.Minute) // reject txs more than 5 min in the future
)

// Mempool admission errors.
var (
	ErrWrongChain  = errors.New("transaction signed for a different chain")
	ErrMempoolFull = errors.New("mempool full")
	ErrDuplicateTx = errors.New("tx already in pool")
	ErrTxExpired   = errors.New("transaction timestamp outside the accepted window")
)

// Mempool is a thread-safe pending-transaction pool.
type Mempool struct {
	mu      sync.RWMutex
	chainID string
	txs     map[string]*Transaction
	ord     []string // insertion-ordered IDs for deterministic pending iteration
}

// NewMempool creates an empty mempool that only admits transactions signed
// for chainID. An empty chainID admits any chain.
func NewMempool(chainID string) *Mempool {
	return &Mempool{chainID: chainID, txs: make(map[string]*Transaction)}
}

// Add validates and inserts tx. Chain id, signature, the -1h/+5min
// timestamp window, capacity and duplicates are checked in that order.
func (m *Mempool) Add(tx *Transaction) error {
	if m.chainID != "" && tx.ChainID != m.chainID {
		return fmt.Errorf("%w: got %q", ErrWrongChain, tx.ChainID)
	}
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("invalid tx signature: %w", err)
	}
	now := time.Now().UnixNano()
	if now-tx.Timestamp > maxTxAge || tx.Timestamp-now > maxTxFuture {
		return ErrTxExpired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) >= maxMempoolSize {
		return ErrMempoolFull
	}
	if _, exists := m.txs[tx.ID]; exists {
		return ErrDuplicateTx
	}
	m.txs[tx.ID] = tx
	m.ord = append(m.ord, tx.ID)
	return nil
}

// Get returns a transaction by ID.
func (m *Mempool) Get(id string) (*Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	return tx, ok
}

// Pending returns up to n pending transactions. Senders appear in the
// order their first transaction arrived and each sender's transactions
// are ordered by nonce, so a later-arriving lower nonce is never starved.
func (m *Mempool) Pending(n int) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	first := make(map[string]int)
	all := make([]*Transaction, 0, len(m.ord))
	for _, id := range m.ord {
		tx, ok := m.txs[id]
		if !ok {
			continue
		}
		if _, seen := first[tx.From]; !seen {
			first[tx.From] = len(first)
		}
		all = append(all, tx)
	}
	slices.SortStableFunc(all, func(a, b *Transaction) int {
		return cmp.Or(cmp.Compare(first[a.From], first[b.From]), cmp.Compare(a.Nonce, b.Nonce))
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Remove deletes transactions by ID (called after block commit).
func (m *Mempool) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		delete(m.txs, id)
		removed[id] = true
	}
	filtered := m.ord[:0]
	for _, id := range m.ord {
		if !removed[id] {
			filtered = append(filtered, id)
		}
	}
	m.ord = filtered
}

// Size returns the current number of pending transactions.
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
