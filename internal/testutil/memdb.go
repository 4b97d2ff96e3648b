// Package testutil provides in-memory storage and an executor harness for
// tests across the module. Never import this in production code.
package testutil

import (
	"slices"
	"strings"
	"sync"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/storage"
)

// MemDB is a thread-safe in-memory storage.DB.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.DB = (*MemDB)(nil)

// NewMemDB creates an empty MemDB.
func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[string(key)]; ok {
		return slices.Clone(v), nil
	}
	return nil, core.ErrNotFound
}

func (m *MemDB) Set(key, value []byte) error {
	m.apply([]op{{key: string(key), value: slices.Clone(value)}})
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.apply([]op{{key: string(key), del: true}})
	return nil
}

func (m *MemDB) apply(ops []op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range ops {
		if o.del {
			delete(m.data, o.key)
			continue
		}
		m.data[o.key] = o.value
	}
}

// NewIterator walks a sorted copy of the keys under prefix taken at call
// time; later writes are not observed.
func (m *MemDB) NewIterator(prefix []byte) storage.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it := &memIter{idx: -1}
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			it.keys = append(it.keys, k)
		}
	}
	slices.Sort(it.keys)
	it.vals = make([][]byte, len(it.keys))
	for i, k := range it.keys {
		it.vals[i] = slices.Clone(m.data[k])
	}
	return it
}

func (m *MemDB) NewBatch() storage.Batch { return &memBatch{db: m} }

func (m *MemDB) Close() error { return nil }

type op struct {
	key   string
	value []byte
	del   bool
}

type memBatch struct {
	db  *MemDB
	ops []op
}

func (b *memBatch) Set(key, value []byte) {
	b.ops = append(b.ops, op{key: string(key), value: slices.Clone(value)})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, op{key: string(key), del: true})
}

func (b *memBatch) Reset() { b.ops = nil }

func (b *memBatch) Write() error {
	b.db.apply(b.ops)
	b.ops = nil
	return nil
}

type memIter struct {
	keys []string
	vals [][]byte
	idx  int
}

func (it *memIter) Next() bool    { it.idx++; return it.idx < len(it.keys) }
func (it *memIter) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIter) Value() []byte { return it.vals[it.idx] }
func (it *memIter) Release()      {}
func (it *memIter) Error() error  { return nil }

// NewMemBlockStore returns the production block store over a fresh MemDB.
func NewMemBlockStore() *storage.BlockStore {
	return storage.NewBlockStore(NewMemDB())
}

// NewStateDB returns a StateDB over a fresh MemDB.
func NewStateDB() *storage.StateDB {
	return storage.NewStateDB(NewMemDB())
}
