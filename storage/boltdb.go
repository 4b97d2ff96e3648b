package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tolelom/purgeledger/core"
)

const boltBucket = "ledger"

// BoltDB implements DB on a single bbolt bucket. Keys keep the same
// prefix layout as the LevelDB backend so StateDB and BlockStore work
// unchanged on either.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) a bbolt file. A directory path gets a
// ledger.db file inside it.
func NewBoltDB(path string) (*BoltDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) == "" {
		clean = filepath.Join(clean, "ledger.db")
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}
	db, err := bbolt.Open(clean, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", clean, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get(key)
		if v == nil {
			return core.ErrNotFound
		}
		// Values are only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (b *BoltDB) Set(key, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put(key, value)
	})
}

func (b *BoltDB) Delete(key []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Delete(key)
	})
}

// NewIterator snapshots the matching pairs in one read transaction so the
// iterator holds no open bolt transaction.
func (b *BoltDB) NewIterator(prefix []byte) Iterator {
	it := &sliceIterator{idx: -1}
	it.err = b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(boltBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			it.keys = append(it.keys, append([]byte(nil), k...))
			it.vals = append(it.vals, append([]byte(nil), v...))
		}
		return nil
	})
	return it
}

func (b *BoltDB) NewBatch() Batch {
	return &boltBatch{db: b.db}
}

func (b *BoltDB) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

type boltOp struct {
	key   []byte
	value []byte // nil means delete
}

// boltBatch replays its buffered ops inside a single Update.
type boltBatch struct {
	db  *bbolt.DB
	ops []boltOp
}

func (bb *boltBatch) Set(key, value []byte) {
	bb.ops = append(bb.ops, boltOp{
		key:   append([]byte(nil), key...),
		value: append([]byte{}, value...),
	})
}

func (bb *boltBatch) Delete(key []byte) {
	bb.ops = append(bb.ops, boltOp{key: append([]byte(nil), key...)})
}

func (bb *boltBatch) Reset() { bb.ops = nil }

func (bb *boltBatch) Write() error {
	err := bb.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		for _, op := range bb.ops {
			var err error
			if op.value == nil {
				err = bucket.Delete(op.key)
			} else {
				err = bucket.Put(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt write batch: %w", err)
	}
	return nil
}

// sliceIterator walks pairs collected up front.
type sliceIterator struct {
	keys [][]byte
	vals [][]byte
	idx  int
	err  error
}

func (it *sliceIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.idx++
	return it.idx < len(it.keys)
}

func (it *sliceIterator) Key() []byte   { return it.keys[it.idx] }
func (it *sliceIterator) Value() []byte { return it.vals[it.idx] }
func (it *sliceIterator) Release()      { it.keys, it.vals = nil, nil }
func (it *sliceIterator) Error() error  { return it.err }
