package storage

import (
	"fmt"
	"strings"
)

// DB is the generic key-value store interface.
type DB interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	NewBatch() Batch
	Close() error
}

// Iterator walks key-value pairs matching a prefix in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Batch buffers writes that are applied atomically by Write.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Reset()
	Write() error
}

// Backend names accepted by Open.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Open opens the DB backend named by backend at path. An empty backend
// selects LevelDB.
func Open(backend, path string) (DB, error) {
	switch strings.ToLower(backend) {
	case "", BackendLevelDB:
		return NewLevelDB(path)
	case BackendBolt, "bbolt":
		return NewBoltDB(path)
	default:
		return nil, fmt.Errorf("unknown db backend %q", backend)
	}
}
