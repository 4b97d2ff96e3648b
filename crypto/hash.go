// Package crypto holds the node's hashing and ed25519 signing primitives.
package crypto

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hash returns the BLAKE3-256 digest of data as lowercase hex. Transaction
// ids, block hashes and the state root all use it.
func Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashBytes is Hash without the hex encoding.
func HashBytes(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}
