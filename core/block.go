package core

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/tolelom/purgeledger/crypto"
)

// BlockHeader is the hashed and signed part of a block.
type BlockHeader struct {
	ChainID   string `json:"chain_id,omitempty"`
	Height    int64  `json:"height"`
	PrevHash  string `json:"prev_hash"`
	StateRoot string `json:"state_root"` // root after executing the block
	TxRoot    string `json:"tx_root"`
	Timestamp int64  `json:"timestamp"`
	Proposer  string `json:"proposer"` // pubkey hex
}

// Block is an ordered batch of transactions under a signed header. Its
// height is the ledger clock ("slot") for every operation it carries.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
	Hash         string         `json:"hash"`
	Signature    string         `json:"signature"`
}

// ErrBlockHash is returned by Verify when Hash does not match the header.
var ErrBlockHash = errors.New("block hash does not match header")

// ComputeHash hashes the serialised header.
func (b *Block) ComputeHash() string {
	data, err := json.Marshal(b.Header)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign seals the header: it sets Hash and signs it with the proposer key.
func (b *Block) Sign(priv crypto.PrivateKey) {
	b.Hash = b.ComputeHash()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// Verify recomputes the header hash and checks the proposer signature.
func (b *Block) Verify(pub crypto.PublicKey) error {
	if b.Hash != b.ComputeHash() {
		return ErrBlockHash
	}
	return crypto.Verify(pub, []byte(b.Hash), b.Signature)
}

// Slot is the ledger clock value recorded by operations executed in b.
func (b *Block) Slot() int64 {
	return b.Header.Height
}

// ComputeTxRoot commits to the ordered transaction ids. Ids are fixed
// width hex, so plain concatenation is unambiguous.
func ComputeTxRoot(txs []*Transaction) string {
	ids := make([]byte, 0, 64*len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID...)
	}
	return crypto.Hash(ids)
}

// NewBlock creates an unsigned block over txs.
func NewBlock(height int64, prevHash, proposer string, txs []*Transaction) *Block {
	return &Block{
		Header: BlockHeader{
			Height:    height,
			PrevHash:  prevHash,
			TxRoot:    ComputeTxRoot(txs),
			Timestamp: time.Now().UnixNano(),
			Proposer:  proposer,
		},
		Transactions: txs,
	}
}
