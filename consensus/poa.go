// Package consensus implements Proof-of-Authority block production.
// Validators propose blocks in round-robin order by height. Each block is
// signed by its proposer, and followers check the signature, chain id,
// TxRoot and linkage before accepting it.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tolelom/purgeledger/config"
	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/crypto"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/metrics"
	"github.com/tolelom/purgeledger/vm"
)

const defaultMaxBlockTxs = 500

// Consensus errors.
var (
	ErrNotProposer  = errors.New("not the proposer for this round")
	ErrNoValidators = errors.New("no validators configured")
)

// PoA is the Proof-of-Authority consensus engine.
type PoA struct {
	cfg     *config.Config
	bc      *core.Blockchain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	metrics *metrics.LedgerMetrics
	privKey crypto.PrivateKey
	self    string
	log     *slog.Logger

	// fatal handles a block that was stored but whose state could not be
	// flushed; the node cannot continue safely after it.
	fatal func(error)
}

// New creates a PoA engine for the local validator identified by privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
) *PoA {
	p := &PoA{
		cfg:     cfg,
		bc:      bc,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		self:    privKey.Public().Hex(),
		log:     slog.Default().With("component", "consensus"),
	}
	p.fatal = func(error) { os.Exit(1) }
	return p
}

// SetMetrics attaches m; block height and size are observed on commit.
func (p *PoA) SetMetrics(m *metrics.LedgerMetrics) {
	p.metrics = m
}

// proposerAt returns the validator scheduled for height.
func (p *PoA) proposerAt(height int64) (string, error) {
	n := int64(len(p.cfg.Validators))
	if n == 0 {
		return "", ErrNoValidators
	}
	return p.cfg.Validators[height%n], nil
}

// IsProposer reports whether this node should propose the next block.
func (p *PoA) IsProposer() bool {
	who, err := p.proposerAt(p.bc.Height() + 1)
	return err == nil && who == p.self
}

// ProduceBlock executes pending transactions into the next block, then
// signs, stores and commits it. A transaction that fails is rolled back by
// the executor, left out of the block and dropped from the mempool, so one
// rejected operation never stalls the chain.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	if !p.IsProposer() {
		return nil, ErrNotProposer
	}
	limit := p.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = defaultMaxBlockTxs
	}
	pending := p.mempool.Pending(limit)

	block := p.nextBlock()
	block.Transactions = p.apply(block, pending)
	block.Header.TxRoot = core.ComputeTxRoot(block.Transactions)

	if err := p.commit(block); err != nil {
		return nil, err
	}

	ids := make([]string, len(pending))
	for i, tx := range pending {
		ids[i] = tx.ID
	}
	p.mempool.Remove(ids)
	return block, nil
}

// nextBlock returns an empty block on top of the tip.
func (p *PoA) nextBlock() *core.Block {
	prevHash, height := config.GenesisHash, int64(1)
	if tip := p.bc.Tip(); tip != nil {
		prevHash, height = tip.Hash, tip.Header.Height+1
	}
	block := core.NewBlock(height, prevHash, p.self, nil)
	block.Header.ChainID = p.cfg.Genesis.ChainID
	return block
}

// apply runs txs against block and returns the ones that succeeded.
func (p *PoA) apply(block *core.Block, txs []*core.Transaction) []*core.Transaction {
	included := make([]*core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := p.exec.ExecuteTx(block, tx); err != nil {
			p.log.Debug("dropping tx",
				"height", block.Header.Height,
				"tx", tx.ID,
				"type", string(tx.Type),
				"class", string(core.Classify(err)),
				"err", err)
			continue
		}
		included = append(included, tx)
	}
	return included
}

// commit seals block over the buffered state, stores it, then flushes the
// state. The root is computed before the flush so a failed AddBlock leaves
// nothing persisted.
func (p *PoA) commit(block *core.Block) error {
	block.Header.StateRoot = p.state.ComputeRoot()
	block.Sign(p.privKey)

	if err := p.bc.AddBlock(block); err != nil {
		return fmt.Errorf("add block: %w", err)
	}
	if err := p.state.Commit(); err != nil {
		p.log.Error("block stored but state commit failed", "height", block.Header.Height, "err", err)
		p.fatal(err)
	}

	p.emitter.Emit(events.Event{
		Type:        events.EventBlockCommit,
		BlockHeight: block.Header.Height,
		Data:        map[string]any{"hash": block.Hash, "txs": len(block.Transactions)},
	})
	p.exec.ObserveState()
	p.metrics.ObserveBlock(block.Header.Height, len(block.Transactions))
	p.log.Info("block committed", "height", block.Header.Height, "txs", len(block.Transactions), "hash", block.Hash)
	return nil
}

// ValidateBlock checks a block proposed elsewhere before it is replayed.
func (p *PoA) ValidateBlock(block *core.Block) error {
	expected, err := p.proposerAt(block.Header.Height)
	if err != nil {
		return err
	}
	if block.Header.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer, expected)
	}
	pub, err := crypto.PubKeyFromHex(block.Header.Proposer)
	if err != nil {
		return fmt.Errorf("invalid proposer pubkey: %w", err)
	}
	if err := block.Verify(pub); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}
	if block.Header.ChainID != p.cfg.Genesis.ChainID {
		return fmt.Errorf("chain id %q, want %q", block.Header.ChainID, p.cfg.Genesis.ChainID)
	}
	if block.Header.TxRoot != core.ComputeTxRoot(block.Transactions) {
		return errors.New("tx root mismatch")
	}
	if p.bc.Tip() == nil && !config.IsGenesisHash(block.Header.PrevHash) {
		return errors.New("first block must reference genesis prev-hash")
	}
	return p.bc.CheckNext(block)
}

// Run produces a block every interval while this node is the proposer. It
// returns when ctx is done.
func (p *PoA) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.IsProposer() {
				continue
			}
			if _, err := p.ProduceBlock(); err != nil {
				p.log.Warn("produce block", "err", err)
			}
		}
	}
}
