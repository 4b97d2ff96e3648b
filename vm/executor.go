package vm

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/metrics"
)

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	state   core.State
	emitter *events.Emitter
	custody custody.Custodian
	metrics *metrics.LedgerMetrics
}

// NewExecutor creates an Executor with the given state, event emitter and
// custody collaborator. A nil custodian accepts every movement.
func NewExecutor(state core.State, emitter *events.Emitter, custodian custody.Custodian) *Executor {
	if custodian == nil {
		custodian = custody.Nop{}
	}
	return &Executor{state: state, emitter: emitter, custody: custodian}
}

// SetMetrics attaches m; nil disables instrumentation.
func (e *Executor) SetMetrics(m *metrics.LedgerMetrics) {
	e.metrics = m
}

// ExecuteBlock applies all transactions in block sequentially.
// A failing transaction causes the whole block to be rejected. This is the
// replay path for blocks produced elsewhere; the local producer drops
// failing transactions instead.
// EventBlockCommit is emitted by the caller (consensus) after signing so
// the event carries the correct block hash.
func (e *Executor) ExecuteBlock(block *core.Block) error {
	for _, tx := range block.Transactions {
		if err := e.ExecuteTx(block, tx); err != nil {
			return fmt.Errorf("tx %s failed: %w", tx.ID, err)
		}
	}
	return nil
}

// ExecuteTx verifies and executes a single transaction with snapshot/rollback.
// Either every write and every event of the transaction lands, or none do.
func (e *Executor) ExecuteTx(block *core.Block, tx *core.Transaction) error {
	if err := tx.Verify(); err != nil {
		err = fmt.Errorf("signature: %v: %w", err, core.ErrUnauthorized)
		e.reject(block, tx, err)
		return err
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	ctx, err := e.applyTx(block, tx)
	if err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		e.reject(block, tx, err)
		return err
	}

	e.metrics.ObserveTx(string(tx.Type), string(core.ClassNone))
	if e.emitter != nil {
		for _, ev := range ctx.Events() {
			e.emitter.Emit(ev)
		}
		e.emitter.Emit(events.Event{
			Type:        events.EventTxExecuted,
			TxID:        tx.ID,
			BlockHeight: block.Header.Height,
			Data:        map[string]any{"type": string(tx.Type), "from": tx.From},
		})
	}
	return nil
}

func (e *Executor) reject(block *core.Block, tx *core.Transaction, err error) {
	class := core.Classify(err)
	e.metrics.ObserveTx(string(tx.Type), string(class))
	slog.Debug("tx rejected", "component", "vm", "tx", tx.ID, "type", string(tx.Type), "class", string(class), "err", err)
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Event{
		Type:        events.EventTxRejected,
		TxID:        tx.ID,
		BlockHeight: block.Header.Height,
		Data: map[string]any{
			"type":  string(tx.Type),
			"from":  tx.From,
			"class": string(class),
			"error": err.Error(),
		},
	})
}

// applyTx deducts the fee, increments the nonce, then dispatches to the handler.
func (e *Executor) applyTx(block *core.Block, tx *core.Transaction) (*Context, error) {
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return nil, fmt.Errorf("invalid nonce: expected %d got %d: %w", acc.Nonce, tx.Nonce, core.ErrInvalidArgument)
	}
	if acc.Balance < tx.Fee {
		return nil, fmt.Errorf("insufficient balance for fee: have %d need %d: %w", acc.Balance, tx.Fee, core.ErrInvalidArgument)
	}
	if acc.Nonce == math.MaxUint64 {
		return nil, fmt.Errorf("nonce overflow for account %s", tx.From)
	}
	acc.Balance -= tx.Fee
	acc.Nonce++
	if err := e.state.SetAccount(acc); err != nil {
		return nil, err
	}

	ctx := &Context{
		State:   e.state,
		Block:   block,
		Tx:      tx,
		Custody: e.custody,
	}
	if err := globalRegistry.Execute(tx.Type, ctx, tx.Payload); err != nil {
		return nil, err
	}
	return ctx, nil
}

// ObserveState publishes the ledgers' headline counters to the attached
// metrics. Ledgers that are not initialized yet are skipped.
func (e *Executor) ObserveState() {
	if e.metrics == nil {
		return
	}
	if gs, err := e.state.GetGameState(); err == nil {
		e.metrics.SetLevel(gs.Level)
		e.metrics.SetRngLocked(gs.RngLocked)
		e.metrics.SetQueueLen("map_mint", uint64(gs.MapQueueLen))
		e.metrics.SetPool("prize_pool", gs.PrizePool)
		e.metrics.SetPool("next_prize_pool", gs.NextPrizePool)
		e.metrics.SetPool("coin_prize_pool", gs.CoinPrizePool)
	}
	if es, err := e.state.GetEconomyState(); err == nil {
		e.metrics.SetPool("jackpot_pool_purge", es.JackpotPoolPurge)
		e.metrics.SetPool("jackpot_pool_sol", es.JackpotPoolSol)
	}
	if rs, err := e.state.GetRewardsState(); err == nil {
		e.metrics.SetQueueLen("map_reward", uint64(rs.MapQueueLen))
	}
	if v, err := e.state.GetTrophyVault(); err == nil {
		e.metrics.SetPool("trophy_pending", v.PendingAmount)
	}
}
