package testutil

import (
	"sync"
	"testing"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/storage"
	"github.com/tolelom/purgeledger/vm"
	"github.com/tolelom/purgeledger/wallet"
)

// ChainID is the chain id used by Harness transactions.
const ChainID = "purge-test"

// Harness drives ledger handlers end to end: every Exec signs a transaction,
// wraps it in a fresh block one height above the previous one and runs it
// through the executor. Handler packages must be imported by the test for
// their init registration.
type Harness struct {
	t        testing.TB
	State    *storage.StateDB
	Emitter  *events.Emitter
	Custody  *custody.Recorder
	Executor *vm.Executor

	mu     sync.Mutex
	height int64
	events []events.Event
}

// NewHarness returns a Harness over an empty in-memory state.
func NewHarness(t testing.TB) *Harness {
	t.Helper()
	h := &Harness{
		t:       t,
		State:   NewStateDB(),
		Emitter: events.NewEmitter(),
		Custody: custody.NewRecorder(),
	}
	h.Executor = vm.NewExecutor(h.State, h.Emitter, h.Custody)
	h.Emitter.SubscribeAll(func(ev events.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	})
	return h
}

// NewWallet returns a freshly generated wallet.
func (h *Harness) NewWallet() *wallet.Wallet {
	h.t.Helper()
	w, err := wallet.Generate()
	if err != nil {
		h.t.Fatalf("generate wallet: %v", err)
	}
	return w
}

// Height is the height of the last executed block.
func (h *Harness) Height() int64 { return h.height }

// Exec signs payload as typ from w with the account's current nonce and
// executes it in the next block.
func (h *Harness) Exec(w *wallet.Wallet, typ core.TxType, payload any) error {
	h.t.Helper()
	acc, err := h.State.GetAccount(w.PubKey())
	if err != nil {
		h.t.Fatalf("get account: %v", err)
	}
	tx, err := w.NewTx(ChainID, typ, acc.Nonce, 0, payload)
	if err != nil {
		h.t.Fatalf("build tx: %v", err)
	}
	h.height++
	block := core.NewBlock(h.height, "", w.PubKey(), []*core.Transaction{tx})
	return h.Executor.ExecuteTx(block, tx)
}

// MustExec is Exec that fails the test on error.
func (h *Harness) MustExec(w *wallet.Wallet, typ core.TxType, payload any) {
	h.t.Helper()
	if err := h.Exec(w, typ, payload); err != nil {
		h.t.Fatalf("%s: %v", typ, err)
	}
}

// Events returns the delivered events of type typ in emission order.
func (h *Harness) Events(typ events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.Event
	for _, ev := range h.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// EventCount returns the number of delivered events of every type.
func (h *Harness) EventCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
