package economy

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/events"
	"github.com/tolelom/purgeledger/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
}

// handleTransfer moves native fee tokens between accounts. Unlike the
// ledger balances, native balances are exact: an overdraft is rejected.
func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := vm.Decode(payload, &p, "transfer"); err != nil {
		return err
	}
	if p.Amount == 0 {
		return fmt.Errorf("transfer amount must be > 0: %w", core.ErrInvalidArgument)
	}
	if p.To == "" {
		return fmt.Errorf("transfer to address required: %w", core.ErrInvalidArgument)
	}

	sender, err := ctx.State.GetAccount(ctx.Caller())
	if err != nil {
		return err
	}
	if sender.Balance < p.Amount {
		return fmt.Errorf("insufficient balance: have %d, need %d: %w", sender.Balance, p.Amount, core.ErrInvalidArgument)
	}
	sender.Balance -= p.Amount
	if err := ctx.State.SetAccount(sender); err != nil {
		return err
	}

	recipient, err := ctx.State.GetAccount(p.To)
	if err != nil {
		return err
	}
	recipient.Balance = core.SatAdd(recipient.Balance, p.Amount)
	if err := ctx.State.SetAccount(recipient); err != nil {
		return err
	}

	ctx.Emit(events.EventTokenTransfer, map[string]any{
		"from":   ctx.Caller(),
		"to":     p.To,
		"amount": p.Amount,
	})
	return nil
}
