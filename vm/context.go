package vm

import (
	"encoding/json"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/custody"
	"github.com/tolelom/purgeledger/events"
)

// Context is passed to every Handler and provides access to the chain state,
// the current block, the triggering transaction and the custody collaborator.
// Events raised through Emit are held until the transaction succeeds.
type Context struct {
	State   core.State
	Block   *core.Block
	Tx      *core.Transaction
	Custody custody.Custodian

	pending []events.Event
}

// Caller is the authenticated identity that signed the transaction.
func (c *Context) Caller() string { return c.Tx.From }

// Slot is the ledger clock for this transaction.
func (c *Context) Slot() int64 { return c.Block.Slot() }

// Emit queues an event for delivery once the transaction commits.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	c.pending = append(c.pending, events.Event{
		Type:        typ,
		TxID:        c.Tx.ID,
		BlockHeight: c.Block.Header.Height,
		Data:        data,
	})
}

// Events returns the queued events.
func (c *Context) Events() []events.Event { return c.pending }

// Decode unmarshals a handler payload. Malformed payloads are reported as
// core.ErrInvalidArgument.
func Decode(payload json.RawMessage, out any, what string) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", what, err, core.ErrInvalidArgument)
	}
	return nil
}

// RequireAuthority fails with core.ErrUnauthorized unless the caller is
// authority.
func (c *Context) RequireAuthority(authority, role string) error {
	if c.Caller() != authority {
		return fmt.Errorf("%s required: %w", role, core.ErrUnauthorized)
	}
	return nil
}
