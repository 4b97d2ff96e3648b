package vm

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/tolelom/purgeledger/core"
)

// Handler applies one transaction type. It validates first and writes
// after; any returned error reverts the whole transaction.
type Handler func(ctx *Context, payload json.RawMessage) error

// Registry maps TxTypes to Handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[core.TxType]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[core.TxType]Handler)}
}

// Register binds typ to h. An empty type, a nil handler or a second
// registration for typ is a programming error and panics at init.
func (r *Registry) Register(typ core.TxType, h Handler) {
	if typ == "" || h == nil {
		panic("vm: Register needs a tx type and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[typ]; dup {
		panic(fmt.Sprintf("vm: handler already registered for TxType %q", typ))
	}
	r.handlers[typ] = h
}

// Lookup returns the handler for typ.
func (r *Registry) Lookup(typ core.TxType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typ]
	return h, ok
}

// Execute runs the handler registered for typ. Unknown types are invalid
// arguments.
func (r *Registry) Execute(typ core.TxType, ctx *Context, payload json.RawMessage) error {
	h, ok := r.Lookup(typ)
	if !ok {
		return fmt.Errorf("no handler for tx type %q: %w", typ, core.ErrInvalidArgument)
	}
	return h(ctx, payload)
}

// Types returns the registered TxTypes in sorted order.
func (r *Registry) Types() []core.TxType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}

var globalRegistry = NewRegistry()

// Register adds a handler to the process-wide registry. Ledger modules call
// it from init.
func Register(typ core.TxType, h Handler) {
	globalRegistry.Register(typ, h)
}

// Known reports whether any module handles typ.
func Known(typ core.TxType) bool {
	_, ok := globalRegistry.Lookup(typ)
	return ok
}

// RegisteredTypes lists every TxType in the process-wide registry.
func RegisteredTypes() []core.TxType {
	return globalRegistry.Types()
}
