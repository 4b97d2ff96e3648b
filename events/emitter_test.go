package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tolelom/purgeledger/events"
)

// TestEmitOrder verifies typed subscribers run before catch-all ones and
// that a panicking handler does not stop delivery.
func TestEmitOrder(t *testing.T) {
	e := events.NewEmitter()
	var got []string
	e.SubscribeAll(func(ev events.Event) { got = append(got, "all:"+string(ev.Type)) })
	e.Subscribe(events.EventBlockCommit, func(events.Event) { panic("subscriber bug") })
	e.Subscribe(events.EventBlockCommit, func(events.Event) { got = append(got, "typed") })

	e.Emit(events.Event{Type: events.EventBlockCommit})
	e.Emit(events.Event{Type: events.EventTxExecuted})

	assert.Equal(t, []string{"typed", "all:block_commit", "all:tx_executed"}, got)
}
