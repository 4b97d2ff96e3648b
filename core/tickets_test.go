package core_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
)

// TestTicketPageCapacity verifies the 65th push fails and seats keep order.
func TestTicketPageCapacity(t *testing.T) {
	key := core.TicketKey{Level: 3, TraitID: 12, PageIndex: 0}
	var page core.TicketPage
	require.NoError(t, page.EnsureHeader(key))

	for i := range core.TicketPageCapacity {
		pos, err := page.Push(fmt.Sprintf("p%d", i))
		require.NoError(t, err)
		require.Equal(t, uint16(i), pos)
	}
	_, err := page.Push("late")
	require.ErrorIs(t, err, core.ErrTicketPageFull)
	require.Equal(t, uint16(core.TicketPageCapacity), page.Count)
	require.Equal(t, "p0", page.Players()[0])
}

// TestTicketPageHeaderLock verifies a populated page refuses a different key
// and a cleared page can be rebound.
func TestTicketPageHeaderLock(t *testing.T) {
	key := core.TicketKey{Level: 1, TraitID: 2, PageIndex: 3}
	other := core.TicketKey{Level: 1, TraitID: 2, PageIndex: 4}
	var page core.TicketPage
	require.NoError(t, page.EnsureHeader(key))
	_, err := page.Push("alice")
	require.NoError(t, err)

	require.NoError(t, page.EnsureHeader(key))
	require.ErrorIs(t, page.EnsureHeader(other), core.ErrTicketPageMismatch)

	page.Clear()
	assert.Zero(t, page.Count)
	assert.Empty(t, page.Players())
	assert.Equal(t, key, page.Key())
	require.NoError(t, page.EnsureHeader(other))
	assert.Equal(t, other, page.Key())
	assert.Equal(t, "1:2:4", other.String())
}
