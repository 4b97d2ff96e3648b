package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
)

// TestWorkQueueFIFO verifies strict FIFO order and slot reset on pop.
func TestWorkQueueFIFO(t *testing.T) {
	var q core.WorkQueue[int]
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(i))
	}
	head, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 1, head)
	require.Equal(t, []int{1, 2, 3}, q.Pending())

	for want := 1; want <= 3; want++ {
		got, err := q.Pop()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	assert.Zero(t, q.Items[0])
	_, err := q.Pop()
	require.ErrorIs(t, err, core.ErrQueueEmpty)
	_, ok = q.Peek()
	require.False(t, ok)
}

// TestWorkQueueFullAndWrap verifies the capacity bound and that the monotonic
// counters keep the queue consistent across many wraps.
func TestWorkQueueFullAndWrap(t *testing.T) {
	var q core.WorkQueue[uint64]
	for i := range uint64(core.QueueCapacity) {
		require.NoError(t, q.Push(i))
	}
	require.ErrorIs(t, q.Push(99), core.ErrQueueFull)
	require.Equal(t, uint64(core.QueueCapacity), q.Len())

	next := uint64(0)
	for i := uint64(core.QueueCapacity); i < 10*core.QueueCapacity; i++ {
		got, err := q.Pop()
		require.NoError(t, err)
		require.Equal(t, next, got)
		next++
		require.NoError(t, q.Push(i))
		require.Equal(t, uint64(core.QueueCapacity), q.Len())
	}
	require.Equal(t, uint64(10*core.QueueCapacity), q.Tail)
}
