package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
)

// TestStakeAllocation verifies lanes merge by tier, fill in order and free
// up once drained.
func TestStakeAllocation(t *testing.T) {
	var s core.StakeAllocation

	lane, err := s.Allocate(1, 10, 100)
	require.NoError(t, err)
	require.Equal(t, 0, lane)
	lane, err = s.Allocate(1, 10, 50)
	require.NoError(t, err)
	require.Equal(t, 0, lane)
	require.Equal(t, uint64(150), s.Lanes[0].Principal)

	_, err = s.Allocate(2, 10, 1)
	require.NoError(t, err)
	_, err = s.Allocate(3, 10, 1)
	require.NoError(t, err)
	_, err = s.Allocate(4, 10, 1)
	require.ErrorIs(t, err, core.ErrStakeLanesFull)

	s.Release(1, 10, 500)
	require.Equal(t, core.StakeLane{}, s.Lanes[0])
	lane, err = s.Allocate(4, 10, 1)
	require.NoError(t, err)
	require.Equal(t, 0, lane)
}

// TestAllocateRejectsZeroPrincipal verifies an empty stake never claims a
// lane it would not occupy.
func TestAllocateRejectsZeroPrincipal(t *testing.T) {
	var s core.StakeAllocation
	_, err := s.Allocate(1, 10, 0)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	require.Equal(t, core.StakeAllocation{}, s)
}
