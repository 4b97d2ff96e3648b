package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tolelom/purgeledger/core"
)

// TestClassify verifies wrapped sentinels map onto their class.
func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want core.ErrorClass
	}{
		{nil, core.ClassNone},
		{fmt.Errorf("caller: %w", core.ErrUnauthorized), core.ClassAuthorization},
		{fmt.Errorf("phase: %w", core.ErrPhaseMismatch), core.ClassPrecondition},
		{core.ErrRngStale, core.ClassPrecondition},
		{fmt.Errorf("queue: %w", core.ErrQueueFull), core.ClassCapacity},
		{core.ErrStakeLanesFull, core.ClassCapacity},
		{fmt.Errorf("vault: %w", core.ErrLevelAlreadySettled), core.ClassSettlement},
		{core.ErrNotFound, core.ClassNotFound},
		{errors.New("disk on fire"), core.ClassInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, core.Classify(tc.err), "%v", tc.err)
	}
}
