package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tolelom/purgeledger/core"
)

// TestMapPayout verifies explicit amounts win and the minimum only applies
// when the pool covers it.
func TestMapPayout(t *testing.T) {
	rs := &core.RewardsState{MapRewardBps: 500, MapRewardMinimum: 10}

	assert.Equal(t, uint64(70), mapPayout(core.MapRewardEntry{AmountLamports: 70}, 0, rs))
	assert.Equal(t, uint64(50), mapPayout(core.MapRewardEntry{}, 1000, rs))
	assert.Equal(t, uint64(10), mapPayout(core.MapRewardEntry{}, 100, rs))
	assert.Equal(t, uint64(0), mapPayout(core.MapRewardEntry{}, 8, rs))
}

// TestMintCost verifies per-kind pricing saturates instead of wrapping.
func TestMintCost(t *testing.T) {
	cfg := core.GameConfig{PriceLamports: 1 << 63, PricePurge: 3}

	sol, purge, err := mintCost(cfg, 4, core.MintPayment{Kind: core.PaySol})
	assert.NoError(t, err)
	assert.Equal(t, ^uint64(0), sol)
	assert.Zero(t, purge)

	_, purge, err = mintCost(cfg, 4, core.MintPayment{Kind: core.PayPurge})
	assert.NoError(t, err)
	assert.Equal(t, uint64(12), purge)

	_, _, err = mintCost(cfg, 1, core.MintPayment{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
