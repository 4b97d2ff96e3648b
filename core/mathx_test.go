package core_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tolelom/purgeledger/core"
)

// TestSaturatingMath verifies every helper clamps instead of wrapping.
func TestSaturatingMath(t *testing.T) {
	assert.Equal(t, uint64(5), core.SatAdd(2, 3))
	assert.Equal(t, uint64(math.MaxUint64), core.SatAdd(math.MaxUint64, 1))
	assert.Equal(t, uint64(0), core.SatSub(3, 5))
	assert.Equal(t, uint64(2), core.SatSub(5, 3))
	assert.Equal(t, uint64(math.MaxUint64), core.SatMul(math.MaxUint64/2, 3))
	assert.Equal(t, uint64(12), core.SatMul(3, 4))
	assert.Equal(t, uint32(math.MaxUint32), core.SatAdd32(math.MaxUint32, 7))
	assert.Equal(t, uint16(math.MaxUint16), core.SatAdd16(math.MaxUint16-1, 2))
	assert.Equal(t, uint16(9), core.SatAdd16(4, 5))
}

// TestMulDiv verifies the wide intermediate and the zero divisor.
func TestMulDiv(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64/2), core.MulDiv(math.MaxUint64, 5000, 10000))
	assert.Equal(t, uint64(math.MaxUint64), core.MulDiv(math.MaxUint64, 3, 1))
	assert.Zero(t, core.MulDiv(10, 10, 0))
	assert.Equal(t, uint64(47), core.Bps(950, 500))
	assert.Equal(t, uint64(1000), core.Bps(1000, core.BasisPoints))
}
