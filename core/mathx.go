package core

import (
	"math"
	"math/bits"

	"github.com/holiman/uint256"
)

// BasisPoints is the denominator for every *_bps field.
const BasisPoints = 10_000

// SatAdd returns a+b clamped at math.MaxUint64.
func SatAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

// SatSub returns a-b clamped at zero.
func SatSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SatMul returns a*b clamped at math.MaxUint64.
func SatMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// SatAdd32 is SatAdd for uint32 counters.
func SatAdd32(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

// SatAdd16 is SatAdd for uint16 counters.
func SatAdd16(a, b uint16) uint16 {
	if a > math.MaxUint16-b {
		return math.MaxUint16
	}
	return a + b
}

// MulDiv returns amount*mul/div using a 256-bit intermediate, clamped at
// math.MaxUint64. A zero divisor yields zero.
func MulDiv(amount, mul, div uint64) uint64 {
	if div == 0 {
		return 0
	}
	x := uint256.NewInt(amount)
	x.Mul(x, uint256.NewInt(mul))
	x.Div(x, uint256.NewInt(div))
	if !x.IsUint64() {
		return math.MaxUint64
	}
	return x.Uint64()
}

// Bps returns the bps share of amount.
func Bps(amount uint64, bps uint16) uint64 {
	return MulDiv(amount, uint64(bps), BasisPoints)
}
