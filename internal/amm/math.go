package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// BpsDenominator is 100% expressed in basis points.
	BpsDenominator uint64 = 10_000

	// PriceScale is the fixed-point scale of the spot price (10^9).
	PriceScale uint64 = 1_000_000_000

	// MaxBaseFeeBps caps the immutable base fee at 10%.
	MaxBaseFeeBps uint64 = 1_000

	// MaxVariableFeeBps caps the volatility component at 5%.
	MaxVariableFeeBps uint64 = 500
)

// All engine formulas multiply two u64 values before dividing, so the
// intermediates are carried in 256 bits and only the final result has to fit
// back into a u64.

func toU64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, fmt.Errorf("%w: result %s exceeds u64", ErrOverflow, x.Dec())
	}
	return x.Uint64(), nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d underflows", ErrOverflow, a, b)
	}
	return a - b, nil
}

// mulDiv returns floor(a*b/d).
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrMath)
	}
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	z.Div(z, uint256.NewInt(d))
	return toU64(z)
}

// mulDivCeil returns ceil(a*b/d).
func mulDivCeil(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrMath)
	}
	den := uint256.NewInt(d)
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	rem := new(uint256.Int).Mod(z, den)
	z.Div(z, den)
	if !rem.IsZero() {
		z.AddUint64(z, 1)
	}
	return toU64(z)
}

// sqrtProduct returns floor(sqrt(a*b)), the geometric mean of a and b.
func sqrtProduct(a, b uint64) uint64 {
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	// sqrt of a 128-bit value always fits in 64 bits
	return z.Sqrt(z).Uint64()
}

// sqrtGrowth returns floor(supply * (sqrt(newReserve/oldReserve) - 1)), the LP
// share owed for growing one side of the pool from oldReserve to newReserve
// while the other side stays put.
func sqrtGrowth(supply, oldReserve, newReserve uint64) (uint64, error) {
	if oldReserve == 0 {
		return 0, fmt.Errorf("%w: zero reserve", ErrMath)
	}
	if newReserve < oldReserve {
		return 0, fmt.Errorf("%w: reserve shrank", ErrMath)
	}
	s := uint256.NewInt(supply)
	old := uint256.NewInt(oldReserve)

	radicand := new(uint256.Int).Mul(uint256.NewInt(newReserve), old)
	s2 := new(uint256.Int).Mul(s, s)
	if _, overflow := radicand.MulOverflow(radicand, s2); overflow {
		return 0, fmt.Errorf("%w: sqrt radicand", ErrOverflow)
	}
	root := new(uint256.Int).Sqrt(radicand)

	base := new(uint256.Int).Mul(old, s)
	if root.Lt(base) {
		return 0, fmt.Errorf("%w: negative growth", ErrMath)
	}
	root.Sub(root, base)
	root.Div(root, old)
	return toU64(root)
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
