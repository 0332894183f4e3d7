package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// volatilityState is the part of Pool the fee model reads and advances.
type volatilityState struct {
	Accumulator    uint64
	Reference      uint64
	PriceReference uint64
}

// advanceVolatility ages the volatility reference by the time elapsed since the
// previous swap and folds in the move from the price reference to price.
//
//	elapsed <  filter          keep reference and price reference
//	elapsed <  decay           reference = accumulator * decay_factor / 10000
//	elapsed >= decay           reference = 0
//
// Outside the filter window the price reference moves to price. A zero price
// reference has never been set and is seeded with price.
func advanceVolatility(prev volatilityState, fees FeeParams, elapsed int64, price uint64) (volatilityState, error) {
	if elapsed < 0 {
		elapsed = 0
	}
	next := prev

	switch {
	case elapsed < fees.FilterPeriod:
	case elapsed < fees.DecayPeriod:
		ref, err := mulDiv(prev.Accumulator, fees.DecayFactorBps, BpsDenominator)
		if err != nil {
			return volatilityState{}, err
		}
		next.Reference = ref
		next.PriceReference = price
	default:
		next.Reference = 0
		next.PriceReference = price
	}
	if next.PriceReference == 0 {
		next.PriceReference = price
	}

	move, err := mulDiv(absDiff(price, next.PriceReference), BpsDenominator, max(next.PriceReference, 1))
	if err != nil {
		return volatilityState{}, fmt.Errorf("price volatility: %w", err)
	}
	next.Accumulator, err = checkedAdd(next.Reference, move)
	if err != nil {
		return volatilityState{}, fmt.Errorf("volatility accumulator: %w", err)
	}
	return next, nil
}

// variableFee is min(factor * accumulator^2 / 10000, MaxVariableFeeBps).
func variableFee(factor, accumulator uint64) uint64 {
	v := uint256.NewInt(accumulator)
	v.Mul(v, v)
	v.Mul(v, uint256.NewInt(factor))
	v.Div(v, uint256.NewInt(BpsDenominator))
	if !v.IsUint64() || v.Uint64() > MaxVariableFeeBps {
		return MaxVariableFeeBps
	}
	return v.Uint64()
}
