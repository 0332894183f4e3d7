package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// SwapParams describes an exact-input swap. The direction follows the mint held
// by Source; Destination must hold the other pool mint.
type SwapParams struct {
	User         solana.PublicKey `json:"user"`
	Source       solana.PublicKey `json:"source"`
	Destination  solana.PublicKey `json:"destination"`
	AmountIn     uint64           `json:"amount_in"`
	MinAmountOut uint64           `json:"min_amount_out"`
}

// SwapQuote is the priced outcome of a swap.
type SwapQuote struct {
	MintIn                solana.PublicKey `json:"mint_in"`
	MintOut               solana.PublicKey `json:"mint_out"`
	AmountIn              uint64           `json:"amount_in"`
	AmountOut             uint64           `json:"amount_out"`
	FeeAmount             uint64           `json:"fee_amount"`
	BaseFeeBps            uint64           `json:"base_fee_bps"`
	VariableFeeBps        uint64           `json:"variable_fee_bps"`
	TotalFeeBps           uint64           `json:"total_fee_bps"`
	VolatilityAccumulator uint64           `json:"volatility_accumulator"`
	Price                 uint64           `json:"price"`
	ReserveIn             uint64           `json:"reserve_in"`
	ReserveOut            uint64           `json:"reserve_out"`
	Timestamp             int64            `json:"timestamp"`

	aToB       bool
	volatility volatilityState
}

// priceSwap runs the fee model and the constant-product curve against the
// given reserves without touching any state.
func priceSwap(p *Pool, now int64, aToB bool, amountIn, reserveIn, reserveOut uint64) (*SwapQuote, error) {
	if amountIn == 0 {
		return nil, fmt.Errorf("%w: zero amount in", ErrInvalidInput)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return nil, fmt.Errorf("%w: empty reserve", ErrInsufficientLiquidity)
	}

	price, err := mulDiv(reserveOut, PriceScale, reserveIn)
	if err != nil {
		return nil, fmt.Errorf("current price: %w", err)
	}

	vol, err := advanceVolatility(volatilityState{
		Accumulator:    p.VolatilityAccumulator,
		Reference:      p.VolatilityReference,
		PriceReference: p.LastPriceReference,
	}, p.FeeParams, now-p.LastSwapTimestamp, price)
	if err != nil {
		return nil, err
	}

	variable := variableFee(p.VariableFactor, vol.Accumulator)
	totalFee := p.BaseFeeBps + variable
	fee, err := mulDiv(amountIn, totalFee, BpsDenominator)
	if err != nil {
		return nil, fmt.Errorf("fee amount: %w", err)
	}
	inWithFee := amountIn - fee

	newIn, err := checkedAdd(reserveIn, inWithFee)
	if err != nil {
		return nil, fmt.Errorf("new reserve in: %w", err)
	}
	// Rounding the post-trade reserve up keeps new_in * new_out >= k.
	newOut, err := mulDivCeil(reserveIn, reserveOut, newIn)
	if err != nil {
		return nil, fmt.Errorf("%w: new reserve out: %v", ErrInsufficientLiquidity, err)
	}
	out, err := checkedSub(reserveOut, newOut)
	if err != nil {
		return nil, fmt.Errorf("%w: amount out: %v", ErrMath, err)
	}
	if out == 0 {
		return nil, fmt.Errorf("%w: output rounds to zero", ErrInsufficientLiquidity)
	}

	q := &SwapQuote{
		AmountIn:              amountIn,
		AmountOut:             out,
		FeeAmount:             fee,
		BaseFeeBps:            p.BaseFeeBps,
		VariableFeeBps:        variable,
		TotalFeeBps:           totalFee,
		VolatilityAccumulator: vol.Accumulator,
		Price:                 price,
		ReserveIn:             reserveIn,
		ReserveOut:            reserveOut,
		Timestamp:             now,
		aToB:                  aToB,
		volatility:            vol,
	}
	if aToB {
		q.MintIn, q.MintOut = p.MintA, p.MintB
	} else {
		q.MintIn, q.MintOut = p.MintB, p.MintA
	}
	return q, nil
}

// Quote prices a swap of amountIn of mintIn at the current time without
// changing the pool or moving tokens.
func (e *Engine) Quote(ctx context.Context, tokens BalanceReader, mintIn solana.PublicKey, amountIn uint64) (*SwapQuote, error) {
	p := e.working()
	aToB, ok := p.side(mintIn)
	if !ok {
		return nil, fmt.Errorf("%w: mint %s is not in pool", ErrInvalidInput, mintIn)
	}
	if amountIn == 0 {
		return nil, fmt.Errorf("%w: zero amount in", ErrInvalidInput)
	}
	a, b, _, err := reserves(ctx, tokens, p)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut := a, b
	if !aToB {
		reserveIn, reserveOut = b, a
	}
	return priceSwap(p, e.clock.Now(), aToB, amountIn, reserveIn, reserveOut)
}

// Swap exchanges AmountIn of the source mint for at least MinAmountOut of the
// other mint. The fee is charged on the input and accrues to the input side.
func (e *Engine) Swap(ctx context.Context, tokens TokenProgram, params SwapParams) (*SwapQuote, error) {
	release, err := e.acquireSwapLock()
	if err != nil {
		return nil, err
	}
	defer release()

	if params.AmountIn == 0 {
		return nil, fmt.Errorf("%w: zero amount in", ErrInvalidInput)
	}

	p := e.working()

	srcMint, err := tokens.MintOf(ctx, params.Source)
	if err != nil {
		return nil, fmt.Errorf("source account: %w", err)
	}
	dstMint, err := tokens.MintOf(ctx, params.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination account: %w", err)
	}
	aToB, ok := p.side(srcMint)
	if !ok {
		return nil, fmt.Errorf("%w: source mint %s is not in pool", ErrInvalidInput, srcMint)
	}
	if dstIsA, ok := p.side(dstMint); !ok || dstIsA == aToB {
		return nil, fmt.Errorf("%w: destination must hold the opposite pool mint", ErrInvalidInput)
	}

	a, b, _, err := reserves(ctx, tokens, p)
	if err != nil {
		return nil, err
	}
	vaultIn, vaultOut := p.VaultA, p.VaultB
	reserveIn, reserveOut := a, b
	if !aToB {
		vaultIn, vaultOut = p.VaultB, p.VaultA
		reserveIn, reserveOut = b, a
	}

	now := e.clock.Now()
	q, err := priceSwap(p, now, aToB, params.AmountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	if q.AmountOut < params.MinAmountOut {
		return nil, fmt.Errorf("%w: amount out %d below minimum %d", ErrSlippageExceeded, q.AmountOut, params.MinAmountOut)
	}

	if aToB {
		if p.AccumulatedFeeA, err = checkedAdd(p.AccumulatedFeeA, q.FeeAmount); err != nil {
			return nil, fmt.Errorf("accumulated fee a: %w", err)
		}
	} else {
		if p.AccumulatedFeeB, err = checkedAdd(p.AccumulatedFeeB, q.FeeAmount); err != nil {
			return nil, fmt.Errorf("accumulated fee b: %w", err)
		}
	}
	p.VolatilityAccumulator = q.volatility.Accumulator
	p.VolatilityReference = q.volatility.Reference
	p.LastPriceReference = q.volatility.PriceReference
	p.LastSwapTimestamp = now

	if err := tokens.Transfer(ctx, params.Source, vaultIn, params.User, params.AmountIn); err != nil {
		return nil, fmt.Errorf("transfer in: %w", err)
	}
	if err := tokens.Transfer(ctx, vaultOut, params.Destination, p.Authority, q.AmountOut); err != nil {
		return nil, fmt.Errorf("transfer out: %w", err)
	}

	if err := syncReserves(ctx, tokens, p); err != nil {
		return nil, err
	}
	if err := checkProduct(reserveIn, reserveOut, p, aToB); err != nil {
		return nil, err
	}
	e.commit(p)

	e.events.Emit(ctx, &Swap{
		Pool:                  p.ID,
		User:                  params.User,
		MintIn:                q.MintIn,
		MintOut:               q.MintOut,
		AmountIn:              q.AmountIn,
		AmountOut:             q.AmountOut,
		FeeAmount:             q.FeeAmount,
		BaseFeeBps:            q.BaseFeeBps,
		VariableFeeBps:        q.VariableFeeBps,
		VolatilityAccumulator: q.VolatilityAccumulator,
		Price:                 q.Price,
		Timestamp:             now,
	})
	e.logger.WithFields(logrus.Fields{
		"pool":       p.ID.String(),
		"amount_in":  q.AmountIn,
		"amount_out": q.AmountOut,
		"fee":        q.FeeAmount,
		"fee_bps":    q.TotalFeeBps,
		"volatility": q.VolatilityAccumulator,
	}).Debug("swap executed")
	return q, nil
}

// checkProduct fails if the post-trade vault balances hold less value than
// before the trade.
func checkProduct(reserveIn, reserveOut uint64, p *Pool, aToB bool) error {
	newIn, newOut := p.ReserveA, p.ReserveB
	if !aToB {
		newIn, newOut = p.ReserveB, p.ReserveA
	}
	before := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(reserveOut))
	after := new(uint256.Int).Mul(uint256.NewInt(newIn), uint256.NewInt(newOut))
	if after.Lt(before) {
		return fmt.Errorf("%w: constant product decreased", ErrMath)
	}
	return nil
}
