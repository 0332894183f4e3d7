package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type AddLiquidityParams struct {
	User           solana.PublicKey `json:"user"`
	UserTokenA     solana.PublicKey `json:"user_token_a"`
	UserTokenB     solana.PublicKey `json:"user_token_b"`
	UserLP         solana.PublicKey `json:"user_lp"`
	AmountADesired uint64           `json:"amount_a_desired"`
	AmountBDesired uint64           `json:"amount_b_desired"`
	AmountAMin     uint64           `json:"amount_a_min"`
	AmountBMin     uint64           `json:"amount_b_min"`
}

// SingleSidedParams deposits Amount of the mint held by Source.
type SingleSidedParams struct {
	User   solana.PublicKey `json:"user"`
	Source solana.PublicKey `json:"source"`
	UserLP solana.PublicKey `json:"user_lp"`
	Amount uint64           `json:"amount"`
	MinLP  uint64           `json:"min_lp"`
}

type RemoveLiquidityParams struct {
	User       solana.PublicKey `json:"user"`
	UserLP     solana.PublicKey `json:"user_lp"`
	UserTokenA solana.PublicKey `json:"user_token_a"`
	UserTokenB solana.PublicKey `json:"user_token_b"`
	LPAmount   uint64           `json:"lp_amount"`
	AmountAMin uint64           `json:"amount_a_min"`
	AmountBMin uint64           `json:"amount_b_min"`
}

type LiquidityResult struct {
	AmountA  uint64 `json:"amount_a"`
	AmountB  uint64 `json:"amount_b"`
	LPAmount uint64 `json:"lp_amount"`
	// ImpliedReserve is the constant-product value of the side not deposited
	// in a single-sided deposit.
	ImpliedReserve uint64 `json:"implied_reserve,omitempty"`
}

// balancedAmounts picks the deposit that preserves the current reserve ratio.
func balancedAmounts(reserveA, reserveB uint64, in AddLiquidityParams) (a, b uint64, err error) {
	if reserveA == 0 && reserveB == 0 {
		return in.AmountADesired, in.AmountBDesired, nil
	}

	bOptimal, err := mulDiv(in.AmountADesired, reserveB, reserveA)
	if err != nil {
		return 0, 0, fmt.Errorf("optimal b: %w", err)
	}
	if bOptimal <= in.AmountBDesired {
		if bOptimal < in.AmountBMin {
			return 0, 0, fmt.Errorf("%w: amount b %d below minimum %d", ErrSlippageExceeded, bOptimal, in.AmountBMin)
		}
		return in.AmountADesired, bOptimal, nil
	}

	aOptimal, err := mulDiv(in.AmountBDesired, reserveA, reserveB)
	if err != nil {
		return 0, 0, fmt.Errorf("optimal a: %w", err)
	}
	if aOptimal < in.AmountAMin {
		return 0, 0, fmt.Errorf("%w: amount a %d below minimum %d", ErrSlippageExceeded, aOptimal, in.AmountAMin)
	}
	return aOptimal, in.AmountBDesired, nil
}

// lpForDeposit is sqrt(a*b) for the first deposit and otherwise the smaller
// of the two ratio-implied amounts.
func lpForDeposit(a, b, reserveA, reserveB, supply uint64) (uint64, error) {
	if supply == 0 {
		return sqrtProduct(a, b), nil
	}
	lpA, err := mulDiv(a, supply, reserveA)
	if err != nil {
		return 0, fmt.Errorf("lp from a: %w", err)
	}
	lpB, err := mulDiv(b, supply, reserveB)
	if err != nil {
		return 0, fmt.Errorf("lp from b: %w", err)
	}
	return min(lpA, lpB), nil
}

// AddLiquidity deposits both tokens at the current ratio and mints LP shares.
func (e *Engine) AddLiquidity(ctx context.Context, tokens TokenProgram, params AddLiquidityParams) (*LiquidityResult, error) {
	if err := e.checkIdle(); err != nil {
		return nil, err
	}
	if params.AmountADesired == 0 || params.AmountBDesired == 0 {
		return nil, fmt.Errorf("%w: zero desired amount", ErrInvalidInput)
	}

	p := e.working()
	reserveA, reserveB, supply, err := reserves(ctx, tokens, p)
	if err != nil {
		return nil, err
	}

	amountA, amountB, err := balancedAmounts(reserveA, reserveB, params)
	if err != nil {
		return nil, err
	}
	if amountA == 0 || amountB == 0 {
		return nil, fmt.Errorf("%w: deposit rounds to zero", ErrInsufficientLiquidity)
	}
	lp, err := lpForDeposit(amountA, amountB, reserveA, reserveB, supply)
	if err != nil {
		return nil, err
	}
	if lp == 0 {
		return nil, fmt.Errorf("%w: zero lp minted", ErrInsufficientLiquidity)
	}
	if _, err := checkedAdd(supply, lp); err != nil {
		return nil, fmt.Errorf("lp supply: %w", err)
	}

	if err := tokens.Transfer(ctx, params.UserTokenA, p.VaultA, params.User, amountA); err != nil {
		return nil, fmt.Errorf("transfer token a: %w", err)
	}
	if err := tokens.Transfer(ctx, params.UserTokenB, p.VaultB, params.User, amountB); err != nil {
		return nil, fmt.Errorf("transfer token b: %w", err)
	}
	if err := tokens.MintTo(ctx, p.LPMint, params.UserLP, p.Authority, lp); err != nil {
		return nil, fmt.Errorf("mint lp: %w", err)
	}

	if err := syncReserves(ctx, tokens, p); err != nil {
		return nil, err
	}
	e.commit(p)

	now := e.clock.Now()
	e.events.Emit(ctx, &LiquidityAdded{
		Pool:      p.ID,
		User:      params.User,
		AmountA:   amountA,
		AmountB:   amountB,
		LPMinted:  lp,
		Timestamp: now,
	})
	e.logger.WithFields(logrus.Fields{
		"pool":     p.ID.String(),
		"amount_a": amountA,
		"amount_b": amountB,
		"lp":       lp,
	}).Debug("liquidity added")
	return &LiquidityResult{AmountA: amountA, AmountB: amountB, LPAmount: lp}, nil
}

// AddSingleSidedLiquidity deposits one token only. The deposit moves the pool
// price; LP is minted for the growth of sqrt(reserve_a * reserve_b).
func (e *Engine) AddSingleSidedLiquidity(ctx context.Context, tokens TokenProgram, params SingleSidedParams) (*LiquidityResult, error) {
	if err := e.checkIdle(); err != nil {
		return nil, err
	}
	if params.Amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidInput)
	}

	p := e.working()
	mint, err := tokens.MintOf(ctx, params.Source)
	if err != nil {
		return nil, fmt.Errorf("source account: %w", err)
	}
	isA, ok := p.side(mint)
	if !ok {
		return nil, fmt.Errorf("%w: source mint %s is not in pool", ErrInvalidInput, mint)
	}

	reserveA, reserveB, supply, err := reserves(ctx, tokens, p)
	if err != nil {
		return nil, err
	}
	if reserveA == 0 || reserveB == 0 || supply == 0 {
		return nil, fmt.Errorf("%w: single-sided deposit needs an existing price", ErrInsufficientLiquidity)
	}

	vault, reserveThis := p.VaultB, reserveB
	if isA {
		vault, reserveThis = p.VaultA, reserveA
	}
	newThis, err := checkedAdd(reserveThis, params.Amount)
	if err != nil {
		return nil, fmt.Errorf("new reserve: %w", err)
	}
	implied, err := mulDiv(reserveA, reserveB, newThis)
	if err != nil {
		return nil, fmt.Errorf("implied reserve: %w", err)
	}
	lp, err := sqrtGrowth(supply, reserveThis, newThis)
	if err != nil {
		return nil, err
	}
	if lp == 0 {
		return nil, fmt.Errorf("%w: zero lp minted", ErrInsufficientLiquidity)
	}
	if lp < params.MinLP {
		return nil, fmt.Errorf("%w: lp %d below minimum %d", ErrSlippageExceeded, lp, params.MinLP)
	}
	if _, err := checkedAdd(supply, lp); err != nil {
		return nil, fmt.Errorf("lp supply: %w", err)
	}

	if err := tokens.Transfer(ctx, params.Source, vault, params.User, params.Amount); err != nil {
		return nil, fmt.Errorf("transfer deposit: %w", err)
	}
	if err := tokens.MintTo(ctx, p.LPMint, params.UserLP, p.Authority, lp); err != nil {
		return nil, fmt.Errorf("mint lp: %w", err)
	}

	if err := syncReserves(ctx, tokens, p); err != nil {
		return nil, err
	}
	e.commit(p)

	res := &LiquidityResult{LPAmount: lp, ImpliedReserve: implied}
	if isA {
		res.AmountA = params.Amount
	} else {
		res.AmountB = params.Amount
	}
	e.events.Emit(ctx, &LiquidityAdded{
		Pool:        p.ID,
		User:        params.User,
		AmountA:     res.AmountA,
		AmountB:     res.AmountB,
		LPMinted:    lp,
		SingleSided: true,
		Timestamp:   e.clock.Now(),
	})
	e.logger.WithFields(logrus.Fields{
		"pool":   p.ID.String(),
		"side_a": isA,
		"amount": params.Amount,
		"lp":     lp,
	}).Debug("single-sided liquidity added")
	return res, nil
}

// RemoveLiquidity burns LP shares and returns the pro-rata reserves. The burn
// happens before any tokens leave the vaults.
func (e *Engine) RemoveLiquidity(ctx context.Context, tokens TokenProgram, params RemoveLiquidityParams) (*LiquidityResult, error) {
	if err := e.checkIdle(); err != nil {
		return nil, err
	}
	if params.LPAmount == 0 {
		return nil, fmt.Errorf("%w: zero lp amount", ErrInvalidInput)
	}

	p := e.working()
	reserveA, reserveB, supply, err := reserves(ctx, tokens, p)
	if err != nil {
		return nil, err
	}
	if params.LPAmount > supply {
		return nil, fmt.Errorf("%w: lp amount %d exceeds supply %d", ErrInsufficientLiquidity, params.LPAmount, supply)
	}

	amountA, err := mulDiv(params.LPAmount, reserveA, supply)
	if err != nil {
		return nil, fmt.Errorf("amount a: %w", err)
	}
	amountB, err := mulDiv(params.LPAmount, reserveB, supply)
	if err != nil {
		return nil, fmt.Errorf("amount b: %w", err)
	}
	if amountA < params.AmountAMin || amountB < params.AmountBMin {
		return nil, fmt.Errorf("%w: withdrawal (%d, %d) below minimum (%d, %d)",
			ErrSlippageExceeded, amountA, amountB, params.AmountAMin, params.AmountBMin)
	}
	if amountA == 0 && amountB == 0 {
		return nil, fmt.Errorf("%w: withdrawal rounds to zero", ErrInsufficientLiquidity)
	}

	if err := tokens.Burn(ctx, p.LPMint, params.UserLP, params.User, params.LPAmount); err != nil {
		return nil, fmt.Errorf("burn lp: %w", err)
	}
	if amountA > 0 {
		if err := tokens.Transfer(ctx, p.VaultA, params.UserTokenA, p.Authority, amountA); err != nil {
			return nil, fmt.Errorf("transfer token a: %w", err)
		}
	}
	if amountB > 0 {
		if err := tokens.Transfer(ctx, p.VaultB, params.UserTokenB, p.Authority, amountB); err != nil {
			return nil, fmt.Errorf("transfer token b: %w", err)
		}
	}

	if err := syncReserves(ctx, tokens, p); err != nil {
		return nil, err
	}
	e.commit(p)

	e.events.Emit(ctx, &LiquidityRemoved{
		Pool:      p.ID,
		User:      params.User,
		AmountA:   amountA,
		AmountB:   amountB,
		LPBurned:  params.LPAmount,
		Timestamp: e.clock.Now(),
	})
	e.logger.WithFields(logrus.Fields{
		"pool":     p.ID.String(),
		"amount_a": amountA,
		"amount_b": amountB,
		"lp":       params.LPAmount,
	}).Debug("liquidity removed")
	return &LiquidityResult{AmountA: amountA, AmountB: amountB, LPAmount: params.LPAmount}, nil
}
