package pools

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/gagliardetto/solana-go"
)

// Requests name owners and mints; the manager resolves their associated
// token accounts. Source accounts must exist, destination accounts are
// opened on demand.

type SwapRequest struct {
	User         solana.PublicKey `json:"user"`
	MintIn       solana.PublicKey `json:"mint_in"`
	AmountIn     uint64           `json:"amount_in"`
	MinAmountOut uint64           `json:"min_amount_out"`
}

type SwapResult struct {
	amm.SwapQuote
	Signature string `json:"signature"`
}

type AddLiquidityRequest struct {
	User           solana.PublicKey `json:"user"`
	AmountADesired uint64           `json:"amount_a_desired"`
	AmountBDesired uint64           `json:"amount_b_desired"`
	AmountAMin     uint64           `json:"amount_a_min"`
	AmountBMin     uint64           `json:"amount_b_min"`
}

type SingleSidedRequest struct {
	User   solana.PublicKey `json:"user"`
	Mint   solana.PublicKey `json:"mint"`
	Amount uint64           `json:"amount"`
	MinLP  uint64           `json:"min_lp"`
}

type RemoveLiquidityRequest struct {
	User       solana.PublicKey `json:"user"`
	LPAmount   uint64           `json:"lp_amount"`
	AmountAMin uint64           `json:"amount_a_min"`
	AmountBMin uint64           `json:"amount_b_min"`
}

type LiquidityResult struct {
	amm.LiquidityResult
	Signature string `json:"signature"`
}

type DistributeFeesRequest struct {
	Caller          solana.PublicKey `json:"caller"`
	Protocol        solana.PublicKey `json:"protocol"`
	ProtocolAmountA uint64           `json:"protocol_amount_a"`
	CreatorAmountA  uint64           `json:"creator_amount_a"`
	ProtocolAmountB uint64           `json:"protocol_amount_b"`
	CreatorAmountB  uint64           `json:"creator_amount_b"`
}

type FeeResult struct {
	amm.FeeResult
	Signature string `json:"signature"`
}

func (e *entry) otherMint(mint solana.PublicKey) (solana.PublicKey, error) {
	switch {
	case mint.Equals(e.mintA):
		return e.mintB, nil
	case mint.Equals(e.mintB):
		return e.mintA, nil
	default:
		return solana.PublicKey{}, fmt.Errorf("%w: mint %s is not traded by pool %s", amm.ErrInvalidInput, mint, e.id)
	}
}

// Quote prices a swap against the current pool without changing anything.
func (m *Manager) Quote(ctx context.Context, ref string, mintIn solana.PublicKey, amountIn uint64) (*amm.SwapQuote, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var q *amm.SwapQuote
	err = m.ledger.View(func(tx *ledger.Tx) error {
		var err error
		q, err = e.engine.Quote(ctx, tx, mintIn, amountIn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (m *Manager) Swap(ctx context.Context, ref string, req SwapRequest) (*SwapResult, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := m.checkHalt(ctx, e); err != nil {
		return nil, err
	}
	mintOut, err := e.otherMint(req.MintIn)
	if err != nil {
		return nil, err
	}
	source, err := associated(req.User, req.MintIn)
	if err != nil {
		return nil, err
	}

	var q *amm.SwapQuote
	sig, err := m.execute(ctx, e, func(tx *ledger.Tx) error {
		dest, err := tx.OpenAssociated(req.User, mintOut)
		if err != nil {
			return err
		}
		q, err = e.engine.Swap(ctx, tx, amm.SwapParams{
			User:         req.User,
			Source:       source,
			Destination:  dest,
			AmountIn:     req.AmountIn,
			MinAmountOut: req.MinAmountOut,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SwapResult{SwapQuote: *q, Signature: sig}, nil
}

func (m *Manager) AddLiquidity(ctx context.Context, ref string, req AddLiquidityRequest) (*LiquidityResult, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := m.checkHalt(ctx, e); err != nil {
		return nil, err
	}
	tokenA, err := associated(req.User, e.mintA)
	if err != nil {
		return nil, err
	}
	tokenB, err := associated(req.User, e.mintB)
	if err != nil {
		return nil, err
	}

	var res *amm.LiquidityResult
	sig, err := m.execute(ctx, e, func(tx *ledger.Tx) error {
		lp, err := tx.OpenAssociated(req.User, e.engine.Pool().LPMint)
		if err != nil {
			return err
		}
		res, err = e.engine.AddLiquidity(ctx, tx, amm.AddLiquidityParams{
			User:           req.User,
			UserTokenA:     tokenA,
			UserTokenB:     tokenB,
			UserLP:         lp,
			AmountADesired: req.AmountADesired,
			AmountBDesired: req.AmountBDesired,
			AmountAMin:     req.AmountAMin,
			AmountBMin:     req.AmountBMin,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &LiquidityResult{LiquidityResult: *res, Signature: sig}, nil
}

func (m *Manager) AddSingleSidedLiquidity(ctx context.Context, ref string, req SingleSidedRequest) (*LiquidityResult, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := m.checkHalt(ctx, e); err != nil {
		return nil, err
	}
	if _, err := e.otherMint(req.Mint); err != nil {
		return nil, err
	}
	source, err := associated(req.User, req.Mint)
	if err != nil {
		return nil, err
	}

	var res *amm.LiquidityResult
	sig, err := m.execute(ctx, e, func(tx *ledger.Tx) error {
		lp, err := tx.OpenAssociated(req.User, e.engine.Pool().LPMint)
		if err != nil {
			return err
		}
		res, err = e.engine.AddSingleSidedLiquidity(ctx, tx, amm.SingleSidedParams{
			User:   req.User,
			Source: source,
			UserLP: lp,
			Amount: req.Amount,
			MinLP:  req.MinLP,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &LiquidityResult{LiquidityResult: *res, Signature: sig}, nil
}

// RemoveLiquidity stays open while a pool is halted.
func (m *Manager) RemoveLiquidity(ctx context.Context, ref string, req RemoveLiquidityRequest) (*LiquidityResult, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	lp, err := associated(req.User, e.engine.Pool().LPMint)
	if err != nil {
		return nil, err
	}

	var res *amm.LiquidityResult
	sig, err := m.execute(ctx, e, func(tx *ledger.Tx) error {
		tokenA, err := tx.OpenAssociated(req.User, e.mintA)
		if err != nil {
			return err
		}
		tokenB, err := tx.OpenAssociated(req.User, e.mintB)
		if err != nil {
			return err
		}
		res, err = e.engine.RemoveLiquidity(ctx, tx, amm.RemoveLiquidityParams{
			User:       req.User,
			UserLP:     lp,
			UserTokenA: tokenA,
			UserTokenB: tokenB,
			LPAmount:   req.LPAmount,
			AmountAMin: req.AmountAMin,
			AmountBMin: req.AmountBMin,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &LiquidityResult{LiquidityResult: *res, Signature: sig}, nil
}

func (m *Manager) CollectFees(ctx context.Context, ref string, req amm.CollectFeesParams) (*FeeResult, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var res *amm.FeeResult
	sig, err := m.execute(ctx, e, func(tx *ledger.Tx) error {
		var err error
		res, err = e.engine.CollectFees(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &FeeResult{FeeResult: *res, Signature: sig}, nil
}

// DistributeFees pays the protocol share to the protocol owner's associated
// accounts and the creator share to the pool creator's.
func (m *Manager) DistributeFees(ctx context.Context, ref string, req DistributeFeesRequest) (*FeeResult, error) {
	e, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	creator := e.engine.Pool().Creator
	if !req.Caller.Equals(creator) {
		return nil, fmt.Errorf("%w: %s is not the pool creator", amm.ErrUnauthorized, req.Caller)
	}
	if req.Protocol.IsZero() && (req.ProtocolAmountA > 0 || req.ProtocolAmountB > 0) {
		return nil, fmt.Errorf("%w: protocol owner is required", amm.ErrInvalidInput)
	}

	params := amm.DistributeFeesParams{
		Caller:          req.Caller,
		ProtocolAmountA: req.ProtocolAmountA,
		CreatorAmountA:  req.CreatorAmountA,
		ProtocolAmountB: req.ProtocolAmountB,
		CreatorAmountB:  req.CreatorAmountB,
	}
	accounts := []struct {
		dst    *solana.PublicKey
		owner  solana.PublicKey
		mint   solana.PublicKey
		amount uint64
	}{
		{&params.ProtocolTokenA, req.Protocol, e.mintA, req.ProtocolAmountA},
		{&params.CreatorTokenA, creator, e.mintA, req.CreatorAmountA},
		{&params.ProtocolTokenB, req.Protocol, e.mintB, req.ProtocolAmountB},
		{&params.CreatorTokenB, creator, e.mintB, req.CreatorAmountB},
	}

	var res *amm.FeeResult
	sig, err := m.execute(ctx, e, func(tx *ledger.Tx) error {
		for _, a := range accounts {
			if a.amount == 0 {
				continue
			}
			ata, err := tx.OpenAssociated(a.owner, a.mint)
			if err != nil {
				return err
			}
			*a.dst = ata
		}
		var err error
		res, err = e.engine.DistributeFees(ctx, tx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &FeeResult{FeeResult: *res, Signature: sig}, nil
}
