package amm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// CollectFeesParams requests accumulated fees to be swept into the pool's fee
// vaults. Each side is clamped to what has accumulated.
type CollectFeesParams struct {
	Caller  solana.PublicKey `json:"caller"`
	AmountA uint64           `json:"amount_a"`
	AmountB uint64           `json:"amount_b"`
}

// DistributeFeesParams splits accumulated fees between a protocol and a
// creator account on each side.
type DistributeFeesParams struct {
	Caller          solana.PublicKey `json:"caller"`
	ProtocolTokenA  solana.PublicKey `json:"protocol_token_a"`
	ProtocolTokenB  solana.PublicKey `json:"protocol_token_b"`
	CreatorTokenA   solana.PublicKey `json:"creator_token_a"`
	CreatorTokenB   solana.PublicKey `json:"creator_token_b"`
	ProtocolAmountA uint64           `json:"protocol_amount_a"`
	CreatorAmountA  uint64           `json:"creator_amount_a"`
	ProtocolAmountB uint64           `json:"protocol_amount_b"`
	CreatorAmountB  uint64           `json:"creator_amount_b"`
}

type FeeResult struct {
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
}

func (e *Engine) authorize(caller solana.PublicKey) error {
	if !caller.Equals(e.pool.Creator) {
		return fmt.Errorf("%w: %s is not the pool creator", ErrUnauthorized, caller)
	}
	return nil
}

// CollectFees moves up to the requested amounts from the vaults into the fee
// vaults and debits the accumulators. A zero side is skipped.
func (e *Engine) CollectFees(ctx context.Context, tokens TokenProgram, params CollectFeesParams) (*FeeResult, error) {
	if err := e.checkIdle(); err != nil {
		return nil, err
	}
	if err := e.authorize(params.Caller); err != nil {
		return nil, err
	}

	p := e.working()
	amountA := min(params.AmountA, p.AccumulatedFeeA)
	amountB := min(params.AmountB, p.AccumulatedFeeB)

	if amountA > 0 {
		if err := tokens.Transfer(ctx, p.VaultA, p.FeeVaultA, p.Authority, amountA); err != nil {
			return nil, fmt.Errorf("collect fee a: %w", err)
		}
		p.AccumulatedFeeA -= amountA
	}
	if amountB > 0 {
		if err := tokens.Transfer(ctx, p.VaultB, p.FeeVaultB, p.Authority, amountB); err != nil {
			return nil, fmt.Errorf("collect fee b: %w", err)
		}
		p.AccumulatedFeeB -= amountB
	}

	if err := syncReserves(ctx, tokens, p); err != nil {
		return nil, err
	}
	e.commit(p)

	if amountA > 0 || amountB > 0 {
		e.events.Emit(ctx, &FeesCollected{
			Pool:      p.ID,
			Caller:    params.Caller,
			AmountA:   amountA,
			AmountB:   amountB,
			Timestamp: e.clock.Now(),
		})
	}
	e.logger.WithFields(logrus.Fields{
		"pool":     p.ID.String(),
		"amount_a": amountA,
		"amount_b": amountB,
	}).Debug("fees collected")
	return &FeeResult{AmountA: amountA, AmountB: amountB}, nil
}

// DistributeFees performs up to four transfers from the vaults, skipping zero
// amounts. The split on each side may not exceed that side's accumulator.
func (e *Engine) DistributeFees(ctx context.Context, tokens TokenProgram, params DistributeFeesParams) (*FeeResult, error) {
	if err := e.checkIdle(); err != nil {
		return nil, err
	}
	if err := e.authorize(params.Caller); err != nil {
		return nil, err
	}

	p := e.working()
	totalA, err := checkedAdd(params.ProtocolAmountA, params.CreatorAmountA)
	if err != nil {
		return nil, fmt.Errorf("fee split a: %w", err)
	}
	totalB, err := checkedAdd(params.ProtocolAmountB, params.CreatorAmountB)
	if err != nil {
		return nil, fmt.Errorf("fee split b: %w", err)
	}
	if totalA > p.AccumulatedFeeA {
		return nil, fmt.Errorf("%w: fee split a %d exceeds accumulated %d", ErrInvalidInput, totalA, p.AccumulatedFeeA)
	}
	if totalB > p.AccumulatedFeeB {
		return nil, fmt.Errorf("%w: fee split b %d exceeds accumulated %d", ErrInvalidInput, totalB, p.AccumulatedFeeB)
	}

	transfers := []struct {
		name   string
		from   solana.PublicKey
		to     solana.PublicKey
		amount uint64
	}{
		{"protocol a", p.VaultA, params.ProtocolTokenA, params.ProtocolAmountA},
		{"creator a", p.VaultA, params.CreatorTokenA, params.CreatorAmountA},
		{"protocol b", p.VaultB, params.ProtocolTokenB, params.ProtocolAmountB},
		{"creator b", p.VaultB, params.CreatorTokenB, params.CreatorAmountB},
	}
	for _, t := range transfers {
		if t.amount == 0 {
			continue
		}
		if err := tokens.Transfer(ctx, t.from, t.to, p.Authority, t.amount); err != nil {
			return nil, fmt.Errorf("distribute %s: %w", t.name, err)
		}
	}
	p.AccumulatedFeeA -= totalA
	p.AccumulatedFeeB -= totalB

	if err := syncReserves(ctx, tokens, p); err != nil {
		return nil, err
	}
	e.commit(p)

	if totalA > 0 || totalB > 0 {
		e.events.Emit(ctx, &FeesDistributed{
			Pool:            p.ID,
			Caller:          params.Caller,
			ProtocolAmountA: params.ProtocolAmountA,
			CreatorAmountA:  params.CreatorAmountA,
			ProtocolAmountB: params.ProtocolAmountB,
			CreatorAmountB:  params.CreatorAmountB,
			Timestamp:       e.clock.Now(),
		})
	}
	e.logger.WithFields(logrus.Fields{
		"pool":    p.ID.String(),
		"total_a": totalA,
		"total_b": totalB,
	}).Debug("fees distributed")
	return &FeeResult{AmountA: totalA, AmountB: totalB}, nil
}
