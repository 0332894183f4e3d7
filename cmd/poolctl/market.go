package main

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

const marketName = "A/B"

// market is a single seeded pool on a private in-memory ledger with a
// manually advanced clock.
type market struct {
	manager *pools.Manager
	user    solana.PublicKey
	mintA   solana.PublicKey
	mintB   solana.PublicKey
	now     int64
}

type marketConfig struct {
	ReserveA uint64
	ReserveB uint64
	// FundA and FundB are credited to the trading user on top of the seed liquidity.
	FundA  uint64
	FundB  uint64
	Fees   amm.FeeParams
	Logger *logrus.Logger
}

func newMarket(ctx context.Context, cfg marketConfig) (*market, error) {
	if cfg.ReserveA == 0 || cfg.ReserveB == 0 {
		return nil, fmt.Errorf("reserves must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	m := &market{
		user:  solana.NewWallet().PublicKey(),
		mintA: solana.NewWallet().PublicKey(),
		mintB: solana.NewWallet().PublicKey(),
		now:   time.Now().Unix(),
	}
	creator := solana.NewWallet().PublicKey()

	l := ledger.New(cfg.Logger)
	manager, err := pools.NewManager(pools.ManagerConfig{
		Ledger: l,
		Clock:  amm.ClockFunc(func() int64 { return m.now }),
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	m.manager = manager

	for _, mint := range []solana.PublicKey{m.mintA, m.mintB} {
		if err := l.CreateMint(ctx, mint, creator, 9); err != nil {
			return nil, err
		}
	}
	if _, err := manager.CreatePool(ctx, pools.Definition{
		Name:    marketName,
		MintA:   m.mintA,
		MintB:   m.mintB,
		Creator: creator,
		Fees:    cfg.Fees,
	}); err != nil {
		return nil, err
	}

	fundA, carry := bits.Add64(cfg.ReserveA, cfg.FundA, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: funding token A", amm.ErrOverflow)
	}
	fundB, carry := bits.Add64(cfg.ReserveB, cfg.FundB, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: funding token B", amm.ErrOverflow)
	}
	for _, f := range []struct {
		mint   solana.PublicKey
		amount uint64
	}{{m.mintA, fundA}, {m.mintB, fundB}} {
		ata, err := l.OpenAssociated(ctx, m.user, f.mint)
		if err != nil {
			return nil, err
		}
		if _, err := l.Airdrop(ctx, ata, f.amount); err != nil {
			return nil, err
		}
	}

	if _, err := manager.AddLiquidity(ctx, marketName, pools.AddLiquidityRequest{
		User:           m.user,
		AmountADesired: cfg.ReserveA,
		AmountBDesired: cfg.ReserveB,
	}); err != nil {
		return nil, fmt.Errorf("seed liquidity: %w", err)
	}
	return m, nil
}

func (m *market) mintIn(bToA bool) solana.PublicKey {
	if bToA {
		return m.mintB
	}
	return m.mintA
}

// step is one row of a fee simulation.
type step struct {
	N          int
	Elapsed    int64
	Direction  string
	AmountIn   uint64
	AmountOut  uint64
	Fee        uint64
	BaseBps    uint64
	VarBps     uint64
	Volatility uint64
	SpotPrice  uint64
}

type simulation struct {
	Swaps     int
	AmountIn  uint64
	Interval  time.Duration
	Alternate bool
}

// simulate executes the swaps in order, advancing the clock by the interval
// before each one.
func (m *market) simulate(ctx context.Context, sim simulation) ([]step, error) {
	interval := int64(sim.Interval / time.Second)
	out := make([]step, 0, sim.Swaps)

	bToA := false
	for i := 0; i < sim.Swaps; i++ {
		m.now += interval

		res, err := m.manager.Swap(ctx, marketName, pools.SwapRequest{
			User:     m.user,
			MintIn:   m.mintIn(bToA),
			AmountIn: sim.AmountIn,
		})
		if err != nil {
			return out, fmt.Errorf("swap %d: %w", i+1, err)
		}
		pool, err := m.manager.Get(marketName)
		if err != nil {
			return out, err
		}

		dir := "a->b"
		if bToA {
			dir = "b->a"
		}
		out = append(out, step{
			N:          i + 1,
			Elapsed:    interval,
			Direction:  dir,
			AmountIn:   res.AmountIn,
			AmountOut:  res.AmountOut,
			Fee:        res.FeeAmount,
			BaseBps:    res.BaseFeeBps,
			VarBps:     res.VariableFeeBps,
			Volatility: res.VolatilityAccumulator,
			SpotPrice:  pool.SpotPrice(),
		})

		if sim.Alternate {
			bToA = !bToA
		}
	}
	return out, nil
}
