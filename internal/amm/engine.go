package amm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// EngineConfig wires the ambient capabilities of an Engine.
type EngineConfig struct {
	Clock  Clock
	Events EventSink
	Logger *logrus.Logger
}

// Engine executes operations against a single pool. Each operation works on a
// copy of the pool and commits it only after every transfer succeeded, so a
// failed operation leaves the pool exactly as it found it.
//
// An Engine is not safe for concurrent use; callers serialize access per pool.
type Engine struct {
	pool   *Pool
	clock  Clock
	events EventSink
	logger *logrus.Logger
}

func NewEngine(pool *Pool, cfg EngineConfig) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Engine{pool: pool, clock: cfg.Clock, events: cfg.Events, logger: cfg.Logger}
}

// Initialize validates params and creates a pool with empty reserves, zeroed
// volatility state and last_swap_timestamp set to the current time.
func Initialize(ctx context.Context, params InitParams, cfg EngineConfig) (*Engine, error) {
	e := NewEngine(nil, cfg)
	now := e.clock.Now()

	pool, err := newPool(params, now)
	if err != nil {
		return nil, err
	}
	e.pool = pool

	e.events.Emit(ctx, &PoolCreated{
		Pool:       pool.ID,
		MintA:      pool.MintA,
		MintB:      pool.MintB,
		BaseFeeBps: pool.BaseFeeBps,
		Creator:    pool.Creator,
		Timestamp:  now,
	})
	e.logger.WithFields(logrus.Fields{
		"pool":         pool.ID.String(),
		"mint_a":       pool.MintA.String(),
		"mint_b":       pool.MintB.String(),
		"base_fee_bps": pool.BaseFeeBps,
	}).Debug("pool initialized")
	return e, nil
}

// Pool returns a copy of the current pool state.
func (e *Engine) Pool() Pool {
	return *e.pool
}

// Restore replaces the pool state with p. Callers use it to undo an operation
// whose surrounding transaction did not commit.
func (e *Engine) Restore(p Pool) {
	p.Lock = LockIdle
	e.pool = &p
}

// acquireSwapLock moves the pool into LockInSwap. The returned release must be
// deferred so the lock clears on every exit path.
func (e *Engine) acquireSwapLock() (release func(), err error) {
	if e.pool.Lock != LockIdle {
		return nil, ErrReentrancyDetected
	}
	e.pool.Lock = LockInSwap
	return func() { e.pool.Lock = LockIdle }, nil
}

// checkIdle rejects operations that would run inside an in-flight swap.
func (e *Engine) checkIdle() error {
	if e.pool.Lock != LockIdle {
		return ErrReentrancyDetected
	}
	return nil
}

func (e *Engine) working() *Pool {
	next := *e.pool
	return &next
}

func (e *Engine) commit(next *Pool) {
	next.Lock = e.pool.Lock
	*e.pool = *next
}

// reserves reads the live vault balances and LP supply.
func reserves(ctx context.Context, tokens BalanceReader, p *Pool) (a, b, supply uint64, err error) {
	if a, err = tokens.Balance(ctx, p.VaultA); err != nil {
		return 0, 0, 0, fmt.Errorf("read vault a: %w", err)
	}
	if b, err = tokens.Balance(ctx, p.VaultB); err != nil {
		return 0, 0, 0, fmt.Errorf("read vault b: %w", err)
	}
	if supply, err = tokens.Supply(ctx, p.LPMint); err != nil {
		return 0, 0, 0, fmt.Errorf("read lp supply: %w", err)
	}
	return a, b, supply, nil
}

// syncReserves copies the live balances into p after the operation's transfers.
func syncReserves(ctx context.Context, tokens BalanceReader, p *Pool) error {
	a, b, supply, err := reserves(ctx, tokens, p)
	if err != nil {
		return err
	}
	p.ReserveA, p.ReserveB, p.LPTotalSupply = a, b, supply
	return nil
}
