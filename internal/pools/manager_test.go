package pools

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userFunds = 1_000_000_000

type emitted struct {
	kind amm.EventKind
	name string
	sig  string
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) EmitSigned(_ context.Context, ev amm.Event, poolName, sig string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{kind: ev.Kind(), name: poolName, sig: sig})
}

func (r *recordingEmitter) kinds() []amm.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]amm.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

func (r *recordingEmitter) last() emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type recordingSnapshots struct {
	snaps []*models.PoolSnapshot
	err   error
}

func (r *recordingSnapshots) SavePool(_ context.Context, snap *models.PoolSnapshot) error {
	r.snaps = append(r.snaps, snap)
	return r.err
}

type staticHalts struct {
	halted bool
	err    error
}

func (s *staticHalts) IsHalted(context.Context, string) (bool, error) {
	return s.halted, s.err
}

type testEnv struct {
	manager   *Manager
	ledger    *ledger.Ledger
	emitter   *recordingEmitter
	snapshots *recordingSnapshots
	halts     *staticHalts
	now       int64

	mintA   solana.PublicKey
	mintB   solana.PublicKey
	creator solana.PublicKey
	user    solana.PublicKey
	pool    amm.Pool
}

func testFees() amm.FeeParams {
	return amm.FeeParams{
		BaseFeeBps:     30,
		VariableFactor: 1,
		FilterPeriod:   10,
		DecayPeriod:    60,
		DecayFactorBps: 5_000,
	}
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		ledger:    ledger.New(logger),
		emitter:   &recordingEmitter{},
		snapshots: &recordingSnapshots{},
		halts:     &staticHalts{},
		now:       1_000,
		mintA:     newKey(),
		mintB:     newKey(),
		creator:   newKey(),
		user:      newKey(),
	}

	m, err := NewManager(ManagerConfig{
		Ledger:    env.ledger,
		Events:    env.emitter,
		Snapshots: env.snapshots,
		Halts:     env.halts,
		Clock:     amm.ClockFunc(func() int64 { return env.now }),
		Logger:    logger,
	})
	require.NoError(t, err)
	env.manager = m

	mintAuthority := newKey()
	require.NoError(t, env.ledger.CreateMint(ctx, env.mintA, mintAuthority, 6))
	require.NoError(t, env.ledger.CreateMint(ctx, env.mintB, mintAuthority, 6))

	env.pool, err = m.CreatePool(ctx, Definition{
		Name:    "A/B",
		MintA:   env.mintA,
		MintB:   env.mintB,
		Creator: env.creator,
		Fees:    testFees(),
	})
	require.NoError(t, err)

	for _, mint := range []solana.PublicKey{env.mintA, env.mintB} {
		ata, err := env.ledger.OpenAssociated(ctx, env.user, mint)
		require.NoError(t, err)
		_, err = env.ledger.Airdrop(ctx, ata, userFunds)
		require.NoError(t, err)
	}
	return env
}

func (env *testEnv) balance(t *testing.T, owner, mint solana.PublicKey) uint64 {
	t.Helper()
	ata, err := ledger.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	acc, err := env.ledger.Account(ata)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0
	}
	require.NoError(t, err)
	return acc.Amount
}

func (env *testEnv) deposit(t *testing.T, a, b uint64) *LiquidityResult {
	t.Helper()
	res, err := env.manager.AddLiquidity(context.Background(), "A/B", AddLiquidityRequest{
		User:           env.user,
		AmountADesired: a,
		AmountBDesired: b,
	})
	require.NoError(t, err)
	return res
}

func TestManager_CreatePool(t *testing.T) {
	env := newTestEnv(t)

	addrs, err := amm.DeriveAddresses(amm.DefaultProgramID, env.mintA, env.mintB)
	require.NoError(t, err)
	assert.Equal(t, addrs.Pool, env.pool.ID)
	assert.Equal(t, "A/B", env.pool.Name)

	for _, acc := range []solana.PublicKey{addrs.VaultA, addrs.VaultB, addrs.FeeVaultA, addrs.FeeVaultB} {
		a, err := env.ledger.Account(acc)
		require.NoError(t, err)
		assert.Equal(t, addrs.Authority, a.Owner)
	}
	lp, err := env.ledger.Mint(addrs.LPMint)
	require.NoError(t, err)
	assert.Equal(t, addrs.Authority, lp.Authority)

	byName, err := env.manager.Get("A/B")
	require.NoError(t, err)
	byAddr, err := env.manager.Get(env.pool.ID.String())
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byAddr.ID)

	assert.Len(t, env.manager.List(), 1)
	assert.Equal(t, []amm.EventKind{amm.KindPoolCreated}, env.emitter.kinds())
	assert.NotEmpty(t, env.emitter.last().sig)
	assert.Equal(t, "A/B", env.emitter.last().name)

	_, err = env.manager.CreatePool(context.Background(), Definition{
		MintA: env.mintA, MintB: env.mintB, Creator: env.creator, Fees: testFees(),
	})
	assert.ErrorIs(t, err, ErrPoolExists)

	_, err = env.manager.Get("missing")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestManager_CreatePoolRollsBackOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	unknown := newKey()

	_, err := env.manager.CreatePool(ctx, Definition{
		Name: "A/X", MintA: env.mintA, MintB: unknown, Creator: env.creator, Fees: testFees(),
	})
	assert.ErrorIs(t, err, ledger.ErrMintNotFound)

	other := newKey()
	require.NoError(t, env.ledger.CreateMint(ctx, other, env.creator, 6))

	bad := testFees()
	bad.BaseFeeBps = 1_001
	_, err = env.manager.CreatePool(ctx, Definition{
		Name: "A/O", MintA: env.mintA, MintB: other, Creator: env.creator, Fees: bad,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidFeeConfig)

	// occupy the second vault so provisioning fails after the lp mint was created
	addrs, err := amm.DeriveAddresses(amm.DefaultProgramID, env.mintA, other)
	require.NoError(t, err)
	require.NoError(t, env.ledger.CreateAccount(ctx, addrs.VaultB, other, env.user))

	_, err = env.manager.CreatePool(ctx, Definition{
		Name: "A/O", MintA: env.mintA, MintB: other, Creator: env.creator, Fees: testFees(),
	})
	assert.ErrorIs(t, err, ledger.ErrAccountExists)

	_, err = env.ledger.Mint(addrs.LPMint)
	assert.ErrorIs(t, err, ledger.ErrMintNotFound, "lp mint must not survive a failed create")
	_, err = env.ledger.Account(addrs.VaultA)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.Len(t, env.manager.List(), 1)
}

func TestManager_DepositAndSwap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dep := env.deposit(t, 1_000_000, 1_000_000)
	assert.Equal(t, uint64(1_000_000), dep.LPAmount)
	assert.NotEmpty(t, dep.Signature)
	assert.Equal(t, uint64(1_000_000), env.balance(t, env.user, env.pool.LPMint))

	res, err := env.manager.Swap(ctx, "A/B", SwapRequest{
		User:     env.user,
		MintIn:   env.mintA,
		AmountIn: 10_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9_871), res.AmountOut)
	assert.Equal(t, uint64(30), res.FeeAmount)
	assert.NotEmpty(t, res.Signature)

	assert.Equal(t, uint64(userFunds-1_000_000-10_000), env.balance(t, env.user, env.mintA))
	assert.Equal(t, uint64(userFunds-1_000_000+9_871), env.balance(t, env.user, env.mintB))

	p, err := env.manager.Get("A/B")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_010_000), p.ReserveA)
	assert.Equal(t, uint64(990_129), p.ReserveB)
	assert.Equal(t, uint64(30), p.AccumulatedFeeA)
	assert.Equal(t, amm.LockIdle, p.Lock)

	assert.Equal(t, []amm.EventKind{amm.KindPoolCreated, amm.KindLiquidityAdded, amm.KindSwap}, env.emitter.kinds())
	assert.Equal(t, res.Signature, env.emitter.last().sig)

	require.NotEmpty(t, env.snapshots.snaps)
	last := env.snapshots.snaps[len(env.snapshots.snaps)-1]
	assert.Equal(t, uint64(1_010_000), last.Pool.ReserveA)
}

func TestManager_SwapIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deposit(t, 1_000_000, 1_000_000)
	before, err := env.manager.Get("A/B")
	require.NoError(t, err)
	eventsBefore := len(env.emitter.kinds())

	destB, err := ledger.FindAssociatedTokenAddress(env.user, env.mintB)
	require.NoError(t, err)
	require.NoError(t, env.ledger.Freeze(ctx, destB, true))

	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10_000})
	assert.ErrorIs(t, err, ledger.ErrAccountFrozen)

	after, err := env.manager.Get("A/B")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, uint64(userFunds-1_000_000), env.balance(t, env.user, env.mintA), "inbound transfer rolled back")
	assert.Len(t, env.emitter.kinds(), eventsBefore)

	require.NoError(t, env.ledger.Freeze(ctx, destB, false))
	res, err := env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(9_871), res.AmountOut)
}

func TestManager_SwapRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deposit(t, 1_000_000, 1_000_000)

	_, err := env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: newKey(), AmountIn: 1})
	assert.ErrorIs(t, err, amm.ErrInvalidInput)

	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 0})
	assert.ErrorIs(t, err, amm.ErrInvalidInput)

	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10_000, MinAmountOut: 9_872})
	assert.ErrorIs(t, err, amm.ErrSlippageExceeded)

	stranger := newKey()
	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: stranger, MintIn: env.mintA, AmountIn: 10})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = env.manager.Swap(ctx, "nope", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10})
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestManager_RejectedOperationsCreateNoAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deposit(t, 1_000_000, 1_000_000)

	trader := newKey()
	sourceA, err := env.ledger.OpenAssociated(ctx, trader, env.mintA)
	require.NoError(t, err)
	_, err = env.ledger.Airdrop(ctx, sourceA, 10_000)
	require.NoError(t, err)
	destB, err := ledger.FindAssociatedTokenAddress(trader, env.mintB)
	require.NoError(t, err)

	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: trader, MintIn: env.mintA, AmountIn: 0})
	assert.ErrorIs(t, err, amm.ErrInvalidInput)
	_, err = env.ledger.Account(destB)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: trader, MintIn: env.mintA, AmountIn: 10_000, MinAmountOut: 9_872})
	assert.ErrorIs(t, err, amm.ErrSlippageExceeded)
	_, err = env.ledger.Account(destB)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.Equal(t, uint64(10_000), env.balance(t, trader, env.mintA))

	lp, err := ledger.FindAssociatedTokenAddress(trader, env.pool.LPMint)
	require.NoError(t, err)
	_, err = env.manager.AddSingleSidedLiquidity(ctx, "A/B", SingleSidedRequest{User: trader, Mint: env.mintA, Amount: 0})
	assert.Error(t, err)
	_, err = env.ledger.Account(lp)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	protocol := newKey()
	_, err = env.manager.DistributeFees(ctx, "A/B", DistributeFeesRequest{
		Caller: env.creator, Protocol: protocol, ProtocolAmountA: 1_000_000,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidInput)
	protocolA, err := ledger.FindAssociatedTokenAddress(protocol, env.mintA)
	require.NoError(t, err)
	_, err = env.ledger.Account(protocolA)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	res, err := env.manager.Swap(ctx, "A/B", SwapRequest{User: trader, MintIn: env.mintA, AmountIn: 10_000})
	require.NoError(t, err)
	assert.Equal(t, res.AmountOut, env.balance(t, trader, env.mintB))
}

func TestManager_QuoteMatchesSwap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deposit(t, 1_000_000, 1_000_000)

	q, err := env.manager.Quote(ctx, env.pool.ID.String(), env.mintB, 10_000)
	require.NoError(t, err)
	before, err := env.manager.Get("A/B")
	require.NoError(t, err)

	again, err := env.manager.Quote(ctx, "A/B", env.mintB, 10_000)
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, again.AmountOut)

	unchanged, err := env.manager.Get("A/B")
	require.NoError(t, err)
	assert.Equal(t, before, unchanged)

	res, err := env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintB, AmountIn: 10_000})
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, res.AmountOut)
	assert.Equal(t, q.FeeAmount, res.FeeAmount)
}

func TestManager_HaltGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dep := env.deposit(t, 1_000_000, 1_000_000)

	env.halts.halted = true

	_, err := env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10})
	assert.ErrorIs(t, err, ErrTradingHalted)

	_, err = env.manager.AddLiquidity(ctx, "A/B", AddLiquidityRequest{User: env.user, AmountADesired: 10, AmountBDesired: 10})
	assert.ErrorIs(t, err, ErrTradingHalted)

	_, err = env.manager.AddSingleSidedLiquidity(ctx, "A/B", SingleSidedRequest{User: env.user, Mint: env.mintA, Amount: 10})
	assert.ErrorIs(t, err, ErrTradingHalted)

	res, err := env.manager.RemoveLiquidity(ctx, "A/B", RemoveLiquidityRequest{User: env.user, LPAmount: dep.LPAmount / 2})
	require.NoError(t, err, "withdrawals stay open while halted")
	assert.Equal(t, uint64(500_000), res.AmountA)
	assert.Equal(t, uint64(500_000), res.AmountB)

	env.halts.halted = false
	env.halts.err = errors.New("redis down")
	_, err = env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTradingHalted)
}

func TestManager_SingleSidedAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deposit(t, 1_000_000, 1_000_000)

	res, err := env.manager.AddSingleSidedLiquidity(ctx, "A/B", SingleSidedRequest{
		User:   env.user,
		Mint:   env.mintA,
		Amount: 210_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), res.LPAmount)
	assert.Equal(t, uint64(1_100_000), env.balance(t, env.user, env.pool.LPMint))

	_, err = env.manager.AddSingleSidedLiquidity(ctx, "A/B", SingleSidedRequest{User: env.user, Mint: newKey(), Amount: 1})
	assert.ErrorIs(t, err, amm.ErrInvalidInput)

	rem, err := env.manager.RemoveLiquidity(ctx, "A/B", RemoveLiquidityRequest{User: env.user, LPAmount: 1_100_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_210_000), rem.AmountA)
	assert.Equal(t, uint64(1_000_000), rem.AmountB)
	assert.Equal(t, uint64(0), env.balance(t, env.user, env.pool.LPMint))

	p, err := env.manager.Get("A/B")
	require.NoError(t, err)
	assert.Zero(t, p.ReserveA)
	assert.Zero(t, p.ReserveB)
	assert.Zero(t, p.LPTotalSupply)
}

func TestManager_Fees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deposit(t, 1_000_000, 1_000_000)
	_, err := env.manager.Swap(ctx, "A/B", SwapRequest{User: env.user, MintIn: env.mintA, AmountIn: 10_000})
	require.NoError(t, err)

	_, err = env.manager.CollectFees(ctx, "A/B", amm.CollectFeesParams{Caller: env.user, AmountA: 10})
	assert.ErrorIs(t, err, amm.ErrUnauthorized)
	_, err = env.manager.DistributeFees(ctx, "A/B", DistributeFeesRequest{Caller: env.user})
	assert.ErrorIs(t, err, amm.ErrUnauthorized)

	_, err = env.manager.DistributeFees(ctx, "A/B", DistributeFeesRequest{Caller: env.creator, ProtocolAmountA: 1})
	assert.ErrorIs(t, err, amm.ErrInvalidInput)

	protocol := newKey()
	_, err = env.manager.DistributeFees(ctx, "A/B", DistributeFeesRequest{
		Caller: env.creator, Protocol: protocol, ProtocolAmountA: 20, CreatorAmountA: 11,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidInput, "split exceeds accumulated fee")

	res, err := env.manager.DistributeFees(ctx, "A/B", DistributeFeesRequest{
		Caller: env.creator, Protocol: protocol, ProtocolAmountA: 10, CreatorAmountA: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(25), res.AmountA)
	assert.Equal(t, uint64(10), env.balance(t, protocol, env.mintA))
	assert.Equal(t, uint64(15), env.balance(t, env.creator, env.mintA))

	col, err := env.manager.CollectFees(ctx, "A/B", amm.CollectFeesParams{Caller: env.creator, AmountA: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), col.AmountA)

	p, err := env.manager.Get("A/B")
	require.NoError(t, err)
	assert.Zero(t, p.AccumulatedFeeA)
	fee, err := env.ledger.Account(p.FeeVaultA)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), fee.Amount)
	assert.Equal(t, uint64(1_010_000-30), p.ReserveA)
}

func TestManager_SnapshotFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t)
	env.snapshots.err = errors.New("redis down")

	dep := env.deposit(t, 4_000, 9_000)
	assert.Equal(t, uint64(6_000), dep.LPAmount)
}

func TestManager_Bootstrap(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	l := ledger.New(logger)
	m, err := NewManager(ManagerConfig{Ledger: l, Logger: logger})
	require.NoError(t, err)

	def := Definition{
		Name:      "X/Y",
		MintA:     newKey(),
		MintB:     newKey(),
		DecimalsA: 9,
		DecimalsB: 6,
		Creator:   newKey(),
		Fees:      amm.DefaultFeeParams(),
	}
	require.NoError(t, m.Bootstrap(context.Background(), []Definition{def}))
	require.NoError(t, m.Bootstrap(context.Background(), []Definition{def}), "existing pools are skipped")

	mintB, err := l.Mint(def.MintB)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), mintB.Decimals)
	assert.Equal(t, def.Creator, mintB.Authority)
	assert.Len(t, m.List(), 1)
}

func TestNewManager_RequiresLedger(t *testing.T) {
	_, err := NewManager(ManagerConfig{})
	assert.Error(t, err)
}
