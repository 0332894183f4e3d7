package amm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errFakeTransfer = errors.New("transfer rejected")

type fakeAccount struct {
	mint   solana.PublicKey
	owner  solana.PublicKey
	amount uint64
}

// fakeTokens is a minimal token program that records every movement.
type fakeTokens struct {
	accounts      map[solana.PublicKey]*fakeAccount
	supply        map[solana.PublicKey]uint64
	mintAuthority map[solana.PublicKey]solana.PublicKey
	calls         []string

	onTransfer func()
	failTo     solana.PublicKey
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		accounts:      map[solana.PublicKey]*fakeAccount{},
		supply:        map[solana.PublicKey]uint64{},
		mintAuthority: map[solana.PublicKey]solana.PublicKey{},
	}
}

func (f *fakeTokens) createMint(mint, authority solana.PublicKey) {
	f.mintAuthority[mint] = authority
	f.supply[mint] = 0
}

func (f *fakeTokens) createAccount(addr, mint, owner solana.PublicKey, amount uint64) {
	f.accounts[addr] = &fakeAccount{mint: mint, owner: owner, amount: amount}
	f.supply[mint] += amount
}

func (f *fakeTokens) account(addr solana.PublicKey) (*fakeAccount, error) {
	acc, ok := f.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("account %s not found", addr)
	}
	return acc, nil
}

func (f *fakeTokens) Balance(_ context.Context, addr solana.PublicKey) (uint64, error) {
	acc, err := f.account(addr)
	if err != nil {
		return 0, err
	}
	return acc.amount, nil
}

func (f *fakeTokens) Supply(_ context.Context, mint solana.PublicKey) (uint64, error) {
	s, ok := f.supply[mint]
	if !ok {
		return 0, fmt.Errorf("mint %s not found", mint)
	}
	return s, nil
}

func (f *fakeTokens) MintOf(_ context.Context, addr solana.PublicKey) (solana.PublicKey, error) {
	acc, err := f.account(addr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acc.mint, nil
}

func (f *fakeTokens) Transfer(_ context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	if hook := f.onTransfer; hook != nil {
		f.onTransfer = nil
		hook()
	}
	if to.Equals(f.failTo) {
		return errFakeTransfer
	}
	src, err := f.account(from)
	if err != nil {
		return err
	}
	dst, err := f.account(to)
	if err != nil {
		return err
	}
	if !src.owner.Equals(authority) {
		return fmt.Errorf("owner mismatch on %s", from)
	}
	if !src.mint.Equals(dst.mint) {
		return fmt.Errorf("mint mismatch %s -> %s", from, to)
	}
	if src.amount < amount {
		return fmt.Errorf("insufficient funds in %s", from)
	}
	src.amount -= amount
	dst.amount += amount
	f.calls = append(f.calls, "transfer")
	return nil
}

func (f *fakeTokens) MintTo(_ context.Context, mint, to, authority solana.PublicKey, amount uint64) error {
	if !f.mintAuthority[mint].Equals(authority) {
		return fmt.Errorf("bad mint authority")
	}
	dst, err := f.account(to)
	if err != nil {
		return err
	}
	dst.amount += amount
	f.supply[mint] += amount
	f.calls = append(f.calls, "mint")
	return nil
}

func (f *fakeTokens) Burn(_ context.Context, mint, from, authority solana.PublicKey, amount uint64) error {
	src, err := f.account(from)
	if err != nil {
		return err
	}
	if !src.owner.Equals(authority) || !src.mint.Equals(mint) {
		return fmt.Errorf("bad burn")
	}
	if src.amount < amount {
		return fmt.Errorf("insufficient lp")
	}
	src.amount -= amount
	f.supply[mint] -= amount
	f.calls = append(f.calls, "burn")
	return nil
}

type fakeClock struct{ now int64 }

func (c *fakeClock) Now() int64 { return c.now }

type recordingSink struct{ events []Event }

func (s *recordingSink) sink() EventSink {
	return SinkFunc(func(_ context.Context, ev Event) { s.events = append(s.events, ev) })
}

func (s *recordingSink) kinds() []EventKind {
	out := make([]EventKind, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind())
	}
	return out
}

type fixture struct {
	engine *Engine
	tokens *fakeTokens
	clock  *fakeClock
	sink   *recordingSink

	creator solana.PublicKey
	user    solana.PublicKey
	userA   solana.PublicKey
	userB   solana.PublicKey
	userLP  solana.PublicKey
	mintA   solana.PublicKey
	mintB   solana.PublicKey
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func testFees() FeeParams {
	return FeeParams{
		BaseFeeBps:     30,
		VariableFactor: 1,
		FilterPeriod:   10,
		DecayPeriod:    60,
		DecayFactorBps: 5_000,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const userFunds = 1_000_000_000_000

func newFixture(t *testing.T, fees FeeParams) *fixture {
	t.Helper()

	f := &fixture{
		tokens:  newFakeTokens(),
		clock:   &fakeClock{now: 1_000},
		sink:    &recordingSink{},
		creator: newKey(),
		user:    newKey(),
		userA:   newKey(),
		userB:   newKey(),
		userLP:  newKey(),
		mintA:   newKey(),
		mintB:   newKey(),
	}

	addrs, err := DeriveAddresses(DefaultProgramID, f.mintA, f.mintB)
	require.NoError(t, err)

	f.tokens.createMint(f.mintA, f.creator)
	f.tokens.createMint(f.mintB, f.creator)
	f.tokens.createMint(addrs.LPMint, addrs.Authority)
	f.tokens.createAccount(addrs.VaultA, f.mintA, addrs.Authority, 0)
	f.tokens.createAccount(addrs.VaultB, f.mintB, addrs.Authority, 0)
	f.tokens.createAccount(addrs.FeeVaultA, f.mintA, addrs.Authority, 0)
	f.tokens.createAccount(addrs.FeeVaultB, f.mintB, addrs.Authority, 0)
	f.tokens.createAccount(f.userA, f.mintA, f.user, userFunds)
	f.tokens.createAccount(f.userB, f.mintB, f.user, userFunds)
	f.tokens.createAccount(f.userLP, addrs.LPMint, f.user, 0)

	f.engine, err = Initialize(context.Background(), InitParams{
		Name:    "TEST-A/TEST-B",
		Addrs:   addrs,
		MintA:   f.mintA,
		MintB:   f.mintB,
		Creator: f.creator,
		Fees:    fees,
	}, EngineConfig{Clock: f.clock, Events: f.sink.sink(), Logger: quietLogger()})
	require.NoError(t, err)
	return f
}

func (f *fixture) deposit(t *testing.T, a, b uint64) *LiquidityResult {
	t.Helper()
	res, err := f.engine.AddLiquidity(context.Background(), f.tokens, AddLiquidityParams{
		User:           f.user,
		UserTokenA:     f.userA,
		UserTokenB:     f.userB,
		UserLP:         f.userLP,
		AmountADesired: a,
		AmountBDesired: b,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) swapAToB(amountIn, minOut uint64) (*SwapQuote, error) {
	return f.engine.Swap(context.Background(), f.tokens, SwapParams{
		User:         f.user,
		Source:       f.userA,
		Destination:  f.userB,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
	})
}

func (f *fixture) swapBToA(amountIn, minOut uint64) (*SwapQuote, error) {
	return f.engine.Swap(context.Background(), f.tokens, SwapParams{
		User:         f.user,
		Source:       f.userB,
		Destination:  f.userA,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
	})
}

func (f *fixture) balance(t *testing.T, addr solana.PublicKey) uint64 {
	t.Helper()
	b, err := f.tokens.Balance(context.Background(), addr)
	require.NoError(t, err)
	return b
}
