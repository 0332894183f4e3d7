package amm

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// BalanceReader exposes the read side of the token ledger.
type BalanceReader interface {
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	Supply(ctx context.Context, mint solana.PublicKey) (uint64, error)
	MintOf(ctx context.Context, account solana.PublicKey) (solana.PublicKey, error)
}

// TokenProgram moves, mints and burns fungible balances. The authority argument
// is the signer presented for the movement: the user for their own accounts and
// the pool authority for vaults and the LP mint. Any error aborts the operation.
type TokenProgram interface {
	BalanceReader
	Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error
	MintTo(ctx context.Context, mint, to, authority solana.PublicKey, amount uint64) error
	Burn(ctx context.Context, mint, from, authority solana.PublicKey, amount uint64) error
}

// Clock returns unix seconds.
type Clock interface {
	Now() int64
}

type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// EventSink receives pool notifications. Emit must not block the caller for
// long and has no way to fail the operation that produced the event.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }
