package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// Ledger is an in-memory token ledger. All mutations go through a Tx, which
// holds the ledger lock until it commits or rolls back.
type Ledger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
	mints    map[solana.PublicKey]*Mint
	logger   *logrus.Logger
}

func New(logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{
		accounts: make(map[solana.PublicKey]*Account),
		mints:    make(map[solana.PublicKey]*Mint),
		logger:   logger,
	}
}

// Begin opens a transaction. The caller must Commit or Rollback it.
func (l *Ledger) Begin() *Tx {
	l.mu.Lock()
	return &Tx{
		l:        l,
		accounts: make(map[solana.PublicKey]*Account),
		mints:    make(map[solana.PublicKey]*Mint),
	}
}

// Update runs fn inside a transaction and commits it when fn succeeds. Any
// error discards every write fn made.
func (l *Ledger) Update(ctx context.Context, fn func(tx *Tx) error) (string, error) {
	tx := l.Begin()
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return tx.Commit()
}

// View runs fn against a transaction that is always rolled back.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	tx := l.Begin()
	defer tx.Rollback()
	return fn(tx)
}

func (l *Ledger) CreateMint(ctx context.Context, addr, authority solana.PublicKey, decimals uint8) error {
	_, err := l.Update(ctx, func(tx *Tx) error {
		return tx.CreateMint(addr, authority, decimals)
	})
	return err
}

func (l *Ledger) CreateAccount(ctx context.Context, addr, mint, owner solana.PublicKey) error {
	_, err := l.Update(ctx, func(tx *Tx) error {
		return tx.CreateAccount(addr, mint, owner)
	})
	return err
}

// OpenAssociated returns owner's associated token account for mint, creating
// it when missing.
func (l *Ledger) OpenAssociated(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	var ata solana.PublicKey
	_, err := l.Update(ctx, func(tx *Tx) (err error) {
		ata, err = tx.OpenAssociated(owner, mint)
		return err
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	return ata, nil
}

// Airdrop mints amount of the account's mint into it without an authority
// check. Used by the dev faucet only.
func (l *Ledger) Airdrop(ctx context.Context, account solana.PublicKey, amount uint64) (string, error) {
	return l.Update(ctx, func(tx *Tx) error {
		acc, err := tx.account(account)
		if err != nil {
			return err
		}
		m, err := tx.mint(acc.Mint)
		if err != nil {
			return err
		}
		return tx.MintTo(ctx, m.Address, account, m.Authority, amount)
	})
}

func (l *Ledger) Freeze(ctx context.Context, account solana.PublicKey, frozen bool) error {
	_, err := l.Update(ctx, func(tx *Tx) error {
		acc, err := tx.account(account)
		if err != nil {
			return err
		}
		tx.touchAccount(account)
		acc.Frozen = frozen
		return nil
	})
	return err
}

func (l *Ledger) Account(addr solana.PublicKey) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return *acc, nil
}

func (l *Ledger) Mint(addr solana.PublicKey) (Mint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[addr]
	if !ok {
		return Mint{}, fmt.Errorf("%w: %s", ErrMintNotFound, addr)
	}
	return *m, nil
}

// AccountsByOwner lists owner's token accounts ordered by address.
func (l *Ledger) AccountsByOwner(owner solana.PublicKey) []Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Account, 0)
	for _, acc := range l.accounts {
		if acc.Owner.Equals(owner) {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out
}

func newSignature() (string, error) {
	var sig [64]byte
	if _, err := rand.Read(sig[:]); err != nil {
		return "", fmt.Errorf("signature entropy: %w", err)
	}
	return base58.Encode(sig[:]), nil
}
