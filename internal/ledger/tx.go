package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Tx is an open ledger transaction. Writes are applied in place and journaled:
// the first write to an account or mint records its prior state so Rollback
// can restore it. A Tx is bound to the goroutine that opened it.
type Tx struct {
	l        *Ledger
	accounts map[solana.PublicKey]*Account // prior state, nil if created in this tx
	mints    map[solana.PublicKey]*Mint
	ops      int
	closed   bool
}

func (tx *Tx) touchAccount(addr solana.PublicKey) {
	if _, seen := tx.accounts[addr]; seen {
		return
	}
	if acc, ok := tx.l.accounts[addr]; ok {
		prior := *acc
		tx.accounts[addr] = &prior
		return
	}
	tx.accounts[addr] = nil
}

func (tx *Tx) touchMint(addr solana.PublicKey) {
	if _, seen := tx.mints[addr]; seen {
		return
	}
	if m, ok := tx.l.mints[addr]; ok {
		prior := *m
		tx.mints[addr] = &prior
		return
	}
	tx.mints[addr] = nil
}

func (tx *Tx) check(ctx context.Context) error {
	if tx.closed {
		return ErrTxClosed
	}
	return ctx.Err()
}

func (tx *Tx) account(addr solana.PublicKey) (*Account, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	acc, ok := tx.l.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc, nil
}

func (tx *Tx) mint(addr solana.PublicKey) (*Mint, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	m, ok := tx.l.mints[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMintNotFound, addr)
	}
	return m, nil
}

func (tx *Tx) CreateMint(addr, authority solana.PublicKey, decimals uint8) error {
	if tx.closed {
		return ErrTxClosed
	}
	if _, ok := tx.l.mints[addr]; ok {
		return fmt.Errorf("%w: mint %s", ErrAccountExists, addr)
	}
	tx.touchMint(addr)
	tx.l.mints[addr] = &Mint{Address: addr, Authority: authority, Decimals: decimals}
	tx.ops++
	return nil
}

func (tx *Tx) CreateAccount(addr, mint, owner solana.PublicKey) error {
	if tx.closed {
		return ErrTxClosed
	}
	if _, ok := tx.l.accounts[addr]; ok {
		return fmt.Errorf("%w: account %s", ErrAccountExists, addr)
	}
	if _, err := tx.mint(mint); err != nil {
		return err
	}
	tx.touchAccount(addr)
	tx.l.accounts[addr] = &Account{Address: addr, Mint: mint, Owner: owner}
	tx.ops++
	return nil
}

// OpenAssociated returns owner's associated token account for mint, creating
// it inside tx when missing.
func (tx *Tx) OpenAssociated(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, err := FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ata: %w", err)
	}
	if tx.closed {
		return solana.PublicKey{}, ErrTxClosed
	}
	if _, ok := tx.l.accounts[ata]; ok {
		return ata, nil
	}
	if err := tx.CreateAccount(ata, mint, owner); err != nil {
		return solana.PublicKey{}, err
	}
	return ata, nil
}

func (tx *Tx) Balance(_ context.Context, addr solana.PublicKey) (uint64, error) {
	acc, err := tx.account(addr)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

func (tx *Tx) Supply(_ context.Context, mint solana.PublicKey) (uint64, error) {
	m, err := tx.mint(mint)
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

func (tx *Tx) MintOf(_ context.Context, addr solana.PublicKey) (solana.PublicKey, error) {
	acc, err := tx.account(addr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acc.Mint, nil
}

func (tx *Tx) Transfer(ctx context.Context, from, to, authority solana.PublicKey, amount uint64) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	src, err := tx.account(from)
	if err != nil {
		return err
	}
	dst, err := tx.account(to)
	if err != nil {
		return err
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, from, to)
	}
	if src.Frozen || dst.Frozen {
		return ErrAccountFrozen
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, src.Amount, amount)
	}
	if dst.Amount+amount < dst.Amount {
		return ErrSupplyOverflow
	}
	if amount == 0 || from.Equals(to) {
		return nil
	}

	tx.touchAccount(from)
	tx.touchAccount(to)
	src.Amount -= amount
	dst.Amount += amount
	tx.ops++
	return nil
}

func (tx *Tx) MintTo(ctx context.Context, mint, to, authority solana.PublicKey, amount uint64) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	m, err := tx.mint(mint)
	if err != nil {
		return err
	}
	dst, err := tx.account(to)
	if err != nil {
		return err
	}
	if !m.Authority.Equals(authority) {
		return fmt.Errorf("%w: %s", ErrAuthorityMismatch, mint)
	}
	if !dst.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s is not a %s account", ErrMintMismatch, to, mint)
	}
	if dst.Frozen {
		return ErrAccountFrozen
	}
	if m.Supply+amount < m.Supply {
		return ErrSupplyOverflow
	}

	tx.touchMint(mint)
	tx.touchAccount(to)
	m.Supply += amount
	dst.Amount += amount
	tx.ops++
	return nil
}

func (tx *Tx) Burn(ctx context.Context, mint, from, authority solana.PublicKey, amount uint64) error {
	if err := tx.check(ctx); err != nil {
		return err
	}
	m, err := tx.mint(mint)
	if err != nil {
		return err
	}
	src, err := tx.account(from)
	if err != nil {
		return err
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if !src.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s is not a %s account", ErrMintMismatch, from, mint)
	}
	if src.Frozen {
		return ErrAccountFrozen
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, burning %d", ErrInsufficientFunds, from, src.Amount, amount)
	}

	tx.touchMint(mint)
	tx.touchAccount(from)
	m.Supply -= amount
	src.Amount -= amount
	tx.ops++
	return nil
}

// Commit keeps every write and returns the transaction signature.
func (tx *Tx) Commit() (string, error) {
	if tx.closed {
		return "", ErrTxClosed
	}
	sig, err := newSignature()
	if err != nil {
		tx.Rollback()
		return "", err
	}
	tx.closed = true
	tx.l.mu.Unlock()

	tx.l.logger.WithFields(logrus.Fields{
		"signature": sig,
		"ops":       tx.ops,
	}).Debug("ledger commit")
	return sig, nil
}

// Rollback restores every account and mint the transaction touched. It is a
// no-op on a closed transaction.
func (tx *Tx) Rollback() {
	if tx.closed {
		return
	}
	for addr, prior := range tx.accounts {
		if prior == nil {
			delete(tx.l.accounts, addr)
			continue
		}
		*tx.l.accounts[addr] = *prior
	}
	for addr, prior := range tx.mints {
		if prior == nil {
			delete(tx.l.mints, addr)
			continue
		}
		*tx.l.mints[addr] = *prior
	}
	tx.closed = true
	tx.l.mu.Unlock()

	if tx.ops > 0 {
		tx.l.logger.WithField("ops", tx.ops).Debug("ledger rollback")
	}
}
