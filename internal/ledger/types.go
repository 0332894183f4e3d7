package ledger

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrMintNotFound      = errors.New("mint not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountFrozen     = errors.New("account is frozen")
	ErrMintMismatch      = errors.New("mint mismatch")
	ErrOwnerMismatch     = errors.New("owner does not match authority")
	ErrAuthorityMismatch = errors.New("mint authority mismatch")
	ErrSupplyOverflow    = errors.New("supply overflow")
	ErrTxClosed          = errors.New("transaction already closed")
)

// Account is an SPL-style token account.
type Account struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
	Frozen  bool             `json:"frozen"`
}

type Mint struct {
	Address   solana.PublicKey `json:"address"`
	Authority solana.PublicKey `json:"authority"`
	Supply    uint64           `json:"supply"`
	Decimals  uint8            `json:"decimals"`
}
