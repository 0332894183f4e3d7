package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the program address every pool PDA is derived under
// unless a deployment overrides it.
var DefaultProgramID = solana.MustPublicKeyFromBase58("FVi4yJKtaK46A7dfgAAeoUu1PJhoSknvQGBS8NpAcC7W")

const (
	seedPool          = "pool"
	seedPoolAuthority = "pool_authority"
	seedVault         = "vault"
	seedLPMint        = "lp_mint"
	seedFee           = "fee"
)

// Addresses are the program-derived accounts of one pool.
type Addresses struct {
	Program       solana.PublicKey `json:"program"`
	Pool          solana.PublicKey `json:"pool"`
	Authority     solana.PublicKey `json:"authority"`
	AuthorityBump uint8            `json:"authority_bump"`
	VaultA        solana.PublicKey `json:"vault_a"`
	VaultB        solana.PublicKey `json:"vault_b"`
	LPMint        solana.PublicKey `json:"lp_mint"`
	FeeVaultA     solana.PublicKey `json:"fee_vault_a"`
	FeeVaultB     solana.PublicKey `json:"fee_vault_b"`
}

// DeriveAddresses derives the pool, its signing authority, both vaults, the LP
// mint and the two fee vaults for the (mintA, mintB) pair.
func DeriveAddresses(programID, mintA, mintB solana.PublicKey) (Addresses, error) {
	if mintA.Equals(mintB) {
		return Addresses{}, fmt.Errorf("%w: identical mints", ErrInvalidInput)
	}
	if programID.IsZero() {
		programID = DefaultProgramID
	}

	out := Addresses{Program: programID}
	var err error

	out.Pool, _, err = solana.FindProgramAddress([][]byte{[]byte(seedPool), mintA.Bytes(), mintB.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive pool: %w", err)
	}
	out.Authority, out.AuthorityBump, err = solana.FindProgramAddress([][]byte{[]byte(seedPoolAuthority), mintA.Bytes(), mintB.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive pool authority: %w", err)
	}
	out.VaultA, _, err = solana.FindProgramAddress([][]byte{[]byte(seedVault), out.Pool.Bytes(), mintA.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive vault a: %w", err)
	}
	out.VaultB, _, err = solana.FindProgramAddress([][]byte{[]byte(seedVault), out.Pool.Bytes(), mintB.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive vault b: %w", err)
	}
	out.LPMint, _, err = solana.FindProgramAddress([][]byte{[]byte(seedLPMint), out.Pool.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive lp mint: %w", err)
	}
	out.FeeVaultA, _, err = solana.FindProgramAddress([][]byte{[]byte(seedFee), out.Pool.Bytes(), mintA.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive fee vault a: %w", err)
	}
	out.FeeVaultB, _, err = solana.FindProgramAddress([][]byte{[]byte(seedFee), out.Pool.Bytes(), mintB.Bytes()}, programID)
	if err != nil {
		return Addresses{}, fmt.Errorf("derive fee vault b: %w", err)
	}
	return out, nil
}
