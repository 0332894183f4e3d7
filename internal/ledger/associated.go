package ledger

import (
	"github.com/gagliardetto/solana-go"
)

var (
	// SPL Associated Token Account program
	associatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// FindAssociatedTokenAddress derives the ATA PDA for (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	// Seeds: [owner, token_program, mint]
	ata, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			solana.TokenProgramID.Bytes(),
			mint.Bytes(),
		},
		associatedTokenProgramID,
	)
	return ata, err
}
