package server

import (
	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/gagliardetto/solana-go"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK    bool `json:"ok"`    // Service health status
	Pools int  `json:"pools"` // Number of registered pools
}

// CreatePoolRequest creates a pool for two existing mints
type CreatePoolRequest struct {
	Name    string           `json:"name"`
	MintA   solana.PublicKey `json:"token_mint_a"`
	MintB   solana.PublicKey `json:"token_mint_b"`
	Creator solana.PublicKey `json:"creator"`
	Fees    *amm.FeeParams   `json:"fees,omitempty"` // Defaults apply when omitted
}

// HaltRequest halts trading on a pool
type HaltRequest struct {
	Reason string `json:"reason"`
}

// CreateMintRequest creates a token mint (dev mode only)
type CreateMintRequest struct {
	Authority solana.PublicKey `json:"authority"`
	Decimals  *uint8           `json:"decimals,omitempty"`
}

// CreateMintResponse returns the new mint address
type CreateMintResponse struct {
	Mint      solana.PublicKey `json:"mint"`
	Authority solana.PublicKey `json:"authority"`
	Decimals  uint8            `json:"decimals"`
}

// FaucetRequest mints test tokens into the owner's associated account (dev mode only)
type FaucetRequest struct {
	Owner  solana.PublicKey `json:"owner"`
	Mint   solana.PublicKey `json:"mint"`
	Amount uint64           `json:"amount"`
}

// FaucetResponse returns the funded account and the ledger signature
type FaucetResponse struct {
	Account   solana.PublicKey `json:"account"`
	Signature string           `json:"signature"`
}
