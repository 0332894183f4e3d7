package server

import (
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const devMintDecimals = 9

// DevCreateMint creates a fresh token mint on the ledger
func (h *Handlers) DevCreateMint(c echo.Context) error {
	var req CreateMintRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.Authority.IsZero() {
		return h.err(c, http.StatusBadRequest, "authority is required", nil)
	}
	decimals := uint8(devMintDecimals)
	if req.Decimals != nil {
		decimals = *req.Decimals
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	mint := solana.NewWallet().PublicKey()
	if err := h.Pools.Ledger().CreateMint(ctx, mint, req.Authority, decimals); err != nil {
		return h.fail(c, err, "failed to create mint")
	}
	return c.JSON(http.StatusCreated, CreateMintResponse{Mint: mint, Authority: req.Authority, Decimals: decimals})
}

// DevFaucet mints tokens into the owner's associated account, creating it when missing
func (h *Handlers) DevFaucet(c echo.Context) error {
	var req FaucetRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.Owner.IsZero() || req.Mint.IsZero() {
		return h.err(c, http.StatusBadRequest, "owner and mint are required", nil)
	}
	if req.Amount == 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be > 0"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	l := h.Pools.Ledger()
	if _, err := l.Mint(req.Mint); err != nil {
		return h.fail(c, err, "faucet failed")
	}
	ata, err := l.OpenAssociated(ctx, req.Owner, req.Mint)
	if err != nil {
		return h.fail(c, err, "faucet failed")
	}
	sig, err := l.Airdrop(ctx, ata, req.Amount)
	if err != nil {
		return h.fail(c, err, "faucet failed")
	}

	h.Logger.WithFields(logrus.Fields{
		"owner":  req.Owner.String(),
		"mint":   req.Mint.String(),
		"amount": req.Amount,
	}).Debug("faucet airdrop")
	return c.JSON(http.StatusOK, FaucetResponse{Account: ata, Signature: sig})
}

// DevAccounts lists the owner's token accounts
func (h *Handlers) DevAccounts(c echo.Context) error {
	owner, err := solana.PublicKeyFromBase58(c.Param("owner"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", map[string]any{"owner": "must be base58"})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": h.Pools.Ledger().AccountsByOwner(owner)})
}
