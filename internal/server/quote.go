package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
)

// Quote previews a swap against the pool's current reserves and volatility
// state without changing anything
// Query: mint_in (base58), amount_in (uint64)
func (h *Handlers) Quote(c echo.Context) error {
	mintStr := strings.TrimSpace(c.QueryParam("mint_in"))
	amountStr := strings.TrimSpace(c.QueryParam("amount_in"))

	if mintStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid mint_in", map[string]any{"mint_in": "required"})
	}
	mintIn, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint_in", map[string]any{"mint_in": "must be base58"})
	}
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount_in", map[string]any{"amount_in": "required"})
	}
	amountIn, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount_in", map[string]any{"amount_in": "must be uint64"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	q, err := h.Pools.Quote(ctx, c.Param("pool"), mintIn, amountIn)
	if err != nil {
		return h.fail(c, err, "failed to quote swap")
	}
	return c.JSON(http.StatusOK, q)
}
