package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/labstack/echo/v4"
)

const tradeTimeout = 5 * time.Second

// Swap executes an exact-input swap for the user
func (h *Handlers) Swap(c echo.Context) error {
	var req pools.SwapRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.User.IsZero() {
		return h.err(c, http.StatusBadRequest, "user is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), tradeTimeout)
	defer cancel()

	out, err := h.Pools.Swap(ctx, c.Param("pool"), req)
	if err != nil {
		return h.fail(c, err, "swap failed")
	}
	return c.JSON(http.StatusOK, out)
}

// AddLiquidity deposits both tokens at the current pool ratio
func (h *Handlers) AddLiquidity(c echo.Context) error {
	var req pools.AddLiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.User.IsZero() {
		return h.err(c, http.StatusBadRequest, "user is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), tradeTimeout)
	defer cancel()

	out, err := h.Pools.AddLiquidity(ctx, c.Param("pool"), req)
	if err != nil {
		return h.fail(c, err, "add liquidity failed")
	}
	return c.JSON(http.StatusOK, out)
}

// AddSingleSidedLiquidity deposits one token and moves the pool price
func (h *Handlers) AddSingleSidedLiquidity(c echo.Context) error {
	var req pools.SingleSidedRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.User.IsZero() {
		return h.err(c, http.StatusBadRequest, "user is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), tradeTimeout)
	defer cancel()

	out, err := h.Pools.AddSingleSidedLiquidity(ctx, c.Param("pool"), req)
	if err != nil {
		return h.fail(c, err, "add liquidity failed")
	}
	return c.JSON(http.StatusOK, out)
}

// RemoveLiquidity burns LP tokens and returns both reserves pro rata
func (h *Handlers) RemoveLiquidity(c echo.Context) error {
	var req pools.RemoveLiquidityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.User.IsZero() {
		return h.err(c, http.StatusBadRequest, "user is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), tradeTimeout)
	defer cancel()

	out, err := h.Pools.RemoveLiquidity(ctx, c.Param("pool"), req)
	if err != nil {
		return h.fail(c, err, "remove liquidity failed")
	}
	return c.JSON(http.StatusOK, out)
}

// CollectFees sweeps accumulated fees into the pool's fee vaults (creator only).
// Caller is taken from the body unsigned, like DistributeFees.
func (h *Handlers) CollectFees(c echo.Context) error {
	var req amm.CollectFeesParams
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), tradeTimeout)
	defer cancel()

	out, err := h.Pools.CollectFees(ctx, c.Param("pool"), req)
	if err != nil {
		return h.fail(c, err, "collect fees failed")
	}
	return c.JSON(http.StatusOK, out)
}

// DistributeFees pays accumulated fees to the protocol and the creator (creator only).
// Caller comes from the request body and is not signed, so the API key
// middleware is the only real gate.
func (h *Handlers) DistributeFees(c echo.Context) error {
	var req pools.DistributeFeesRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), tradeTimeout)
	defer cancel()

	out, err := h.Pools.DistributeFees(ctx, c.Param("pool"), req)
	if err != nil {
		return h.fail(c, err, "distribute fees failed")
	}
	return c.JSON(http.StatusOK, out)
}
