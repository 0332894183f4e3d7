package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/labstack/echo/v4"
)

// PoolsList returns every registered pool with its spot price
func (h *Handlers) PoolsList(c echo.Context) error {
	now := time.Now()
	list := h.Pools.List()
	items := make([]*models.PoolSnapshot, 0, len(list))
	for _, p := range list {
		items = append(items, models.NewPoolSnapshot(p, now))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// PoolsCreate provisions and initializes a pool for two existing mints
func (h *Handlers) PoolsCreate(c echo.Context) error {
	var req CreatePoolRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if req.MintA.IsZero() || req.MintB.IsZero() {
		return h.err(c, http.StatusBadRequest, "token mints are required", nil)
	}
	if req.Creator.IsZero() {
		return h.err(c, http.StatusBadRequest, "creator is required", nil)
	}
	fees := amm.DefaultFeeParams()
	if req.Fees != nil {
		fees = *req.Fees
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Pools.CreatePool(ctx, pools.Definition{
		Name:    strings.TrimSpace(req.Name),
		MintA:   req.MintA,
		MintB:   req.MintB,
		Creator: req.Creator,
		Fees:    fees,
	})
	if err != nil {
		return h.fail(c, err, "failed to create pool")
	}
	return c.JSON(http.StatusCreated, models.NewPoolSnapshot(p, time.Now()))
}

// PoolsGet returns a pool by name or address
func (h *Handlers) PoolsGet(c echo.Context) error {
	p, err := h.Pools.Get(c.Param("pool"))
	if err != nil {
		return h.fail(c, err, "failed to get pool")
	}
	return c.JSON(http.StatusOK, models.NewPoolSnapshot(p, time.Now()))
}

// PoolsSnapshot returns the last snapshot written to the cache
func (h *Handlers) PoolsSnapshot(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}
	p, err := h.Pools.Get(c.Param("pool"))
	if err != nil {
		return h.fail(c, err, "failed to get pool")
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	snap, err := h.Cache.GetPool(ctx, p.ID.String())
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "snapshot not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get snapshot", nil)
	}
	return c.JSON(http.StatusOK, snap)
}
