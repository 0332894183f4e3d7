package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/breaker"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Pools       *pools.Manager    // Pool engines and the token ledger
	Cache       storage.SwapCache // Redis-backed swap and snapshot cache (optional)
	Halts       *breaker.Store    // Redis-backed trading halts (optional)
	RecentLimit int               // Default page size of RecentSwaps
	DevMode     bool              // Enable detailed error responses and dev routes
	Logger      *logrus.Logger    // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail maps an operation error to its status. Client errors carry the error
// text; server errors only a fixed message.
func (h *Handlers) fail(c echo.Context, err error, msg string) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.Path()).Error(msg)
		return h.err(c, code, msg, map[string]any{"err": err.Error()})
	}
	return h.err(c, code, err.Error(), nil)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Pools: len(h.Pools.List())})
}

// RecentSwaps returns the most recent swaps with optional pool and limit parameters
// Accepts limit query parameter (default: RecentLimit or 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := constants.DefaultRecentSwaps
	if h.RecentLimit > 0 {
		limit = h.RecentLimit
	}
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentSwaps {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	pool := strings.TrimSpace(c.QueryParam("pool"))
	if pool != "" {
		p, err := h.Pools.Get(pool)
		if err != nil {
			return h.fail(c, err, "failed to resolve pool")
		}
		pool = p.ID.String()
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, pool, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// HaltsList returns every active trading halt
func (h *Handlers) HaltsList(c echo.Context) error {
	if h.Halts == nil {
		return h.err(c, http.StatusServiceUnavailable, "halts are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Halts.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list halts", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// HaltGet returns the halt record of a pool, 404 when trading is open
func (h *Handlers) HaltGet(c echo.Context) error {
	if h.Halts == nil {
		return h.err(c, http.StatusServiceUnavailable, "halts are not configured", nil)
	}
	p, err := h.Pools.Get(c.Param("pool"))
	if err != nil {
		return h.fail(c, err, "failed to resolve pool")
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Halts.Get(ctx, p.ID.String())
	if err != nil {
		if errors.Is(err, breaker.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "pool is not halted", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get halt", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// HaltPool stops swaps and deposits on a pool until it is resumed
func (h *Handlers) HaltPool(c echo.Context) error {
	if h.Halts == nil {
		return h.err(c, http.StatusServiceUnavailable, "halts are not configured", nil)
	}
	p, err := h.Pools.Get(c.Param("pool"))
	if err != nil {
		return h.fail(c, err, "failed to resolve pool")
	}
	var req HaltRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Halts.Halt(ctx, p.ID.String(), strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "failed to halt pool", map[string]any{"err": err.Error()})
	}
	h.Logger.WithFields(logrus.Fields{"pool": p.ID.String(), "reason": out.Reason}).Warn("trading halted")
	return c.JSON(http.StatusOK, out)
}

// ResumePool lifts a trading halt
// Returns 204 No Content on success
func (h *Handlers) ResumePool(c echo.Context) error {
	if h.Halts == nil {
		return h.err(c, http.StatusServiceUnavailable, "halts are not configured", nil)
	}
	p, err := h.Pools.Get(c.Param("pool"))
	if err != nil {
		return h.fail(c, err, "failed to resolve pool")
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Halts.Resume(ctx, p.ID.String()); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resume pool", nil)
	}
	h.Logger.WithField("pool", p.ID.String()).Info("trading resumed")
	return c.NoContent(http.StatusNoContent)
}
