package server

import (
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/breaker"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, 401, 429)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps engine, ledger and manager errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, pools.ErrPoolNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMintNotFound),
		errors.Is(err, cache.ErrNotFound),
		errors.Is(err, breaker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pools.ErrPoolExists),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, amm.ErrReentrancyDetected):
		return http.StatusConflict
	case errors.Is(err, amm.ErrUnauthorized),
		errors.Is(err, ledger.ErrOwnerMismatch),
		errors.Is(err, ledger.ErrAuthorityMismatch):
		return http.StatusForbidden
	case errors.Is(err, pools.ErrTradingHalted):
		return http.StatusLocked
	case errors.Is(err, amm.ErrInvalidInput),
		errors.Is(err, amm.ErrInvalidFeeConfig),
		errors.Is(err, ledger.ErrMintMismatch):
		return http.StatusBadRequest
	case errors.Is(err, amm.ErrSlippageExceeded),
		errors.Is(err, amm.ErrInsufficientLiquidity),
		errors.Is(err, amm.ErrOverflow),
		errors.Is(err, amm.ErrMath),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrAccountFrozen),
		errors.Is(err, ledger.ErrSupplyOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
