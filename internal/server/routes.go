package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/v1/health" // Health stays open for probes
			},
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	// Rate limiting for state-changing pool operations
	swapRate, swapBurst := cfg.SwapRateLimit, cfg.SwapRateBurst
	if swapRate <= 0 {
		swapRate = 20
	}
	if swapBurst <= 0 {
		swapBurst = 40
	}
	trade := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(swapRate),
		Burst:     swapBurst,
		ExpiresIn: 2 * time.Minute, // Rate limit window
	}))

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)            // Health check endpoint
	v1.GET("/swaps/recent", h.RecentSwaps) // Recent swaps, optionally per pool
	v1.GET("/halts", h.HaltsList)          // Active trading halts

	// Pool endpoints
	pg := v1.Group("/pools")
	pg.GET("", h.PoolsList)                    // List all pools
	pg.POST("", h.PoolsCreate)                 // Create pool for two mints
	pg.GET("/:pool", h.PoolsGet)               // Pool by name or address
	pg.GET("/:pool/snapshot", h.PoolsSnapshot) // Last cached snapshot
	pg.GET("/:pool/quote", h.Quote)            // Swap preview
	pg.POST("/:pool/swap", h.Swap, trade)      // Exact-input swap
	pg.POST("/:pool/liquidity", h.AddLiquidity, trade)
	pg.POST("/:pool/liquidity/single", h.AddSingleSidedLiquidity, trade)
	pg.POST("/:pool/liquidity/remove", h.RemoveLiquidity, trade)
	pg.POST("/:pool/fees/collect", h.CollectFees)
	pg.POST("/:pool/fees/distribute", h.DistributeFees)
	pg.GET("/:pool/halt", h.HaltGet)       // Halt record
	pg.POST("/:pool/halt", h.HaltPool)     // Halt trading
	pg.DELETE("/:pool/halt", h.ResumePool) // Resume trading

	// Ledger helpers for local testing
	if cfg.DevMode {
		dev := v1.Group("/dev")
		dev.POST("/mints", h.DevCreateMint)
		dev.POST("/faucet", h.DevFaucet)
		dev.GET("/accounts/:owner", h.DevAccounts)
	}

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
