package amm

import "errors"

// Error taxonomy of the pool engine. Every operation returns one of these
// (possibly wrapped with context) or a wrapped capability error.
var (
	ErrOverflow              = errors.New("arithmetic overflow")
	ErrMath                  = errors.New("math error")
	ErrInvalidInput          = errors.New("invalid input parameters")
	ErrInvalidFeeConfig      = errors.New("invalid fee configuration")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSlippageExceeded      = errors.New("slippage tolerance exceeded")
	ErrReentrancyDetected    = errors.New("reentrancy detected")
	ErrUnauthorized          = errors.New("unauthorized operation")
)
