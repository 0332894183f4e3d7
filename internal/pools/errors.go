package pools

import "errors"

var (
	ErrPoolNotFound  = errors.New("pool not found")
	ErrPoolExists    = errors.New("pool already exists")
	ErrTradingHalted = errors.New("trading halted")
)
