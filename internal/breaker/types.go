package breaker

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("halt not found")

// Halt marks a pool whose swaps and deposits are rejected until resumed.
type Halt struct {
	Pool     string    `json:"pool"`
	Reason   string    `json:"reason,omitempty"`
	HaltedAt time.Time `json:"halted_at"`
}
