package models

import (
	"encoding/json"
	"time"
)

// Envelope carries one pool event over pub/sub and into the stores.
type Envelope struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Pool      string          `json:"pool"`
	PoolName  string          `json:"pool_name,omitempty"`
	Signature string          `json:"signature,omitempty"`
	EmittedAt time.Time       `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload"`
}
