package models

import (
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
)

// PoolSnapshot is the cached view of a pool after its latest committed operation.
type PoolSnapshot struct {
	Pool      amm.Pool  `json:"pool"`
	SpotPrice float64   `json:"spot_price"` // b per a
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPoolSnapshot(p amm.Pool, at time.Time) *PoolSnapshot {
	return &PoolSnapshot{
		Pool:      p,
		SpotPrice: float64(p.SpotPrice()) / float64(amm.PriceScale),
		UpdatedAt: at.UTC(),
	}
}
