package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
)

type SwapRecord struct {
	ID             string    `json:"id"`
	Signature      string    `json:"signature"`
	Timestamp      time.Time `json:"timestamp"`
	Pool           string    `json:"pool"`
	PoolName       string    `json:"pool_name,omitempty"`
	User           string    `json:"user"`
	MintIn         string    `json:"mint_in"`
	MintOut        string    `json:"mint_out"`
	AmountIn       uint64    `json:"amount_in"`
	AmountOut      uint64    `json:"amount_out"`
	FeeAmount      uint64    `json:"fee_amount"`
	BaseFeeBps     uint64    `json:"base_fee_bps"`
	VariableFeeBps uint64    `json:"variable_fee_bps"`
	Volatility     uint64    `json:"volatility"`
	Price          float64   `json:"price"` // out per in, before the trade
}

// SwapRecordFromEnvelope flattens a swap envelope.
func SwapRecordFromEnvelope(env *Envelope) (*SwapRecord, error) {
	if env.Kind != string(amm.KindSwap) {
		return nil, fmt.Errorf("envelope %s is %q, not a swap", env.ID, env.Kind)
	}
	var ev amm.Swap
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal swap payload: %w", err)
	}
	return &SwapRecord{
		ID:             env.ID,
		Signature:      env.Signature,
		Timestamp:      time.Unix(ev.Timestamp, 0).UTC(),
		Pool:           ev.Pool.String(),
		PoolName:       env.PoolName,
		User:           ev.User.String(),
		MintIn:         ev.MintIn.String(),
		MintOut:        ev.MintOut.String(),
		AmountIn:       ev.AmountIn,
		AmountOut:      ev.AmountOut,
		FeeAmount:      ev.FeeAmount,
		BaseFeeBps:     ev.BaseFeeBps,
		VariableFeeBps: ev.VariableFeeBps,
		Volatility:     ev.VolatilityAccumulator,
		Price:          float64(ev.Price) / float64(amm.PriceScale),
	}, nil
}
