package amm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LockState is the swap reentrancy guard of a pool.
type LockState uint8

const (
	LockIdle LockState = iota
	LockInSwap
)

func (s LockState) String() string {
	switch s {
	case LockIdle:
		return "idle"
	case LockInSwap:
		return "in_swap"
	default:
		return fmt.Sprintf("lock(%d)", uint8(s))
	}
}

func (s LockState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LockState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = LockIdle
	case "in_swap":
		*s = LockInSwap
	default:
		return fmt.Errorf("unknown lock state %q", b)
	}
	return nil
}

// FeeParams are the immutable fee and volatility settings chosen at pool creation.
type FeeParams struct {
	BaseFeeBps     uint64 `json:"base_fee_bps"`
	VariableFactor uint64 `json:"variable_factor"`
	FilterPeriod   int64  `json:"filter_period"`
	DecayPeriod    int64  `json:"decay_period"`
	DecayFactorBps uint64 `json:"decay_factor_bps"`
}

// DefaultFeeParams returns a 30 bps pool with a moderate volatility response.
func DefaultFeeParams() FeeParams {
	return FeeParams{
		BaseFeeBps:     30,
		VariableFactor: 10,
		FilterPeriod:   30,
		DecayPeriod:    600,
		DecayFactorBps: 5_000,
	}
}

func (f FeeParams) Validate() error {
	if f.BaseFeeBps > MaxBaseFeeBps {
		return fmt.Errorf("%w: base fee %d bps exceeds %d", ErrInvalidFeeConfig, f.BaseFeeBps, MaxBaseFeeBps)
	}
	if f.FilterPeriod < 0 {
		return fmt.Errorf("%w: negative filter period", ErrInvalidFeeConfig)
	}
	if f.FilterPeriod >= f.DecayPeriod {
		return fmt.Errorf("%w: filter period %d must be below decay period %d", ErrInvalidFeeConfig, f.FilterPeriod, f.DecayPeriod)
	}
	if f.DecayFactorBps > BpsDenominator {
		return fmt.Errorf("%w: decay factor %d bps exceeds %d", ErrInvalidFeeConfig, f.DecayFactorBps, BpsDenominator)
	}
	return nil
}

// Pool is the state record of one trading pair.
type Pool struct {
	ID            solana.PublicKey `json:"id"`
	Name          string           `json:"name,omitempty"`
	MintA         solana.PublicKey `json:"mint_a"`
	MintB         solana.PublicKey `json:"mint_b"`
	VaultA        solana.PublicKey `json:"vault_a"`
	VaultB        solana.PublicKey `json:"vault_b"`
	LPMint        solana.PublicKey `json:"lp_mint"`
	FeeVaultA     solana.PublicKey `json:"fee_vault_a"`
	FeeVaultB     solana.PublicKey `json:"fee_vault_b"`
	Creator       solana.PublicKey `json:"creator"`
	Authority     solana.PublicKey `json:"authority"`
	AuthorityBump uint8            `json:"authority_bump"`

	ReserveA      uint64 `json:"reserve_a"`
	ReserveB      uint64 `json:"reserve_b"`
	LPTotalSupply uint64 `json:"lp_total_supply"`

	FeeParams

	VolatilityAccumulator uint64 `json:"volatility_accumulator"`
	VolatilityReference   uint64 `json:"volatility_reference"`
	LastPriceReference    uint64 `json:"last_price_reference"`
	LastSwapTimestamp     int64  `json:"last_swap_timestamp"`

	AccumulatedFeeA uint64 `json:"accumulated_fee_a"`
	AccumulatedFeeB uint64 `json:"accumulated_fee_b"`

	Lock LockState `json:"lock"`
}

// InitParams describes a pool to initialize. Addresses are normally produced by
// DeriveAddresses; the vault, LP mint and fee accounts must already exist.
type InitParams struct {
	Name    string
	Addrs   Addresses
	MintA   solana.PublicKey
	MintB   solana.PublicKey
	Creator solana.PublicKey
	Fees    FeeParams
}

func newPool(p InitParams, now int64) (*Pool, error) {
	if err := p.Fees.Validate(); err != nil {
		return nil, err
	}
	if p.MintA.Equals(p.MintB) {
		return nil, fmt.Errorf("%w: identical mints", ErrInvalidInput)
	}
	if p.Creator.IsZero() {
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	return &Pool{
		ID:                p.Addrs.Pool,
		Name:              p.Name,
		MintA:             p.MintA,
		MintB:             p.MintB,
		VaultA:            p.Addrs.VaultA,
		VaultB:            p.Addrs.VaultB,
		LPMint:            p.Addrs.LPMint,
		FeeVaultA:         p.Addrs.FeeVaultA,
		FeeVaultB:         p.Addrs.FeeVaultB,
		Creator:           p.Creator,
		Authority:         p.Addrs.Authority,
		AuthorityBump:     p.Addrs.AuthorityBump,
		FeeParams:         p.Fees,
		LastSwapTimestamp: now,
		Lock:              LockIdle,
	}, nil
}

// side reports whether mint is the pool's A side and whether it belongs to the pool at all.
func (p *Pool) side(mint solana.PublicKey) (isA bool, ok bool) {
	switch {
	case mint.Equals(p.MintA):
		return true, true
	case mint.Equals(p.MintB):
		return false, true
	default:
		return false, false
	}
}

// SpotPrice is reserve_b per reserve_a scaled by PriceScale, zero for an empty pool.
func (p *Pool) SpotPrice() uint64 {
	if p.ReserveA == 0 {
		return 0
	}
	price, err := mulDiv(p.ReserveB, PriceScale, p.ReserveA)
	if err != nil {
		return 0
	}
	return price
}
