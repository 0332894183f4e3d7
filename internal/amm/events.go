package amm

import "github.com/gagliardetto/solana-go"

type EventKind string

const (
	KindPoolCreated      EventKind = "pool_created"
	KindLiquidityAdded   EventKind = "liquidity_added"
	KindLiquidityRemoved EventKind = "liquidity_removed"
	KindSwap             EventKind = "swap"
	KindFeesCollected    EventKind = "fees_collected"
	KindFeesDistributed  EventKind = "fees_distributed"
)

// Event is a notification emitted after a pool operation committed.
type Event interface {
	Kind() EventKind
	PoolID() solana.PublicKey
}

type PoolCreated struct {
	Pool       solana.PublicKey `json:"pool"`
	MintA      solana.PublicKey `json:"mint_a"`
	MintB      solana.PublicKey `json:"mint_b"`
	BaseFeeBps uint64           `json:"base_fee_bps"`
	Creator    solana.PublicKey `json:"creator"`
	Timestamp  int64            `json:"timestamp"`
}

type LiquidityAdded struct {
	Pool        solana.PublicKey `json:"pool"`
	User        solana.PublicKey `json:"user"`
	AmountA     uint64           `json:"amount_a"`
	AmountB     uint64           `json:"amount_b"`
	LPMinted    uint64           `json:"lp_minted"`
	SingleSided bool             `json:"single_sided"`
	Timestamp   int64            `json:"timestamp"`
}

type LiquidityRemoved struct {
	Pool      solana.PublicKey `json:"pool"`
	User      solana.PublicKey `json:"user"`
	AmountA   uint64           `json:"amount_a"`
	AmountB   uint64           `json:"amount_b"`
	LPBurned  uint64           `json:"lp_burned"`
	Timestamp int64            `json:"timestamp"`
}

type Swap struct {
	Pool                  solana.PublicKey `json:"pool"`
	User                  solana.PublicKey `json:"user"`
	MintIn                solana.PublicKey `json:"mint_in"`
	MintOut               solana.PublicKey `json:"mint_out"`
	AmountIn              uint64           `json:"amount_in"`
	AmountOut             uint64           `json:"amount_out"`
	FeeAmount             uint64           `json:"fee_amount"`
	BaseFeeBps            uint64           `json:"base_fee_bps"`
	VariableFeeBps        uint64           `json:"variable_fee_bps"`
	VolatilityAccumulator uint64           `json:"volatility_accumulator"`
	Price                 uint64           `json:"price"`
	Timestamp             int64            `json:"timestamp"`
}

type FeesCollected struct {
	Pool      solana.PublicKey `json:"pool"`
	Caller    solana.PublicKey `json:"caller"`
	AmountA   uint64           `json:"amount_a"`
	AmountB   uint64           `json:"amount_b"`
	Timestamp int64            `json:"timestamp"`
}

type FeesDistributed struct {
	Pool            solana.PublicKey `json:"pool"`
	Caller          solana.PublicKey `json:"caller"`
	ProtocolAmountA uint64           `json:"protocol_amount_a"`
	CreatorAmountA  uint64           `json:"creator_amount_a"`
	ProtocolAmountB uint64           `json:"protocol_amount_b"`
	CreatorAmountB  uint64           `json:"creator_amount_b"`
	Timestamp       int64            `json:"timestamp"`
}

func (e *PoolCreated) Kind() EventKind      { return KindPoolCreated }
func (e *LiquidityAdded) Kind() EventKind   { return KindLiquidityAdded }
func (e *LiquidityRemoved) Kind() EventKind { return KindLiquidityRemoved }
func (e *Swap) Kind() EventKind             { return KindSwap }
func (e *FeesCollected) Kind() EventKind    { return KindFeesCollected }
func (e *FeesDistributed) Kind() EventKind  { return KindFeesDistributed }

func (e *PoolCreated) PoolID() solana.PublicKey      { return e.Pool }
func (e *LiquidityAdded) PoolID() solana.PublicKey   { return e.Pool }
func (e *LiquidityRemoved) PoolID() solana.PublicKey { return e.Pool }
func (e *Swap) PoolID() solana.PublicKey             { return e.Pool }
func (e *FeesCollected) PoolID() solana.PublicKey    { return e.Pool }
func (e *FeesDistributed) PoolID() solana.PublicKey  { return e.Pool }
