package pools

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/gagliardetto/solana-go"
)

const defaultDecimals = 9

// DefinitionConfig is one pool entry in the JSON definitions file.
type DefinitionConfig struct {
	Name           string `json:"name"`
	TokenMintA     string `json:"token_mint_a"`
	TokenMintB     string `json:"token_mint_b"`
	DecimalsA      *uint8 `json:"decimals_a,omitempty"`
	DecimalsB      *uint8 `json:"decimals_b,omitempty"`
	Creator        string `json:"creator"`
	BaseFeeBps     uint64 `json:"base_fee_bps"`
	VariableFactor uint64 `json:"variable_factor"`
	FilterPeriod   int64  `json:"filter_period"`
	DecayPeriod    int64  `json:"decay_period"`
	DecayFactorBps uint64 `json:"decay_factor_bps"`
}

// Definition is a parsed, validated pool definition.
type Definition struct {
	Name      string
	MintA     solana.PublicKey
	MintB     solana.PublicKey
	DecimalsA uint8
	DecimalsB uint8
	Creator   solana.PublicKey
	Fees      amm.FeeParams
}

// LoadDefinitions reads and parses pool definitions from a JSON file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool definitions: %w", err)
	}
	return ParseDefinitions(data)
}

func ParseDefinitions(data []byte) ([]Definition, error) {
	var configs []DefinitionConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	defs := make([]Definition, 0, len(configs))
	seen := make(map[string]bool, len(configs))
	for i, cfg := range configs {
		def, err := parseDefinition(cfg)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
		if def.Name != "" {
			if seen[def.Name] {
				return nil, fmt.Errorf("pool %d: duplicate name %q", i, def.Name)
			}
			seen[def.Name] = true
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func parseDefinition(cfg DefinitionConfig) (Definition, error) {
	mintA, err := solana.PublicKeyFromBase58(cfg.TokenMintA)
	if err != nil {
		return Definition{}, fmt.Errorf("token_mint_a: %w", err)
	}
	mintB, err := solana.PublicKeyFromBase58(cfg.TokenMintB)
	if err != nil {
		return Definition{}, fmt.Errorf("token_mint_b: %w", err)
	}
	creator, err := solana.PublicKeyFromBase58(cfg.Creator)
	if err != nil {
		return Definition{}, fmt.Errorf("creator: %w", err)
	}
	if mintA.Equals(mintB) {
		return Definition{}, fmt.Errorf("%w: identical mints", amm.ErrInvalidInput)
	}

	fees := amm.FeeParams{
		BaseFeeBps:     cfg.BaseFeeBps,
		VariableFactor: cfg.VariableFactor,
		FilterPeriod:   cfg.FilterPeriod,
		DecayPeriod:    cfg.DecayPeriod,
		DecayFactorBps: cfg.DecayFactorBps,
	}
	if err := fees.Validate(); err != nil {
		return Definition{}, err
	}

	def := Definition{
		Name:      cfg.Name,
		MintA:     mintA,
		MintB:     mintB,
		DecimalsA: defaultDecimals,
		DecimalsB: defaultDecimals,
		Creator:   creator,
		Fees:      fees,
	}
	if cfg.DecimalsA != nil {
		def.DecimalsA = *cfg.DecimalsA
	}
	if cfg.DecimalsB != nil {
		def.DecimalsB = *cfg.DecimalsB
	}
	return def, nil
}
