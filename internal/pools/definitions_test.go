package pools

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefinitions(t *testing.T) {
	mintA, mintB, creator := newKey(), newKey(), newKey()
	body := fmt.Sprintf(`[
		{
			"name": "SOL/USDC",
			"token_mint_a": %q,
			"token_mint_b": %q,
			"decimals_b": 6,
			"creator": %q,
			"base_fee_bps": 25,
			"variable_factor": 10,
			"filter_period": 30,
			"decay_period": 600,
			"decay_factor_bps": 5000
		}
	]`, mintA, mintB, creator)

	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	defs, err := LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	d := defs[0]
	assert.Equal(t, "SOL/USDC", d.Name)
	assert.Equal(t, mintA, d.MintA)
	assert.Equal(t, mintB, d.MintB)
	assert.Equal(t, creator, d.Creator)
	assert.Equal(t, uint8(9), d.DecimalsA)
	assert.Equal(t, uint8(6), d.DecimalsB)
	assert.Equal(t, uint64(25), d.Fees.BaseFeeBps)
	assert.Equal(t, int64(600), d.Fees.DecayPeriod)
}

func TestParseDefinitions_Rejections(t *testing.T) {
	mintA, mintB, creator := newKey(), newKey(), newKey()
	entry := func(a, b, fee string) string {
		return fmt.Sprintf(`{"name":"P","token_mint_a":%q,"token_mint_b":%q,"creator":%q,%s}`, a, b, creator, fee)
	}
	okFees := `"base_fee_bps":30,"filter_period":30,"decay_period":600,"decay_factor_bps":5000`

	tests := []struct {
		name string
		body string
		is   error
	}{
		{"malformed json", `[{`, nil},
		{"bad key", "[" + entry("not-a-key", mintB.String(), okFees) + "]", nil},
		{"identical mints", "[" + entry(mintA.String(), mintA.String(), okFees) + "]", amm.ErrInvalidInput},
		{"fee too high", "[" + entry(mintA.String(), mintB.String(), `"base_fee_bps":1001,"filter_period":30,"decay_period":600`) + "]", amm.ErrInvalidFeeConfig},
		{"filter not below decay", "[" + entry(mintA.String(), mintB.String(), `"filter_period":600,"decay_period":600`) + "]", amm.ErrInvalidFeeConfig},
		{"duplicate name", "[" + entry(mintA.String(), mintB.String(), okFees) + "," + entry(mintB.String(), mintA.String(), okFees) + "]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinitions([]byte(tt.body))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadDefinitions_MissingFile(t *testing.T) {
	_, err := LoadDefinitions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
