package amm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_RejectsInvalidFeeConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FeeParams)
	}{
		{"base fee above 10%", func(f *FeeParams) { f.BaseFeeBps = 1500 }},
		{"filter equals decay", func(f *FeeParams) { f.FilterPeriod = f.DecayPeriod }},
		{"filter above decay", func(f *FeeParams) { f.FilterPeriod = f.DecayPeriod + 1 }},
		{"decay factor above 100%", func(f *FeeParams) { f.DecayFactorBps = 10_001 }},
		{"negative filter", func(f *FeeParams) { f.FilterPeriod = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees := testFees()
			tt.mutate(&fees)

			mintA, mintB := newKey(), newKey()
			addrs, err := DeriveAddresses(DefaultProgramID, mintA, mintB)
			require.NoError(t, err)

			sink := &recordingSink{}
			_, err = Initialize(context.Background(), InitParams{
				Addrs:   addrs,
				MintA:   mintA,
				MintB:   mintB,
				Creator: newKey(),
				Fees:    fees,
			}, EngineConfig{Events: sink.sink(), Logger: quietLogger()})
			assert.ErrorIs(t, err, ErrInvalidFeeConfig)
			assert.Empty(t, sink.events)
		})
	}
}

func TestInitialize_BoundaryValuesAccepted(t *testing.T) {
	fees := testFees()
	fees.BaseFeeBps = MaxBaseFeeBps
	fees.DecayFactorBps = BpsDenominator
	assert.NoError(t, fees.Validate())
}

func TestInitialize_PopulatesPool(t *testing.T) {
	f := newFixture(t, testFees())

	p := f.engine.Pool()
	assert.Zero(t, p.ReserveA)
	assert.Zero(t, p.ReserveB)
	assert.Zero(t, p.LPTotalSupply)
	assert.Zero(t, p.VolatilityAccumulator)
	assert.Zero(t, p.VolatilityReference)
	assert.Zero(t, p.LastPriceReference)
	assert.Equal(t, int64(1_000), p.LastSwapTimestamp)
	assert.Equal(t, LockIdle, p.Lock)
	assert.Equal(t, f.creator, p.Creator)
	assert.Equal(t, uint64(30), p.BaseFeeBps)

	require.Len(t, f.sink.events, 1)
	created, ok := f.sink.events[0].(*PoolCreated)
	require.True(t, ok)
	assert.Equal(t, p.ID, created.Pool)
	assert.Equal(t, f.mintA, created.MintA)
	assert.Equal(t, f.mintB, created.MintB)
	assert.Equal(t, f.creator, created.Creator)
	assert.Equal(t, uint64(30), created.BaseFeeBps)
}

func TestInitialize_RejectsIdenticalMints(t *testing.T) {
	mint := newKey()
	_, err := Initialize(context.Background(), InitParams{
		MintA:   mint,
		MintB:   mint,
		Creator: newKey(),
		Fees:    testFees(),
	}, EngineConfig{Logger: quietLogger()})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeriveAddresses(t *testing.T) {
	mintA, mintB := newKey(), newKey()

	first, err := DeriveAddresses(DefaultProgramID, mintA, mintB)
	require.NoError(t, err)
	second, err := DeriveAddresses(DefaultProgramID, mintA, mintB)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	seen := map[string]bool{}
	for _, k := range []string{
		first.Pool.String(), first.Authority.String(), first.VaultA.String(), first.VaultB.String(),
		first.LPMint.String(), first.FeeVaultA.String(), first.FeeVaultB.String(),
	} {
		assert.False(t, seen[k], "duplicate derived address %s", k)
		seen[k] = true
	}

	swapped, err := DeriveAddresses(DefaultProgramID, mintB, mintA)
	require.NoError(t, err)
	assert.NotEqual(t, first.Pool, swapped.Pool)

	_, err = DeriveAddresses(DefaultProgramID, mintA, mintA)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLockState_Text(t *testing.T) {
	b, err := LockInSwap.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "in_swap", string(b))

	var s LockState
	require.NoError(t, s.UnmarshalText([]byte("in_swap")))
	assert.Equal(t, LockInSwap, s)
	assert.Error(t, s.UnmarshalText([]byte("open")))
}
