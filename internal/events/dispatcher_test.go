package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	envs []*models.Envelope
	err  error
	wait chan struct{}
}

func (r *recorder) Publish(_ context.Context, env *models.Envelope) error {
	if r.wait != nil {
		<-r.wait
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return r.err
}

func (r *recorder) received() []*models.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Envelope(nil), r.envs...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func swapEvent() *amm.Swap {
	return &amm.Swap{
		Pool:      solana.NewWallet().PublicKey(),
		AmountIn:  10_000,
		AmountOut: 9_871,
		Timestamp: 1_700_000_000,
	}
}

func TestDispatcher_FansOutToAllPublishers(t *testing.T) {
	failing := &recorder{err: errors.New("redis down")}
	ok := &recorder{}
	d := NewDispatcher(DispatcherConfig{Logger: quietLogger()}, failing, ok)

	ev := swapEvent()
	d.EmitSigned(context.Background(), ev, "SOL/USDC", "sig123")
	d.Emit(context.Background(), ev)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	got := ok.received()
	require.Len(t, got, 2)
	assert.Len(t, failing.received(), 2)

	first := got[0]
	assert.Equal(t, string(amm.KindSwap), first.Kind)
	assert.Equal(t, ev.Pool.String(), first.Pool)
	assert.Equal(t, "SOL/USDC", first.PoolName)
	assert.Equal(t, "sig123", first.Signature)
	_, err := uuid.Parse(first.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, got[1].ID)

	var decoded amm.Swap
	require.NoError(t, json.Unmarshal(first.Payload, &decoded))
	assert.Equal(t, ev.AmountOut, decoded.AmountOut)
	assert.Equal(t, ev.Pool, decoded.Pool)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	blocked := &recorder{wait: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{QueueSize: 1, Logger: quietLogger()}, blocked)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), swapEvent())
	}
	close(blocked.wait)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	n := len(blocked.received())
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 2)
}

func TestDispatcher_EmitAfterCloseIsIgnored(t *testing.T) {
	r := &recorder{}
	d := NewDispatcher(DispatcherConfig{Logger: quietLogger()}, r)
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	d.Emit(context.Background(), swapEvent())
	assert.Empty(t, r.received())
}

func TestSwapRecordFromEnvelope(t *testing.T) {
	ev := swapEvent()
	ev.Price = 2_500_000_000
	env, err := NewEnvelope(ev, "SOL/USDC", "sig")
	require.NoError(t, err)

	rec, err := models.SwapRecordFromEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, env.ID, rec.ID)
	assert.Equal(t, "sig", rec.Signature)
	assert.Equal(t, uint64(9_871), rec.AmountOut)
	assert.InDelta(t, 2.5, rec.Price, 1e-9)
	assert.Equal(t, int64(1_700_000_000), rec.Timestamp.Unix())

	other, err := NewEnvelope(&amm.FeesCollected{Pool: ev.Pool}, "", "")
	require.NoError(t, err)
	_, err = models.SwapRecordFromEnvelope(other)
	assert.Error(t, err)
}
