package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("not found")

var (
	_ storage.SwapCache      = (*RedisCache)(nil)
	_ storage.EventPublisher = (*PubSubManager)(nil)
)

// RedisCache keeps the recent swap lists and the latest pool snapshots.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Publish records swap envelopes; other kinds are ignored.
func (r *RedisCache) Publish(ctx context.Context, env *models.Envelope) error {
	if env.Kind != string(amm.KindSwap) {
		return nil
	}
	rec, err := models.SwapRecordFromEnvelope(env)
	if err != nil {
		return err
	}
	return r.AddRecentSwap(ctx, rec)
}

// AddRecentSwap pushes a swap onto the global and per-pool recent lists.
func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapRecord) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	poolKey := fmt.Sprintf(constants.RedisKeyPoolSwapsFmt, swap.Pool)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	pipe.LPush(ctx, poolKey, data)
	pipe.LTrim(ctx, poolKey, 0, constants.MaxRecentSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

// GetRecentSwaps returns newest first. An empty pool means all pools.
func (r *RedisCache) GetRecentSwaps(ctx context.Context, pool string, limit int64) ([]*models.SwapRecord, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentSwaps
	}
	key := constants.RedisKeyRecentSwaps
	if pool != "" {
		key = fmt.Sprintf(constants.RedisKeyPoolSwapsFmt, pool)
	}

	vals, err := r.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapRecord, 0, len(vals))
	for _, v := range vals {
		var rec models.SwapRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			r.logger.WithError(err).Warn("skipping malformed swap record")
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (r *RedisCache) SavePool(ctx context.Context, snap *models.PoolSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal pool snapshot: %w", err)
	}
	id := snap.Pool.ID.String()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, constants.RedisKeyPoolPrefix+id, data, 0)
	pipe.SAdd(ctx, constants.RedisKeyPoolIndex, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save pool snapshot: %w", err)
	}
	return nil
}

func (r *RedisCache) GetPool(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	val, err := r.client.Get(ctx, constants.RedisKeyPoolPrefix+pool).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pool snapshot: %w", err)
	}

	var snap models.PoolSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal pool snapshot: %w", err)
	}
	return &snap, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
