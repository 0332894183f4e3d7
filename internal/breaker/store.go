package breaker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
)

const maxReasonLen = 256

type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

// ValidatePool accepts base58 pool addresses only.
func ValidatePool(pool string) error {
	b, err := base58.Decode(pool)
	if err != nil || len(b) != 32 {
		return fmt.Errorf("invalid pool address")
	}
	return nil
}

func (s *Store) Halt(ctx context.Context, pool, reason string) (*Halt, error) {
	if err := ValidatePool(pool); err != nil {
		return nil, err
	}
	if len(reason) > maxReasonLen {
		return nil, fmt.Errorf("reason exceeds %d bytes", maxReasonLen)
	}

	h := &Halt{Pool: pool, Reason: reason, HaltedAt: time.Now().UTC()}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal halt: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, haltKey(pool), b, 0)
	pipe.SAdd(ctx, constants.RedisKeyHaltIndex, pool)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("halt pool: %w", err)
	}

	return h, nil
}

// Resume lifts a halt. Resuming a pool that is not halted is a no-op.
func (s *Store) Resume(ctx context.Context, pool string) error {
	if err := ValidatePool(pool); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, haltKey(pool))
	pipe.SRem(ctx, constants.RedisKeyHaltIndex, pool)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("resume pool: %w", err)
	}

	return nil
}

func (s *Store) IsHalted(ctx context.Context, pool string) (bool, error) {
	n, err := s.client.Exists(ctx, haltKey(pool)).Result()
	if err != nil {
		return false, fmt.Errorf("check halt: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, pool string) (*Halt, error) {
	if err := ValidatePool(pool); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, haltKey(pool)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get halt: %w", err)
	}

	var h Halt
	if err := json.Unmarshal([]byte(val), &h); err != nil {
		return nil, fmt.Errorf("unmarshal halt: %w", err)
	}
	return &h, nil
}

// List returns every active halt ordered by pool address.
func (s *Store) List(ctx context.Context) ([]*Halt, error) {
	pools, err := s.client.SMembers(ctx, constants.RedisKeyHaltIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list halts index: %w", err)
	}
	if len(pools) == 0 {
		return []*Halt{}, nil
	}

	redisKeys := make([]string, 0, len(pools))
	for _, p := range pools {
		if err := ValidatePool(p); err != nil {
			continue
		}
		redisKeys = append(redisKeys, haltKey(p))
	}
	if len(redisKeys) == 0 {
		return []*Halt{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget halts: %w", err)
	}

	out := make([]*Halt, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var h Halt
		if err := json.Unmarshal([]byte(str), &h); err != nil {
			continue
		}
		out = append(out, &h)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Pool < out[j].Pool })
	return out, nil
}

func haltKey(pool string) string {
	return constants.RedisKeyHaltPrefix + pool
}
