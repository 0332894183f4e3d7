package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/sirupsen/logrus"
)

var _ storage.SwapStore = (*ClickHouseStore)(nil)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

// EnsureSchema creates the swaps table when missing.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id String,
			signature String,
			timestamp DateTime,
			pool String,
			pool_name String,
			user String,
			mint_in String,
			mint_out String,
			amount_in UInt64,
			amount_out UInt64,
			fee_amount UInt64,
			base_fee_bps UInt64,
			variable_fee_bps UInt64,
			volatility UInt64,
			price Float64
		) ENGINE = MergeTree()
		ORDER BY (pool, timestamp)
	`, constants.ClickHouseSwapsTable)

	if err := c.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create swaps table: %w", err)
	}
	return nil
}

// Publish stores swap envelopes; other kinds are ignored.
func (c *ClickHouseStore) Publish(ctx context.Context, env *models.Envelope) error {
	if env.Kind != string(amm.KindSwap) {
		return nil
	}
	rec, err := models.SwapRecordFromEnvelope(env)
	if err != nil {
		return err
	}
	return c.InsertSwap(ctx, rec)
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, signature, timestamp, pool, pool_name, user, mint_in, mint_out,
			amount_in, amount_out, fee_amount, base_fee_bps, variable_fee_bps, volatility, price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, constants.ClickHouseSwapsTable)

	err := c.conn.Exec(ctx, query,
		swap.ID,
		swap.Signature,
		swap.Timestamp,
		swap.Pool,
		swap.PoolName,
		swap.User,
		swap.MintIn,
		swap.MintOut,
		swap.AmountIn,
		swap.AmountOut,
		swap.FeeAmount,
		swap.BaseFeeBps,
		swap.VariableFeeBps,
		swap.Volatility,
		swap.Price,
	)

	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
