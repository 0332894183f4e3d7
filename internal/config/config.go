package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// API settings
	APIAddr          string
	APIKey           string
	DevMode          bool
	LogLevel         string
	SwapRateLimit    float64
	SwapRateBurst    int
	RecentSwapsLimit int64

	// Redis settings
	RedisAddr string
	RedisDB   int

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Engine settings
	ProgramID      string
	PoolConfigPath string

	// Event dispatch
	EventQueueSize      int
	EventPublishTimeout time.Duration
}

func Load() *Config {
	return &Config{
		// API
		APIAddr:          getEnv("API_ADDR", ":8090"),
		APIKey:           getEnv("API_KEY", ""),
		DevMode:          getBoolEnv("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SwapRateLimit:    getFloatEnv("SWAP_RATE_LIMIT", 20),
		SwapRateBurst:    getIntEnv("SWAP_RATE_BURST", 40),
		RecentSwapsLimit: int64(getIntEnv("RECENT_SWAPS_LIMIT", 100)),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Engine
		ProgramID:      getEnv("AMM_PROGRAM_ID", ""),
		PoolConfigPath: getEnv("POOL_CONFIG_PATH", ""),

		// Events
		EventQueueSize:      getIntEnv("EVENT_QUEUE_SIZE", 1024),
		EventPublishTimeout: getDurationEnv("EVENT_PUBLISH_TIMEOUT", 3*time.Second),
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
			return fmt.Errorf("AMM_PROGRAM_ID: %w", err)
		}
	}
	if c.SwapRateLimit <= 0 || c.SwapRateBurst <= 0 {
		return fmt.Errorf("SWAP_RATE_LIMIT and SWAP_RATE_BURST must be positive")
	}
	if c.RecentSwapsLimit <= 0 || c.RecentSwapsLimit > constants.MaxRecentSwaps {
		return fmt.Errorf("RECENT_SWAPS_LIMIT must be between 1 and %d", constants.MaxRecentSwaps)
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("EVENT_QUEUE_SIZE must be positive")
	}
	if c.EventPublishTimeout <= 0 {
		return fmt.Errorf("EVENT_PUBLISH_TIMEOUT must be positive")
	}
	return nil
}

// Program returns the configured program id, zero when unset.
func (c *Config) Program() solana.PublicKey {
	if c.ProgramID == "" {
		return solana.PublicKey{}
	}
	pk, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}
	}
	return pk
}

func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
