package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/breaker"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/config"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/events"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/pools"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/server"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It wires the ledger, pool manager and event fan-out, then serves HTTP with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.Level())

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Initialize Redis client for pub/sub, caching and trading halts
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer func() {
		_ = rclient.Close()
	}()

	swapCache := cache.NewRedisCacheFromClient(rclient, logger)
	pubsub := cache.NewPubSubManager(rclient, logger)

	haltStore, err := breaker.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create halt store")
	}

	publishers := []storage.EventPublisher{pubsub, swapCache}

	// ClickHouse swap history is optional; the engine runs without it
	if cfg.ClickHouseAddr != "" {
		store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		switch {
		case err != nil:
			logger.WithError(err).Warn("clickhouse unavailable, swap history disabled")
		default:
			if err := store.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Fatal("failed to ensure clickhouse schema")
			}
			publishers = append(publishers, store)
			defer func() {
				_ = store.Close()
			}()
		}
	}

	dispatcher := events.NewDispatcher(events.DispatcherConfig{
		QueueSize:      cfg.EventQueueSize,
		PublishTimeout: cfg.EventPublishTimeout,
		Logger:         logger,
	}, publishers...)

	manager, err := pools.NewManager(pools.ManagerConfig{
		Ledger:    ledger.New(logger),
		Events:    dispatcher,
		Snapshots: swapCache,
		Halts:     haltStore,
		ProgramID: cfg.Program(),
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create pool manager")
	}

	// Bootstrap pools from the definitions file when configured
	if cfg.PoolConfigPath != "" {
		defs, err := pools.LoadDefinitions(cfg.PoolConfigPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load pool definitions")
		}
		if err := manager.Bootstrap(ctx, defs); err != nil {
			logger.WithError(err).Fatal("failed to bootstrap pools")
		}
		logger.WithField("pools", len(defs)).Info("pools bootstrapped")
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Pools:       manager,                   // Pool engines over the in-memory ledger
		Cache:       swapCache,                 // Redis-backed recent swaps and snapshots
		Halts:       haltStore,                 // Redis-backed trading halts
		RecentLimit: int(cfg.RecentSwapsLimit), // Default page of /v1/swaps/recent
		DevMode:     cfg.DevMode,               // Enable detailed error responses in development
		Logger:      logger,                    // Structured logger
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:          cfg.APIAddr,
			DevMode:       cfg.DevMode,
			APIKey:        cfg.APIKey,
			SwapRateLimit: cfg.SwapRateLimit,
			SwapRateBurst: cfg.SwapRateBurst,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}

	// Drain queued events before the publishers close
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		logger.WithError(err).Warn("event queue not drained")
	}
}
