// ============================================================================
// cmd/subscriber/main.go - Example Subscriber (Consumer)
// ============================================================================
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/config"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()
	logger.SetLevel(cfg.Level())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		_ = rclient.Close()
	}()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(rclient, logger)

	logger.Info("starting pool event subscriber")

	// Subscribe to every event
	go func() {
		err := pubsub.Subscribe(ctx, constants.PubSubChannelAll, func(env *models.Envelope) {
			logger.WithFields(logrus.Fields{
				"id":        env.ID,
				"kind":      env.Kind,
				"pool":      env.Pool,
				"pool_name": env.PoolName,
				"signature": env.Signature,
			}).Info("event")
		})
		if err != nil {
			logger.WithError(err).Error("subscription ended")
		}
	}()

	// Subscribe to swaps on every pool
	go func() {
		err := pubsub.PSubscribe(ctx, constants.PubSubPatternPools, func(env *models.Envelope) {
			if env.Kind != string(amm.KindSwap) {
				return
			}
			swap, err := models.SwapRecordFromEnvelope(env)
			if err != nil {
				logger.WithError(err).Warn("bad swap envelope")
				return
			}
			logger.WithFields(logrus.Fields{
				"pool":         swap.PoolName,
				"amount_in":    swap.AmountIn,
				"amount_out":   swap.AmountOut,
				"fee":          swap.FeeAmount,
				"variable_bps": swap.VariableFeeBps,
				"price":        swap.Price,
			}).Info("swap")
		})
		if err != nil {
			logger.WithError(err).Error("pattern subscription ended")
		}
	}()

	logger.Info("subscriber running, press Ctrl+C to stop")

	<-sigChan
	logger.Info("shutting down subscriber")
}
