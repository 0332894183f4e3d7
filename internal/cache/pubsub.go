// ============================================================================
// cache/pubsub.go - Redis Pub/Sub Wrapper
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Publish sends the envelope to the firehose, pool and kind channels
func (p *PubSubManager) Publish(ctx context.Context, env *models.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelAll,
		fmt.Sprintf(constants.PubSubChannelPoolFmt, env.Pool),
		fmt.Sprintf(constants.PubSubChannelKindFmt, env.Kind),
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe to a channel until ctx is cancelled
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler func(*models.Envelope)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")
	return p.consume(ctx, pubsub, handler)
}

// PSubscribe to a pattern (e.g. "pool-events:pool:*") until ctx is cancelled
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler func(*models.Envelope)) error {
	pubsub := p.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	p.logger.WithField("pattern", pattern).Info("subscribed")
	return p.consume(ctx, pubsub, handler)
}

func (p *PubSubManager) consume(ctx context.Context, pubsub *redis.PubSub, handler func(*models.Envelope)) error {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env models.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling envelope")
				continue
			}
			handler(&env)
		}
	}
}
