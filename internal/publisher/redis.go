// Package publisher pushes spread opportunities into Redis for
// downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/detector"
	"perpspread-scanner/internal/metrics"
)

// RedisPublisher publishes opportunities to a Redis stream, a per-token
// key with expiry, and a per-token Pub/Sub channel
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies it with a ping
func NewRedisPublisher(addr string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisPublisher{client: client}, nil
}

// Client returns the underlying Redis client
func (p *RedisPublisher) Client() *redis.Client {
	return p.client
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// PublishOpportunity writes the opportunity three ways: appended to the
// "spreads" stream for replay, stored under spread:data:{token} with a
// 5 minute expiry, and pushed on the spread:{token} Pub/Sub channel.
func (p *RedisPublisher) PublishOpportunity(ctx context.Context, o detector.SpreadOpportunity) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "spreads",
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Err(); err != nil {
		metrics.RedisPublishErrors.WithLabelValues("spreads").Inc()
		return fmt.Errorf("xadd spreads: %w", err)
	}

	key := fmt.Sprintf("spread:data:%s", o.BaseToken)
	if err := p.client.Set(ctx, key, data, 5*time.Minute).Err(); err != nil {
		metrics.RedisPublishErrors.WithLabelValues("spread:data").Inc()
		return fmt.Errorf("set %s: %w", key, err)
	}

	channel := fmt.Sprintf("spread:%s", o.BaseToken)
	if err := p.client.Publish(ctx, channel, string(data)).Err(); err != nil {
		// Pub/Sub is best-effort, the stream and key already landed
		metrics.RedisPublishErrors.WithLabelValues("spread").Inc()
		log.Warn().Err(err).Str("channel", channel).Msg("Pub/Sub publish failed")
	}

	return nil
}

// Consumer adapts the publisher to the detector's alert consumer shape
func (p *RedisPublisher) Consumer() detector.Consumer {
	return func(o detector.SpreadOpportunity) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.PublishOpportunity(ctx, o); err != nil {
			log.Error().Err(err).Str("symbol", o.BaseToken).Msg("Redis publish failed")
		}
	}
}
