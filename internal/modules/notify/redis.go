// README: Sink publishing lifecycle events to a Redis pub/sub channel.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "rideshare:events"

// publisher is the subset of *redis.Client used here.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisSink struct {
	client  publisher
	channel string
}

func NewRedisSink(client publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(payloadOf(e))
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", s.channel, err)
	}
	return nil
}

func (s *RedisSink) OnStatusChanged(ctx context.Context, e Event) error {
	return s.publish(ctx, e)
}

func (s *RedisSink) OnDriverAssigned(ctx context.Context, e Event) error {
	return s.publish(ctx, e)
}

func (s *RedisSink) OnPaymentCompleted(ctx context.Context, e Event) error {
	return s.publish(ctx, e)
}
