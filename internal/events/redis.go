package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes each event on a single pub/sub channel.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
}

func (p *RedisPublisher) Publish(ctx context.Context, evt PhaseChanged) error {
	if p == nil || p.Client == nil {
		return nil
	}
	payload, err := evt.Payload()
	if err != nil {
		return err
	}
	if err := p.Client.Publish(ctx, p.Channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.Channel, err)
	}
	return nil
}
