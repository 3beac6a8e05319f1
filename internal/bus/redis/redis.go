package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/manhle/roomchat-server/internal/bus"
)

// Bus implements bus.Bus over Redis pub/sub.
type Bus struct {
	client *redis.Client
}

// New wraps a Redis client as a broadcast bus.
func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

// Publish sends a payload on the channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a Redis subscription on the channel.
func (b *Bus) Subscribe(ctx context.Context, channel string) (bus.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Force the SUBSCRIBE round-trip so a failing bus surfaces at
	// admission time, not on the first read.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	return &subscription{pubsub: pubsub, events: pubsub.Channel()}, nil
}

type subscription struct {
	pubsub *redis.PubSub
	events <-chan *redis.Message
}

func (s *subscription) Next(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-s.events:
		if !ok {
			return nil, fmt.Errorf("subscription closed")
		}
		return []byte(msg.Payload), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close is idempotent; go-redis tolerates double close.
func (s *subscription) Close() error {
	return s.pubsub.Close()
}
