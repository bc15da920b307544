package bridge

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport carries row changes over one Redis pub/sub channel.
type RedisTransport struct {
	client  *redis.Client
	channel string
}

func NewRedisTransport(addr, channel string) *RedisTransport {
	return &RedisTransport{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

func (t *RedisTransport) Publish(ctx context.Context, payload []byte) error {
	if err := t.client.Publish(ctx, t.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", t.channel, err)
	}
	return nil
}

// Receive subscribes to the channel. The returned channel is closed when the
// subscription ends, either because ctx was cancelled or the connection was
// lost.
func (t *RedisTransport) Receive(ctx context.Context) (<-chan []byte, error) {
	ps := t.client.Subscribe(ctx, t.channel)
	// Wait for the subscription confirmation so connection errors surface here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", t.channel, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()
		msgs := ps.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (t *RedisTransport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
