package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher delivers events over Pub/Sub, a list queue, or both.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	listKey string
}

func NewRedisPublisher(addr, channel, listKey string) *RedisPublisher {
	return &RedisPublisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		listKey: listKey,
	}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, payload []byte) error {
	if p.channel != "" {
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return err
		}
	}
	if p.listKey != "" {
		if err := p.client.LPush(ctx, p.listKey, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }
