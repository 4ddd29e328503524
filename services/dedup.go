package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDeduper records webhook event ids so replays can be dropped.
type EventDeduper interface {
	// MarkOnce returns true the first time an id is seen within the ttl.
	MarkOnce(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// RedisDeduper implements EventDeduper with SETNX keys.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) MarkOnce(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, "webhook:event:"+id, 1, ttl).Result()
}
