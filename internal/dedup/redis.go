package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the dedup window with Redis so several agent instances on
// the same account suppress each other's duplicates. SET NX with a TTL gives
// the same atomic check-and-insert the memory store provides, and Redis
// handles eviction itself.
type RedisStore struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRedisStore(addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{rdb: rdb, window: Window}, nil
}

func (s *RedisStore) CheckAndAdd(ctx context.Context, key string) (bool, error) {
	added, err := s.rdb.SetNX(ctx, "order:"+key, time.Now().Unix(), s.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return added, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
