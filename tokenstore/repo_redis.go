package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRepo stores the session keys in Redis under a common prefix, for
// clients that share a session between hosts.
type RedisRepo struct {
	rdb    redis.Cmdable
	prefix string
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(rdb redis.Cmdable, prefix string) *RedisRepo {
	return &RedisRepo{rdb: rdb, prefix: prefix}
}

func (r *RedisRepo) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[RedisRepo.GetItem] %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisRepo) SetItems(ctx context.Context, items map[string]string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range items {
			pipe.Set(ctx, r.prefix+k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[RedisRepo.SetItems] %w", err)
	}
	return nil
}

func (r *RedisRepo) RemoveItems(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, r.prefix+k)
	}
	if err := r.rdb.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("[RedisRepo.RemoveItems] %w", err)
	}
	return nil
}
