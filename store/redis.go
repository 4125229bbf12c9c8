package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps connection-level failures from the Redis
// KeyValue. Callers of [Store] never see it (the store degrades reads to
// absent), but hosts probing persistence health can match it with errors.Is.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Redis is the production KeyValue: a go-redis client scoped by the store's
// key prefix. Values carry no TTL; the session engine owns their lifecycle
// through ClearAll.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The caller keeps ownership of the
// client and closes it after the store is done.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get implements [KeyValue].
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Join(ErrRedisUnavailable, err)
	}
	return value, true, nil
}

// Set implements [KeyValue].
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	return nil
}

// Delete implements [KeyValue]. A multi-key DEL is a single Redis command,
// so the clear is atomic: no interleaved reader sees a partially cleared
// store.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Join(ErrRedisUnavailable, err)
	}
	return nil
}
