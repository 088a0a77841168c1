package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisStore is a shared Store backed by Redis GET and SET PX.
type RedisStore struct {
	pool *redis.Pool
}

// NewRedisStore creates a pooled Redis store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return NewRedisStoreWithPool(&redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			var opts []redis.DialOption
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			opts = append(opts, redis.DialDatabase(db))
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
	})
}

// NewRedisStoreWithPool wraps an existing pool.
func NewRedisStoreWithPool(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool: pool}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	value, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", key))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrMiss
	}
	return value, err
}

// SetWithTTL implements Store.
func (r *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	args := []interface{}{key, value}
	if ttl > 0 {
		args = append(args, "PX", ttl.Milliseconds())
	}
	_, err = redis.DoContext(conn, ctx, "SET", args...)
	return err
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.pool.Close()
}
