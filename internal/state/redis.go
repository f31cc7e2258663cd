package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisFactory.
const DefaultRedisPrefix = "work4u"

// RedisFactory stores client state in Redis hashes, one hash per client,
// expiring ttl after the last write.
type RedisFactory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisFactory(client *redis.Client, prefix string, ttl time.Duration) *RedisFactory {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisFactory{client: client, prefix: prefix, ttl: ttl}
}

// clientKey generates the Redis key holding a client's values
func (f *RedisFactory) clientKey(clientID string) string {
	return fmt.Sprintf("%s:client_state:%s", f.prefix, clientID)
}

func (f *RedisFactory) ForClient(clientID string) Storage {
	return &RedisStorage{client: f.client, key: f.clientKey(clientID), ttl: f.ttl}
}

func (f *RedisFactory) Purge(ctx context.Context, clientID string) error {
	if err := f.client.Del(ctx, f.clientKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to purge client state: %w", err)
	}
	return nil
}

// RedisStorage is the Storage of one client
type RedisStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.HGet(ctx, r.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get client state: %w", err)
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key, key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set client state: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.client.HDel(ctx, r.key, key).Err(); err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}
