package redis

import (
	"blockRewards/domain"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KVRepository stores each key under a prefix with no expiry.
type KVRepository struct {
	client *redis.Client
	prefix string
}

func NewKVRepository(client *redis.Client, prefix string) *KVRepository {
	return &KVRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}

	return val, nil
}

func (r *KVRepository) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store %s in Redis: %w", key, err)
	}

	return nil
}

func (r *KVRepository) Close() error {
	return r.client.Close()
}
