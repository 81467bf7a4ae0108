package securestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
)

// RedisBackend keeps each value under secure:{store}:{key}.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend creates a RedisBackend over client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

// Open verifies the server is reachable.
func (b *RedisBackend) Open(ctx context.Context, name string) (domain.SecureStore, error) {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: b.client, name: name}, nil
}

// RedisStore is one named store in Redis.
type RedisStore struct {
	client redis.UniversalClient
	name   string
}

func (s *RedisStore) key(k string) string {
	return "secure:" + s.name + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Commit sends the batch as one MULTI/EXEC transaction.
func (s *RedisStore) Commit(ctx context.Context, changes map[string]*string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range changes {
			if value == nil {
				pipe.Del(ctx, s.key(key))
			} else {
				pipe.Set(ctx, s.key(key), *value, 0)
			}
		}
		return nil
	})
	return err
}
