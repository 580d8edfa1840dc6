package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps parameters in a single Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store. No connection is made until first use.
func NewRedisStore(addr, password string, db int, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		key: key,
	}
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Load reads the hash.
func (s *RedisStore) Load(ctx context.Context) (map[string]float64, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}
	return parseValues(raw)
}

// Save writes one field.
func (s *RedisStore) Save(ctx context.Context, name string, value float64) error {
	if err := s.client.HSet(ctx, s.key, name, formatValue(value)).Err(); err != nil {
		return fmt.Errorf("redis hset %s %s: %w", s.key, name, err)
	}
	return nil
}

// Replace rewrites the whole hash in one transaction.
func (s *RedisStore) Replace(ctx context.Context, values map[string]float64) error {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = formatValue(v)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace %s: %w", s.key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
