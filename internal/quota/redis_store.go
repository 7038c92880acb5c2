package quota

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jobharbor/harvest/pkg/models"
)

const keyPrefix = "harvest:quota:"

// RedisStore persists ledger state as one JSON blob per source.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses redisURL and verifies connectivity.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Load retrieves the persisted state for a source.
func (s *RedisStore) Load(ctx context.Context, source string) (*models.SourceQuota, error) {
	raw, err := s.client.Get(ctx, keyPrefix+source).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", source, err)
	}

	var q models.SourceQuota
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode quota state for %s: %w", source, err)
	}
	return &q, nil
}

// Save persists the full state for a source.
func (s *RedisStore) Save(ctx context.Context, q *models.SourceQuota) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quota state for %s: %w", q.SourceName, err)
	}
	if err := s.client.Set(ctx, keyPrefix+q.SourceName, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", q.SourceName, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
