package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const reportPrefix = "report:"

// RedisStore keeps reports in Redis with a TTL so every replica can serve
// downloads.
type RedisStore struct {
	redis  *redis.Client
	expiry time.Duration
}

func NewRedisStore(redisClient *redis.Client, expiry time.Duration) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		expiry: expiry,
	}
}

func (s *RedisStore) Save(ctx context.Context, d Data) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := s.redis.Set(ctx, reportPrefix+d.ID, data, s.expiry).Err(); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Data, error) {
	raw, err := s.redis.Get(ctx, reportPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Data{}, ErrNotFound
	}
	if err != nil {
		return Data{}, fmt.Errorf("failed to get report: %w", err)
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return d, nil
}

// Ping checks the Redis connection for health reporting.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
