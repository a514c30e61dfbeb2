package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/relaygate/core"
)

// admitScript prunes, counts and appends in one round-trip so concurrent
// replicas see a consistent window. Scores are unix milliseconds.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
	local retry = window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, count, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// RedisStore keeps client windows in Redis sorted sets.
// Keys expire one window after their last admission, so no state
// outlives the window it describes.
type RedisStore struct {
	client    *redis.Client
	config    core.Config
	keyPrefix string
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// RedisConfig for creating a Redis store
type RedisConfig struct {
	Addr      string      // Redis address (e.g., "localhost:6379")
	Password  string      // Redis password (empty for no auth)
	DB        int         // Redis database number
	KeyPrefix string      // Namespace for window keys (default: "relaygate:")
	Policy    core.Config // Limit and window to enforce
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(config RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "relaygate:"
	}

	return &RedisStore{
		client:    client,
		config:    config.Policy,
		keyPrefix: prefix,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return s.keyPrefix + "window:" + key
}

// Check runs the sliding-window admission check for key inside Redis
func (s *RedisStore) Check(ctx context.Context, key string, now time.Time) (core.CheckResult, error) {
	res, err := admitScript.Run(ctx, s.client, []string{s.redisKey(key)},
		now.UnixMilli(),
		s.config.Window.Milliseconds(),
		s.config.Limit,
		fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return core.CheckResult{}, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if len(res) != 3 {
		return core.CheckResult{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreFailed, res)
	}

	count := int(res[1])
	result := core.CheckResult{
		Allowed: res[0] == 1,
		Count:   count,
		Limit:   s.config.Limit,
	}
	if result.Allowed {
		result.Remaining = s.config.Limit - count
	} else {
		result.RetryAfter = time.Duration(res[2]) * time.Millisecond
	}

	return result, nil
}

// Sweep is a no-op for Redis; keys expire on their own
func (s *RedisStore) Sweep(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

// Count returns the number of window keys currently held in Redis
func (s *RedisStore) Count() int {
	ctx := context.Background()
	count := 0
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"window:*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

// Clear removes all window keys under the configured prefix
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"window:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping checks if Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
