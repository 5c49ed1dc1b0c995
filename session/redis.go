package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua scripts keep the check-and-act pairs atomic on the server.
var (
	// releaseLockScript deletes the lock only while the caller still owns it.
	releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	// casScript replaces the value only when it still equals the expected
	// bytes. An empty expected argument matches an absent key.
	casScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if (cur == false and ARGV[1] == "") or cur == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0`)
)

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) TryAcquireLock(ctx context.Context, lockKey, holderToken string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey, holderToken, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", lockKey, err)
	}
	return ok, nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, lockKey, holderToken string) error {
	if err := releaseLockScript.Run(ctx, s.rdb, []string{lockKey}, holderToken).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis release lock %s: %w", lockKey, err)
	}
	return nil
}

func (s *RedisStore) CASUpdate(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (bool, error) {
	res, err := casScript.Run(ctx, s.rdb, []string{key},
		string(expected), string(newValue), ttl.Milliseconds()).Int()
	if err != nil {
		// Transport failure: the outcome is unknowable, report as a
		// retryable conflict.
		return false, fmt.Errorf("%w: %v", ErrCASConflict, err)
	}
	return res == 1, nil
}

var _ Store = (*RedisStore)(nil)
