package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisClient wraps Redis operations
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client and checks connectivity.
func NewRedisClient(ctx context.Context, config RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	utils.Info("connected to Redis", "addr", config.Addr)

	return &RedisClient{client: client}, nil
}

// NewRedisClientFrom wraps an already configured client.
func NewRedisClientFrom(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Close closes the Redis client
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Versioned entries are hashes holding the JSON value under "data" and the
// lowest version the key still accepts under "floor".
const versionedDataField = "data"

// setVersionedScript stores ARGV[1] at version ARGV[2] unless the key's floor
// is higher. Returns 1 when written.
var setVersionedScript = redis.NewScript(`
local kind = redis.call("TYPE", KEYS[1]).ok
if kind ~= "none" and kind ~= "hash" then
	redis.call("DEL", KEYS[1])
end
local floor = tonumber(redis.call("HGET", KEYS[1], "floor"))
local version = tonumber(ARGV[2])
if floor and version < floor then
	return 0
end
redis.call("HSET", KEYS[1], "data", ARGV[1], "floor", version)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// raiseFloorScript drops the stored value and raises the floor to ARGV[1].
// A floor that is already higher is kept.
var raiseFloorScript = redis.NewScript(`
local kind = redis.call("TYPE", KEYS[1]).ok
if kind ~= "none" and kind ~= "hash" then
	redis.call("DEL", KEYS[1])
end
local floor = tonumber(redis.call("HGET", KEYS[1], "floor"))
local target = tonumber(ARGV[1])
if floor and floor > target then
	target = floor
end
redis.call("HDEL", KEYS[1], "data")
redis.call("HSET", KEYS[1], "floor", target)
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// SetVersioned stores value as JSON with expiration, unless the key already
// refuses versions below a higher floor. It reports whether value was stored.
func (r *RedisClient) SetVersioned(ctx context.Context, key string, value interface{}, version int64, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	stored, err := setVersionedScript.Run(ctx, r.client, []string{key}, data, version, expiration.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to set key: %w", err)
	}
	return stored == 1, nil
}

// GetVersioned decodes the JSON value stored at key into dest. A key without
// a value, including one only holding a floor, is a cache miss.
func (r *RedisClient) GetVersioned(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.HGet(ctx, key, versionedDataField).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get key: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// RaiseVersionFloor drops the value at key and refuses later SetVersioned
// calls below floor until expiration.
func (r *RedisClient) RaiseVersionFloor(ctx context.Context, key string, floor int64, expiration time.Duration) error {
	if err := raiseFloorScript.Run(ctx, r.client, []string{key}, floor, expiration.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to raise version floor: %w", err)
	}
	return nil
}

// Incr increments a counter
func (r *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// Expire sets expiration on a key
func (r *RedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return r.client.Expire(ctx, key, expiration).Err()
}

// Ping tests connectivity
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
