package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "conversation:"

// lockShards bounds the number of per-key append guards.
const lockShards = 64

// RedisCache persists conversation records in a shared redis instance so
// history survives restarts and is visible across replicas.
//
// Capacity is delegated to redis' own memory policy (allkeys-lfu by
// default); the client does not count entries. Appends are read-modify-
// write under a per-key guard so concurrent appenders from the same
// process never lose updates.
type RedisCache struct {
	client *redis.Client
	locks  [lockShards]sync.Mutex
}

// RedisConfig controls connection and server-side memory policy.
type RedisConfig struct {
	URL             string
	MaxMemory       string
	MaxMemoryPolicy string
}

// NewRedisCache connects, verifies the server and applies the configured
// memory policy once. Policy is process-wide init state; it is never
// mutated afterwards.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	if cfg.MaxMemory != "" {
		if err := client.ConfigSet(ctx, "maxmemory", cfg.MaxMemory).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: config set maxmemory: %v", ErrUnavailable, err)
		}
	}
	if cfg.MaxMemoryPolicy != "" {
		if err := client.ConfigSet(ctx, "maxmemory-policy", cfg.MaxMemoryPolicy).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: config set maxmemory-policy: %v", ErrUnavailable, err)
		}
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, userID, conversationID string) ([]Turn, error) {
	if err := validateKey(userID, conversationID); err != nil {
		return nil, err
	}

	key := redisKey(userID, conversationID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}

	var turns []Turn
	if err := json.Unmarshal(payload, &turns); err != nil {
		return nil, fmt.Errorf("%w: decode record %s: %v", ErrUnavailable, key, err)
	}
	return turns, nil
}

func (c *RedisCache) InsertOrAppend(ctx context.Context, userID, conversationID string, turns []Turn) error {
	if err := validateKey(userID, conversationID); err != nil {
		return err
	}

	key := redisKey(userID, conversationID)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	var existing []Turn
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// first append for this key
	case err != nil:
		return fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	default:
		if err := json.Unmarshal(payload, &existing); err != nil {
			return fmt.Errorf("%w: decode record %s: %v", ErrUnavailable, key, err)
		}
	}

	updated, err := json.Marshal(append(existing, turns...))
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, updated, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Stats reads the server-wide keyspace hit/miss counters, mirroring what
// the in-process backend counts locally.
func (c *RedisCache) Stats(ctx context.Context) (Stats, error) {
	info, err := c.client.Info(ctx, "stats").Result()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: info: %v", ErrUnavailable, err)
	}

	var stats Stats
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "keyspace_hits:"); ok {
			stats.Hits, _ = strconv.ParseUint(v, 10, 64)
		}
		if v, ok := strings.CutPrefix(line, "keyspace_misses:"); ok {
			stats.Misses, _ = strconv.ParseUint(v, 10, 64)
		}
	}
	return stats, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &c.locks[h.Sum32()%lockShards]
}

func redisKey(userID, conversationID string) string {
	return redisKeyPrefix + userID + ":" + conversationID
}
