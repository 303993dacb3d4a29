package cache

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and tunes the conversation cache backend.
type Config struct {
	Backend    string // "memory" or "redis"
	MaxEntries int    // in-process backend only
	Redis      RedisConfig
}

// New creates the configured backend. An empty backend name means the
// in-process store.
func New(ctx context.Context, cfg Config) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewInMemoryCache(cfg.MaxEntries), nil
	case "redis":
		return NewRedisCache(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
