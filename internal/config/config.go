package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the gateway service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	CacheBackend    string
	CacheMaxEntries int

	RedisURL             string
	RedisMaxMemory       string
	RedisMaxMemoryPolicy string

	LLMMode    string
	LLMHTTPURL string

	ContextWindow    int
	ResponseReserve  int
	PersistSummaries bool

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "opsloom"),
		CacheBackend:     envOrDefault("CACHE_BACKEND", "memory"),
		CacheMaxEntries:  100,
		RedisURL:         envOrDefault("REDIS_URL", "redis://localhost:6379"),
		// Bound the shared backend's footprint and let it shed cold
		// conversations itself under pressure.
		RedisMaxMemory:       envOrDefault("REDIS_MAX_MEMORY", "500mb"),
		RedisMaxMemoryPolicy: envOrDefault("REDIS_MAX_MEMORY_POLICY", "allkeys-lfu"),
		LLMMode:              envOrDefault("LLM_MODE", "auto"),
		LLMHTTPURL:           stringsTrimSpace("LLM_HTTP_URL"),
		ContextWindow:        8192,
		ResponseReserve:      512,
		PersistSummaries:     false,
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheMaxEntries, err = intFromEnv("CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindow, err = intFromEnv("MODEL_CONTEXT_WINDOW", cfg.ContextWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.ResponseReserve, err = intFromEnv("MODEL_RESPONSE_RESERVE", cfg.ResponseReserve)
	if err != nil {
		return Config{}, err
	}
	cfg.PersistSummaries, err = boolFromEnv("APP_PERSIST_SUMMARIES", cfg.PersistSummaries)
	if err != nil {
		return Config{}, err
	}

	if cfg.CacheMaxEntries <= 0 {
		return Config{}, fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	if cfg.ContextWindow <= 0 {
		return Config{}, fmt.Errorf("MODEL_CONTEXT_WINDOW must be positive")
	}
	if cfg.ResponseReserve < 0 {
		return Config{}, fmt.Errorf("MODEL_RESPONSE_RESERVE must be >= 0")
	}
	if cfg.ResponseReserve >= cfg.ContextWindow {
		return Config{}, fmt.Errorf("MODEL_RESPONSE_RESERVE must leave room in MODEL_CONTEXT_WINDOW")
	}
	switch strings.ToLower(cfg.CacheBackend) {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", cfg.CacheBackend)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
