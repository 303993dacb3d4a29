package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.CacheBackend != "memory" {
		t.Fatalf("CacheBackend = %q, want %q", cfg.CacheBackend, "memory")
	}
	if cfg.CacheMaxEntries != 100 {
		t.Fatalf("CacheMaxEntries = %d, want 100", cfg.CacheMaxEntries)
	}
	if cfg.LLMMode != "auto" {
		t.Fatalf("LLMMode = %q, want %q", cfg.LLMMode, "auto")
	}
	if cfg.LLMHTTPURL != "" {
		t.Fatalf("LLMHTTPURL = %q, want empty default", cfg.LLMHTTPURL)
	}
	if cfg.PersistSummaries {
		t.Fatalf("PersistSummaries = true, want false default")
	}
	if cfg.RedisMaxMemoryPolicy != "allkeys-lfu" {
		t.Fatalf("RedisMaxMemoryPolicy = %q", cfg.RedisMaxMemoryPolicy)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadUsesExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_MAX_ENTRIES", "25")
	t.Setenv("MODEL_CONTEXT_WINDOW", "4096")
	t.Setenv("MODEL_RESPONSE_RESERVE", "256")
	t.Setenv("APP_PERSIST_SUMMARIES", "true")
	t.Setenv("LLM_HTTP_URL", "http://localhost:7777/model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheBackend != "redis" {
		t.Fatalf("CacheBackend = %q", cfg.CacheBackend)
	}
	if cfg.CacheMaxEntries != 25 {
		t.Fatalf("CacheMaxEntries = %d", cfg.CacheMaxEntries)
	}
	if cfg.ContextWindow != 4096 || cfg.ResponseReserve != 256 {
		t.Fatalf("window = %d reserve = %d", cfg.ContextWindow, cfg.ResponseReserve)
	}
	if !cfg.PersistSummaries {
		t.Fatalf("PersistSummaries = false, want true")
	}
	if cfg.LLMHTTPURL != "http://localhost:7777/model" {
		t.Fatalf("LLMHTTPURL = %q", cfg.LLMHTTPURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"CACHE_MAX_ENTRIES":      "0",
		"MODEL_CONTEXT_WINDOW":   "-1",
		"MODEL_RESPONSE_RESERVE": "-5",
		"CACHE_BACKEND":          "memcached",
		"APP_PERSIST_SUMMARIES":  "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%s succeeded, want error", key, value)
			}
		})
	}
}

func TestLoadRejectsReserveConsumingWindow(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MODEL_CONTEXT_WINDOW", "100")
	t.Setenv("MODEL_RESPONSE_RESERVE", "100")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() succeeded with reserve == window, want error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_PERSIST_SUMMARIES",
		"CACHE_BACKEND",
		"CACHE_MAX_ENTRIES",
		"REDIS_URL",
		"REDIS_MAX_MEMORY",
		"REDIS_MAX_MEMORY_POLICY",
		"LLM_MODE",
		"LLM_HTTP_URL",
		"MODEL_CONTEXT_WINDOW",
		"MODEL_RESPONSE_RESERVE",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
