package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/opsloom/opsloom/internal/cache"
	"github.com/opsloom/opsloom/internal/config"
	"github.com/opsloom/opsloom/internal/feedback"
	"github.com/opsloom/opsloom/internal/httpapi"
	"github.com/opsloom/opsloom/internal/llm"
	"github.com/opsloom/opsloom/internal/observability"
	"github.com/opsloom/opsloom/internal/route"
	"github.com/opsloom/opsloom/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	conversations, err := cache.New(ctx, cache.Config{
		Backend:    cfg.CacheBackend,
		MaxEntries: cfg.CacheMaxEntries,
		Redis: cache.RedisConfig{
			URL:             cfg.RedisURL,
			MaxMemory:       cfg.RedisMaxMemory,
			MaxMemoryPolicy: cfg.RedisMaxMemoryPolicy,
		},
	})
	if err != nil {
		log.Fatalf("conversation cache init failed: %v", err)
	}
	defer conversations.Close()
	log.Printf("conversation cache: %s backend", cfg.CacheBackend)

	if mem, ok := conversations.(*cache.InMemoryCache); ok {
		mem.SetEvictHook(func(_, _ string) {
			metrics.CacheEvictions.Inc()
		})
	}

	client, err := llm.NewClient(llm.Config{Mode: cfg.LLMMode, URL: cfg.LLMHTTPURL})
	if err != nil {
		log.Fatalf("llm client init failed: %v", err)
	}
	if _, ok := client.(*llm.MockClient); ok {
		log.Printf("llm client: mock (no model server configured); retrieval runs in degraded mode without an index")
	}

	feedbackStore, err := feedback.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("feedback store init failed: %v", err)
	}
	defer feedbackStore.Close()

	router := route.NewRouter(
		route.Config{
			ContextWindow:    cfg.ContextWindow,
			ResponseReserve:  cfg.ResponseReserve,
			PersistSummaries: cfg.PersistSummaries,
		},
		conversations,
		tokens.NewHandler(llm.HeuristicTokenizer{}),
		client, client, client, client,
		metrics,
	)

	api := httpapi.New(cfg, router, feedbackStore, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
