package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"a11y-checker/internal/analyzer"
	"a11y-checker/internal/api"
	"a11y-checker/internal/config"
	"a11y-checker/internal/orchestrator"
	"a11y-checker/internal/ratelimit"
	"a11y-checker/internal/report"
	"a11y-checker/internal/storage"
	"a11y-checker/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("object store: %v", err)
	}

	var jobs store.JobStore
	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := store.NewRedisStore(client)
		if err := rs.Ping(ctx); err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		jobs = rs
		limiter = ratelimit.NewBucket(client, cfg.RateLimitCapacity, cfg.RateLimitRefill)
		log.Printf("job store: redis at %s", cfg.RedisAddr)
	} else {
		jobs = store.NewMemoryStore()
		log.Printf("job store: in-memory")
	}

	an := analyzer.New(cfg)
	builder := report.New(objects, cfg)
	orch := orchestrator.New(cfg, jobs, objects, an, builder)

	go orch.RunSweeper(ctx)

	server := api.New(cfg, orch, objects, limiter)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("checker api listening on :%s (standard=%s runner=%s concurrency=%d)",
		cfg.HTTPPort, cfg.WCAGStandard, cfg.Runner, cfg.Concurrency)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
