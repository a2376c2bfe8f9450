// Package main is the entrypoint for the fittrack task worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ofarooq21/AI-Fitness-Tracker/internal/classify"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/config"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/forecast"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	broker := queue.NewRedisBroker(redisClient, cfg.Queue.Name, cfg.Queue.ResultTTL).WithLease(cfg.Queue.Lease)
	if err := broker.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	registry, err := newRegistry(store.NewPostgresStore(pool))
	if err != nil {
		return err
	}

	worker := queue.NewWorker(broker, registry, queue.WorkerConfig{
		Concurrency:    cfg.Queue.Concurrency,
		MaxAttempts:    cfg.Queue.MaxAttempts,
		ReserveTimeout: cfg.Queue.ReserveTimeout,
		Heartbeat:      cfg.Queue.Lease / 3,
		ReapInterval:   cfg.Queue.Lease / 2,
	}, slog.Default())

	slog.Info("worker started",
		"queue", cfg.Queue.Name,
		"concurrency", cfg.Queue.Concurrency,
		"max_attempts", cfg.Queue.MaxAttempts,
		"lease", cfg.Queue.Lease,
	)
	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newRegistry binds every task name the API enqueues to its handler.
func newRegistry(forecasts forecast.Store) (*queue.Registry, error) {
	registry := queue.NewRegistry()
	handlers := []queue.Handler{
		classify.NewTaskHandler(classify.Placeholder{}),
		forecast.NewTaskHandler(forecast.NewService(forecasts, slog.Default())),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return nil, fmt.Errorf("register %s: %w", h.Name(), err)
		}
	}
	return registry, nil
}
