// Package main is the entrypoint for the fittrack API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/handler"
	mw "github.com/ofarooq21/AI-Fitness-Tracker/internal/api/middleware"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/api/response"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/auth"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/cache"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/classify"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/config"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/forecast"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/store"
	"github.com/ofarooq21/AI-Fitness-Tracker/internal/upload"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "queue", cfg.Queue.Name, "storage", cfg.StorageEnabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Connect to Redis, shared by the rate limiter and the task queue
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	redisCache := cache.NewRedisCacheFromClient(redisClient)
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	broker := queue.NewRedisBroker(redisClient, cfg.Queue.Name, cfg.Queue.ResultTTL)

	// 5. Optional presigned uploads
	var presigner upload.Presigner
	if cfg.StorageEnabled() {
		s3, err := upload.NewS3Presigner(cfg.Storage)
		if err != nil {
			return fmt.Errorf("create presigner: %w", err)
		}
		presigner = s3
		slog.Info("presigned uploads enabled", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	}

	// 6. Services
	pgStore := store.NewPostgresStore(pool)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	orchestrator := classify.NewOrchestrator(broker, pgStore, slog.Default())
	trigger := forecast.NewTrigger(broker, cfg.Forecast.TriggerTimeout, slog.Default())
	workouts := handler.NewWorkoutHandlers(pgStore, pgStore, trigger)
	goals := handler.NewGoalHandlers(pgStore)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(issuer),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),

		HealthHandler:   healthHandler(pgStore, redisCache, broker),
		RegisterHandler: handler.NewRegisterHandler(pgStore),
		LoginHandler:    handler.NewLoginHandler(pgStore, issuer),

		PresignHandler:  handler.NewPresignHandler(presigner),
		ScanMealHandler: handler.NewScanMealHandler(orchestrator),
		PollJobHandler:  handler.NewPollJobHandler(orchestrator),
		ListMeals:       handler.NewListMealsHandler(pgStore),
		DailyNutrition:  handler.NewDailyNutritionHandler(pgStore),

		CreateWorkout:    workouts.Create,
		ListWorkouts:     workouts.List,
		GetWorkout:       workouts.Get,
		UpdateWorkout:    workouts.Update,
		DeleteWorkout:    workouts.Delete,
		StrengthProgress: workouts.StrengthProgress,

		CreateGoal: goals.Create,
		ListGoals:  goals.List,
		UpdateGoal: goals.Update,
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Let in-flight forecast triggers reach Redis before the client closes.
	trigger.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database, cache and queue connectivity.
func healthHandler(db, c, q pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"queue":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := q.Ping(r.Context()); err != nil {
			checks["queue"] = "degraded"
		}

		for _, status := range checks {
			if status != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
