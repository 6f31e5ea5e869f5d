package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fieldline-io/fieldline/internal/adapters/sqlite"
	"github.com/fieldline-io/fieldline/internal/app/services"
	"github.com/fieldline-io/fieldline/internal/config"
	"github.com/fieldline-io/fieldline/internal/db"
	"github.com/fieldline-io/fieldline/internal/httpcache"
	"github.com/fieldline-io/fieldline/internal/jobs"
	"github.com/fieldline-io/fieldline/internal/observability"
	"github.com/fieldline-io/fieldline/internal/outbox"
	"github.com/fieldline-io/fieldline/internal/ratelimit"
	"github.com/fieldline-io/fieldline/internal/server"
	"github.com/fieldline-io/fieldline/internal/server/routes"
)

func main() {
	log := slog.New(observability.WrapSlogHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		return
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	store := sqlite.New(database.DB())

	cacheCfg := httpcache.Config{Enabled: cfg.Cache.Enabled, TTL: cfg.CacheTTL()}
	var cacheStore httpcache.Store
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer client.Close()
		cacheStore = httpcache.NewRedisStore(client)
	} else if cacheCfg.Enabled {
		slog.Warn("REDIS_ADDR not set, response cache disabled")
		cacheCfg.Enabled = false
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
			defer client.Close()
			limiter = ratelimit.NewRedis(client, cfg.RateWindow())
		} else {
			limiter = ratelimit.NewInMemory(cfg.RateWindow())
		}
	}

	publisher := outbox.NewPublisher(cfg.Outbox.Brokers, cfg.Outbox.Source)
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("Failed to close event publisher", "error", err)
		}
	}()
	events := outbox.NewEmitter(publisher, log)

	queue := jobs.NewQueue(cfg.Queue.RedisAddr)
	defer func() {
		if err := queue.Close(); err != nil {
			slog.Error("Failed to close job queue", "error", err)
		}
	}()
	if queue.Enabled() {
		if _, err := queue.EnqueueRepeatable(jobs.QueueMaintenance, jobs.TaskIdempotencySweep, nil, "@every 1h"); err != nil {
			slog.Error("Failed to register idempotency sweep", "error", err)
			return
		}
		if err := queue.StartScheduler(); err != nil {
			slog.Error("Failed to start job scheduler", "error", err)
			return
		}
	}

	srv := server.New(log)
	srv.RegisterRouter(routes.NewAPI(routes.APIConfig{
		TenantHeader:  cfg.Tenancy.Header,
		Organizations: services.NewOrganizationService(store, events),
		Content:       services.NewContentService(store, events),
		Memberships:   store,
		CacheStore:    cacheStore,
		Cache:         cacheCfg,
		Records:       store,
		Limiter:       limiter,
		RateLimit:     cfg.RateLimit.Limit,
		Log:           log,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting server", "port", cfg.Server.Port, "env", cfg.Environment)
	slog.Error("Closing server", "error", srv.Start(addr))
}
