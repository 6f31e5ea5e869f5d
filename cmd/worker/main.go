package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fieldline-io/fieldline/internal/adapters/sqlite"
	"github.com/fieldline-io/fieldline/internal/config"
	"github.com/fieldline-io/fieldline/internal/db"
	"github.com/fieldline-io/fieldline/internal/jobs"
	"github.com/fieldline-io/fieldline/internal/observability"
)

const idempotencyRetention = 24 * time.Hour

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

	worker := jobs.NewWorker(cfg.Queue.RedisAddr, map[string]int{
		jobs.QueueMaintenance: 1,
		"default":             2,
	}, cfg.Queue.Concurrency)
	if !worker.Enabled() {
		slog.Error("QUEUE_REDIS_ADDR is required for the worker")
		return
	}

	worker.HandleFunc(jobs.TaskIdempotencySweep,
		jobs.NewIdempotencySweepHandler(store, idempotencyRetention, log))

	slog.Info("Starting worker", "concurrency", cfg.Queue.Concurrency)
	if err := worker.Run(); err != nil {
		slog.Error("Worker stopped", "error", err)
	}
}
