package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"flashcount/internal/amqp"
	"flashcount/internal/config"
	applog "flashcount/internal/log"
	"flashcount/internal/services"
	"flashcount/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher services.PostingPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized - postings will be announced")
		}
	} else {
		logger.Info("AMQP disabled - postings will not be announced")
	}

	processor := services.NewRecurringProcessor(repo, publisher, applog.New(applog.DefaultConfig()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func() {
		result, err := processor.ProcessDueRules(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		logger.Info("Recurring processing complete",
			"rules_checked", result.RulesChecked,
			"rules_advanced", result.RulesAdvanced,
			"postings_made", result.PostingsMade,
			"failed", result.Failed)
	}

	// Catch up immediately on startup, then follow the schedule.
	logger.Info("Running initial catch-up...")
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringCron, run); err != nil {
		logger.Error("Invalid cron schedule", "error", err, "schedule", cfg.RecurringCron)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduler started", "schedule", cfg.RecurringCron)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Scheduler stop timed out")
	}
	logger.Info("Recurring-worker stopped gracefully")
}
