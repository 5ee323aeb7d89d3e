package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"flashcount/internal/amqp"
	"flashcount/internal/backup"
	"flashcount/internal/cache"
	"flashcount/internal/config"
	apphttp "flashcount/internal/http"
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

	logger.Info("Starting flashcountd")

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

	// AMQP is optional: without a broker postings simply skip the event
	// stream and the summary worker catches up on the next rebuild.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled - posting events will not be published")
	}

	appLogger := applog.New(applog.DefaultConfig())

	reportCache := cache.NewLRUCache[services.ReportData](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	thresholds := services.InsightThresholds{
		TopCategoryShare: cfg.InsightTopCategoryShare,
		PeriodChange:     cfg.InsightPeriodChange,
		CategoryChange:   cfg.InsightCategoryChange,
	}

	reports := services.NewReportService(repo, reportCache, thresholds, appLogger)
	budgets := services.NewBudgetService(repo, appLogger)
	var publisher services.PostingPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	processor := services.NewRecurringProcessor(repo, publisher, appLogger)
	backups := backup.NewService(repo, appLogger)

	srv := apphttp.NewServer(":"+cfg.Port, repo, reports, budgets, processor, backups)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
