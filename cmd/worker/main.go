package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/careops/visit-notify/internal/config"
	"github.com/careops/visit-notify/internal/infra/postgresql"
	infraredis "github.com/careops/visit-notify/internal/infra/redis"
	"github.com/careops/visit-notify/internal/observability"
	"github.com/careops/visit-notify/internal/provider"
	"github.com/careops/visit-notify/internal/repository"
	"github.com/careops/visit-notify/internal/service"
	"go.uber.org/zap"
)

const metricsReadHeaderTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("timezone resolution failed", zap.Error(err))
	}

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	jobRepo := repository.NewGormReminderJobRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	smsProvider, err := provider.NewTwilioProvider(provider.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		BaseURL:    cfg.TwilioBaseURL,
	})
	if err != nil {
		logger.Fatal("twilio provider initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SMSRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	events := observability.NewLoggingSink(logger, metrics)

	worker, err := service.NewWorkerService(
		jobRepo, attemptRepo, smsProvider, rateLimiter, events, loc,
		service.WorkerConfig{
			MaxRetries:      cfg.MaxRetries,
			StalenessWindow: cfg.StalenessWindow,
			BatchLimit:      cfg.TickBatchLimit,
			SendTimeout:     cfg.SendTimeout,
			Concurrency:     cfg.WorkerConcurrency,
		},
		logger,
	)
	if err != nil {
		logger.Fatal("worker service initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(worker, cfg.TickInterval, logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	scheduler.Start(ctx)
	logger.Info("visit-notify worker started",
		zap.Duration("tick_interval", cfg.TickInterval),
		zap.Int("batch_limit", cfg.TickBatchLimit),
	)

	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}
}
