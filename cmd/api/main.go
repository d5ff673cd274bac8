package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/careops/visit-notify/internal/config"
	"github.com/careops/visit-notify/internal/domain"
	"github.com/careops/visit-notify/internal/handler"
	"github.com/careops/visit-notify/internal/infra/postgresql"
	"github.com/careops/visit-notify/internal/infra/postgresql/migrations"
	infraredis "github.com/careops/visit-notify/internal/infra/redis"
	"github.com/careops/visit-notify/internal/observability"
	"github.com/careops/visit-notify/internal/provider"
	"github.com/careops/visit-notify/internal/repository"
	"github.com/careops/visit-notify/internal/service"
	"github.com/careops/visit-notify/internal/transport"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

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

	phones, err := domain.NewPhonePolicy(cfg.PhoneRegionList())
	if err != nil {
		logger.Fatal("phone policy initialization failed", zap.Error(err))
	}

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
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

	visitRepo := repository.NewGormVisitRepo(db)
	jobRepo := repository.NewGormReminderJobRepo(db)
	caregiverRepo := repository.NewGormCaregiverRepo(db)
	patientRepo := repository.NewGormPatientRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)
	batchRepo := repository.NewGormImportBatchRepo(db)

	metrics := observability.NewMetrics()

	ingest, err := service.NewIngestService(
		visitRepo, jobRepo, caregiverRepo, patientRepo, batchRepo,
		phones, loc, logger,
	)
	if err != nil {
		logger.Fatal("ingest service initialization failed", zap.Error(err))
	}
	ingest.SetMetrics(metrics)

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

	stats, err := service.NewStatsService(visitRepo, jobRepo, loc)
	if err != nil {
		logger.Fatal("stats service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterVisitRoutes(app, ingest); err != nil {
		logger.Fatal("visit route registration failed", zap.Error(err))
	}
	if err := handler.RegisterWorkerRoutes(app, worker); err != nil {
		logger.Fatal("worker route registration failed", zap.Error(err))
	}
	if err := handler.RegisterStatsRoutes(app, stats); err != nil {
		logger.Fatal("stats route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api")
		if err := app.Shutdown(); err != nil {
			logger.Error("api shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("visit-notify api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("api server failed", zap.Error(err))
	}
}
