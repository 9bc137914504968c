package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kursadbilgin/message-courier/internal/config"
	"github.com/kursadbilgin/message-courier/internal/handler"
	"github.com/kursadbilgin/message-courier/internal/infra/postgresql"
	"github.com/kursadbilgin/message-courier/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/message-courier/internal/infra/redis"
	"github.com/kursadbilgin/message-courier/internal/observability"
	"github.com/kursadbilgin/message-courier/internal/provider"
	"github.com/kursadbilgin/message-courier/internal/queue"
	"github.com/kursadbilgin/message-courier/internal/repository"
	"github.com/kursadbilgin/message-courier/internal/service"
	"github.com/kursadbilgin/message-courier/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	messageRepo := repository.NewGormMessageRepo(db)
	credentialRepo := repository.NewGormCredentialRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)

	registry, err := provider.NewRegistry(credentialRepo, logger)
	if err != nil {
		logger.Fatal("provider registry init failed", zap.Error(err))
	}
	registry.SetMetrics(metrics)
	registry.Register("twilio", provider.NewTwilio)
	registry.Register("sendgrid", provider.NewSendgrid)
	registry.Register("fcm", provider.NewFCM)

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}

	dispatchQueue, err := queue.NewDispatchQueue(ctx, queue.Options{
		Messages:     messageRepo,
		Credentials:  credentialRepo,
		Providers:    registry,
		RateLimiter:  rateLimiter,
		Logger:       logger,
		PollInterval: cfg.PollInterval(),
		SendTimeout:  cfg.SendTimeout(),
	})
	if err != nil {
		logger.Fatal("dispatch queue init failed", zap.Error(err))
	}
	dispatchQueue.SetMetrics(metrics)

	messageService, err := service.NewMessageService(messageRepo, credentialRepo, templateRepo, registry, dispatchQueue, logger)
	if err != nil {
		logger.Fatal("message service init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterMessageRoutes(app, messageService); err != nil {
		logger.Fatal("message routes init failed", zap.Error(err))
	}
	if err := handler.RegisterProviderRoutes(app, registry); err != nil {
		logger.Fatal("provider routes init failed", zap.Error(err))
	}
	if err := handler.RegisterTemplateRoutes(app, templateRepo); err != nil {
		logger.Fatal("template routes init failed", zap.Error(err))
	}
	if err := handler.RegisterQueueRoutes(app, dispatchQueue); err != nil {
		logger.Fatal("queue routes init failed", zap.Error(err))
	}

	// Recovery runs once the listener is up, before steady-state polling.
	app.Hooks().OnListen(func(fiber.ListenData) error {
		if err := dispatchQueue.QueueUnprocessedMessages(ctx); err != nil {
			return fmt.Errorf("pending message recovery: %w", err)
		}
		dispatchQueue.StartProcessing()
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("message-courier api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		dispatchQueue.StopProcessing()
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("message-courier api stopped")
}
