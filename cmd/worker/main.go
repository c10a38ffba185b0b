package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/facturo-erp/facturo-erp/internal/app"
	"github.com/facturo-erp/facturo-erp/internal/platform/cache"
	"github.com/facturo-erp/facturo-erp/internal/platform/db"
	"github.com/facturo-erp/facturo-erp/internal/receivables"
	"github.com/facturo-erp/facturo-erp/internal/sales/customers"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
	"github.com/facturo-erp/facturo-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	receivablesRepo := receivables.NewRepository(pool)
	receivablesCache := receivables.NewCache(redisClient, cfg.CacheTTL)
	receivablesService := receivables.NewService(receivablesRepo, receivablesCache)

	customerRepo := customers.NewRepository(pool)
	quotationRepo := quotations.NewRepository(pool)
	quotationService := quotations.NewService(quotationRepo, customerRepo)

	warmupJob := jobs.NewReceivablesWarmupJob(receivablesService, receivablesCache, logger, nil)
	expiryJob := jobs.NewQuotationExpiryJob(quotationService, logger, nil)

	warmupTask, err := jobs.NewReceivablesWarmupTask(jobs.ReceivablesWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	expiryTask, err := jobs.NewQuotationExpiryTask(jobs.QuotationExpiryPayload{})
	if err != nil {
		logger.Error("build expiry task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReceivablesWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskQuotationExpiry, Handler: expiryJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 1 * * *", Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
