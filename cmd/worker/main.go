package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-books/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/jobs"
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

	// The scan reads storage directly, so the worker runs without the report cache.
	books, err := app.NewLedger(app.LedgerDeps{
		Pool:       pool,
		Config:     cfg,
		Logger:     logger,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logger.Error("init ledger", slog.Any("error", err))
		os.Exit(1)
	}

	integrityJob := jobs.NewGLIntegrityJob(books.Resolver, books.Reports, logger, jobmetrics.NewMetrics(nil))

	var cron []jobs.CronRegistration
	if cfg.IntegrityCron != "" {
		integrityTask, err := jobs.NewGLIntegrityTask("all", "")
		if err != nil {
			logger.Error("build integrity task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.IntegrityCron, Task: integrityTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("integrity_cron", cfg.IntegrityCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
