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

	"github.com/hibiken/asynq"

	accountinghttp "github.com/odyssey-erp/odyssey-books/internal/accounting/http"
	"github.com/odyssey-erp/odyssey-books/internal/app"
	"github.com/odyssey-erp/odyssey-books/internal/observability"
	"github.com/odyssey-erp/odyssey-books/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
	"github.com/odyssey-erp/odyssey-books/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	books, err := app.NewLedger(app.LedgerDeps{
		Pool:       pool,
		Redis:      redisClient,
		Config:     cfg,
		Logger:     logger,
		Registerer: metrics.Registerer(),
	})
	if err != nil {
		logger.Error("init ledger", slog.Any("error", err))
		os.Exit(1)
	}

	accountingHandler := accountinghttp.NewHandler(accountinghttp.Config{
		Logger:   logger,
		Resolver: books.Resolver,
		Chart:    books.Chart,
		Journals: books.Journals,
		Reports:  books.Reports,
		Settings: books.Settings,
		Gate:     shared.TrustedHeaderGate{},
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accountingHandler,
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
		Ready: func(r *http.Request) error {
			if err := pool.Ping(r.Context()); err != nil {
				return err
			}
			if redisClient != nil {
				return cache.Ping(r.Context(), redisClient)
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
