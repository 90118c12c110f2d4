package app

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/entities"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
	ledger "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Ledger bundles the accounting services of one process.
type Ledger struct {
	Resolver *entities.Resolver
	Chart    *accounts.Service
	Journals *journals.Service
	Reports  *reports.Service
	Settings *settings.Service
	Metrics  *ledger.Metrics
}

// LedgerDeps carries the infrastructure the services are built over. A nil
// Redis client disables the report cache.
type LedgerDeps struct {
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Config     *Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// NewLedger wires the pgx repositories into the accounting services.
func NewLedger(deps LedgerDeps) (*Ledger, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseCurrency := "USD"
	ttl := 5 * time.Minute
	if deps.Config != nil {
		baseCurrency = deps.Config.BaseCurrency
		ttl = deps.Config.ReportCacheTTL
	}

	metrics := ledger.NewMetrics(deps.Registerer)
	audit := shared.NewAuditLogger(deps.Pool)
	accountRepo := accounts.NewRepository(deps.Pool)

	resolver, err := entities.NewResolver(entities.NewRepository(deps.Pool), logger.With(slog.String("component", "entities")), metrics, baseCurrency)
	if err != nil {
		return nil, err
	}
	settingsSvc := settings.NewService(settings.NewRepository(deps.Pool), resolver, accountRepo, audit, logger.With(slog.String("component", "settings")))
	reportSvc := reports.NewService(reports.ServiceConfig{
		Repo:     reports.NewRepository(deps.Pool),
		Entities: resolver,
		Accounts: accountRepo,
		Cash:     settingsSvc,
		Controls: settingsSvc,
		Cache:    reports.NewCache(deps.Redis, ttl, metrics),
		Metrics:  metrics,
		Logger:   logger.With(slog.String("component", "reports")),
	})
	chart := accounts.NewService(accountRepo, audit, reportSvc, logger.With(slog.String("component", "accounts")))
	journalSvc := journals.NewService(journals.ServiceConfig{
		Repo:        journals.NewRepository(deps.Pool),
		Resolver:    resolver,
		Audit:       audit,
		Invalidator: reportSvc,
		Metrics:     metrics,
		Logger:      logger.With(slog.String("component", "journals")),
	})
	return &Ledger{
		Resolver: resolver,
		Chart:    chart,
		Journals: journalSvc,
		Reports:  reportSvc,
		Settings: settingsSvc,
		Metrics:  metrics,
	}, nil
}
