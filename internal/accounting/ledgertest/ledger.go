package ledgertest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/entities"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	platform "github.com/odyssey-erp/odyssey-books/internal/shared"
)

// Audit records audit entries in memory.
type Audit struct {
	mu   sync.Mutex
	Logs []platform.AuditLog
}

// Record implements shared.AuditPort.
func (a *Audit) Record(_ context.Context, log platform.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Logs = append(a.Logs, log)
	return nil
}

// Actions lists the recorded actions in order.
func (a *Audit) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Logs))
	for _, l := range a.Logs {
		out = append(out, l.Action)
	}
	return out
}

// Ledger wires every accounting service over one Store.
type Ledger struct {
	Store    *Store
	Registry *prometheus.Registry
	Metrics  *shared.Metrics
	Audit    *Audit
	Resolver *entities.Resolver
	Chart    *accounts.Service
	Journals *journals.Service
	Reports  *reports.Service
	Settings *settings.Service
	Cache    *reports.Cache
}

// Option adjusts a Ledger before services are built.
type Option func(*options)

type options struct {
	redis *redis.Client
}

// WithRedis stores rendered reports in client.
func WithRedis(client *redis.Client) Option {
	return func(o *options) { o.redis = client }
}

// NewLedger builds a ledger with a fresh store and metrics registry.
func NewLedger(t testing.TB, opts ...Option) *Ledger {
	t.Helper()
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	store := New()
	registry := prometheus.NewRegistry()
	metrics := shared.NewMetrics(registry)
	audit := &Audit{}

	resolver, err := entities.NewResolver(store.Entities(), nil, metrics, "USD")
	require.NoError(t, err)
	settingsSvc := settings.NewService(store.Settings(), resolver, store.Accounts(), audit, nil)
	cache := reports.NewCache(o.redis, 0, metrics)
	reportSvc := reports.NewService(reports.ServiceConfig{
		Repo:     store.Reports(),
		Entities: resolver,
		Accounts: store.Accounts(),
		Cash:     settingsSvc,
		Controls: settingsSvc,
		Cache:    cache,
		Metrics:  metrics,
	})
	chart := accounts.NewService(store.Accounts(), audit, reportSvc, nil)
	journalSvc := journals.NewService(journals.ServiceConfig{
		Repo:        store.Journals(),
		Resolver:    resolver,
		Audit:       audit,
		Invalidator: reportSvc,
		Metrics:     metrics,
	})
	return &Ledger{
		Store:    store,
		Registry: registry,
		Metrics:  metrics,
		Audit:    audit,
		Resolver: resolver,
		Chart:    chart,
		Journals: journalSvc,
		Reports:  reportSvc,
		Settings: settingsSvc,
		Cache:    cache,
	}
}

// Company resolves a fresh company entity and returns its company and entity ids.
func (l *Ledger) Company(t testing.TB) (uuid.UUID, uuid.UUID) {
	t.Helper()
	companyID := uuid.New()
	entityID, err := l.Resolver.ResolveEntityID(context.Background(), shared.ScopeCompany, &companyID)
	require.NoError(t, err)
	return companyID, entityID
}

// Global resolves the global entity.
func (l *Ledger) Global(t testing.TB) uuid.UUID {
	t.Helper()
	entityID, err := l.Resolver.ResolveEntityID(context.Background(), shared.ScopeGlobal, nil)
	require.NoError(t, err)
	return entityID
}

// Account returns the id of a seeded account code.
func (l *Ledger) Account(t testing.TB, entityID uuid.UUID, code string) uuid.UUID {
	t.Helper()
	a, ok := l.Store.AccountByCode(entityID, code)
	require.True(t, ok, "account %s missing", code)
	return a.ID
}

// Debit builds a debit line.
func Debit(accountID uuid.UUID, amount string) journals.LineInput {
	return journals.LineInput{AccountID: accountID, Debit: decimal.RequireFromString(amount), Credit: decimal.Zero}
}

// Credit builds a credit line.
func Credit(accountID uuid.UUID, amount string) journals.LineInput {
	return journals.LineInput{AccountID: accountID, Debit: decimal.Zero, Credit: decimal.RequireFromString(amount)}
}
