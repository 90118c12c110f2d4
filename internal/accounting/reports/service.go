package reports

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/entities"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// EntitySource loads resolved entities.
type EntitySource interface {
	Entity(ctx context.Context, id uuid.UUID) (entities.Entity, error)
}

// AccountSource loads single accounts.
type AccountSource interface {
	GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

// CashAccountSource lists the cash and bank accounts mapped for a company.
type CashAccountSource interface {
	CashAccounts(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error)
}

// ControlAccountSource lists the receivable and payable control accounts
// mapped for a company.
type ControlAccountSource interface {
	ControlAccounts(ctx context.Context, companyID uuid.UUID) (receivable, payable []uuid.UUID, err error)
}

// ServiceConfig wires the report service.
type ServiceConfig struct {
	Repo     Repository
	Entities EntitySource
	Accounts AccountSource
	Cash     CashAccountSource
	Controls ControlAccountSource
	Cache    *Cache
	Metrics  *shared.Metrics
	Logger   *slog.Logger
}

// Service builds financial reports for one entity at a time.
type Service struct {
	repo     Repository
	entities EntitySource
	accounts AccountSource
	cash     CashAccountSource
	controls ControlAccountSource
	cache    *Cache
	metrics  *shared.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the report service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     cfg.Repo,
		entities: cfg.Entities,
		accounts: cfg.Accounts,
		cash:     cfg.Cash,
		controls: cfg.Controls,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Invalidate drops every cached report of an entity.
func (s *Service) Invalidate(ctx context.Context, entityID uuid.UUID) error {
	return s.cache.Invalidate(ctx, entityID)
}

// TrialBalance lists every account of the entity with totals up to DateTo.
func (s *Service) TrialBalance(ctx context.Context, q TrialBalanceQuery) (TrialBalance, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return TrialBalance{}, err
	}
	window := AsOf(s.dateOr(q.DateTo))
	var out TrialBalance
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		balances, err := s.balances(ctx, entity, "trial_balance", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window,
			IncludeDrafts: q.IncludeDrafts,
			BranchID:      q.BranchID,
			VendorID:      q.VendorID,
		})
		if err != nil {
			return nil, err
		}
		tb := BuildTrialBalance(balances, window)
		tb.EntityID, tb.Currency = entity.ID, entity.BaseCurrency
		if !tb.Balanced {
			s.logger.Error("trial balance out of balance",
				slog.String("entity_id", entity.ID.String()),
				slog.String("as_of", window.To.Format(shared.DateLayout)),
				slog.String("difference", tb.Difference.String()))
		}
		return tb, nil
	}, "tb", window.token(), drafts(q.IncludeDrafts), dim("branch", q.BranchID), dim("vendor", q.VendorID))
	return out, err
}

// BalanceSheet reports classes 1 to 3, cumulative for AsOf or the window
// movements for From and To.
func (s *Service) BalanceSheet(ctx context.Context, q BalanceSheetQuery) (BalanceSheet, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return BalanceSheet{}, err
	}
	var window Window
	switch {
	case q.From != nil || q.To != nil:
		if q.From == nil || q.To == nil {
			return BalanceSheet{}, shared.ErrInvalidDate
		}
		if window, err = Range(*q.From, *q.To); err != nil {
			return BalanceSheet{}, err
		}
	case q.AsOf != nil:
		window = AsOf(*q.AsOf)
	default:
		window = AsOf(s.dateOr(time.Time{}))
	}
	var out BalanceSheet
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		balances, err := s.balances(ctx, entity, "balance_sheet", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window,
			IncludeDrafts: q.IncludeDrafts,
			BranchID:      q.BranchID,
		})
		if err != nil {
			return nil, err
		}
		bs := BuildBalanceSheet(balances, window)
		bs.EntityID, bs.Currency = entity.ID, entity.BaseCurrency
		return bs, nil
	}, "bs", window.token(), drafts(q.IncludeDrafts), dim("branch", q.BranchID))
	return out, err
}

// ProfitAndLoss reports classes 4 and 5 within a window.
func (s *Service) ProfitAndLoss(ctx context.Context, q ProfitAndLossQuery) (ProfitAndLoss, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	window, err := s.window(q.From, q.To)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var out ProfitAndLoss
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		balances, err := s.balances(ctx, entity, "profit_and_loss", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window,
			IncludeDrafts: q.IncludeDrafts,
			BranchID:      q.BranchID,
			VendorID:      q.VendorID,
		})
		if err != nil {
			return nil, err
		}
		pl := BuildProfitAndLoss(balances, window)
		pl.EntityID, pl.Currency = entity.ID, entity.BaseCurrency
		return pl, nil
	}, "pl", window.token(), drafts(q.IncludeDrafts), dim("branch", q.BranchID), dim("vendor", q.VendorID))
	return out, err
}

// CashFlow summarises the company's mapped cash and bank accounts. Global
// entities and companies without mappings get an empty report.
func (s *Service) CashFlow(ctx context.Context, q CashFlowQuery) (CashFlow, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return CashFlow{}, err
	}
	window, err := s.window(q.From, q.To)
	if err != nil {
		return CashFlow{}, err
	}
	empty := BuildCashFlow(nil, nil, window)
	empty.EntityID, empty.Currency = entity.ID, entity.BaseCurrency
	if entity.CompanyID == nil || s.cash == nil {
		return empty, nil
	}
	ids, err := s.cash.CashAccounts(ctx, *entity.CompanyID)
	if errors.Is(err, shared.ErrSettingsNotFound) || (err == nil && len(ids) == 0) {
		return empty, nil
	}
	if err != nil {
		return CashFlow{}, err
	}
	var out CashFlow
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		opening, err := s.balances(ctx, entity, "cash_flow", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window.Before(),
			IncludeDrafts: q.IncludeDrafts,
			AccountIDs:    ids,
		})
		if err != nil {
			return nil, err
		}
		movements, err := s.balances(ctx, entity, "cash_flow", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window,
			IncludeDrafts: q.IncludeDrafts,
			AccountIDs:    ids,
		})
		if err != nil {
			return nil, err
		}
		cf := BuildCashFlow(opening, movements, window)
		cf.EntityID, cf.Currency = entity.ID, entity.BaseCurrency
		return cf, nil
	}, "cf", window.token(), drafts(q.IncludeDrafts), accountsToken(ids))
	return out, err
}

// AccountStatement lists the movements of one account with a running balance.
func (s *Service) AccountStatement(ctx context.Context, q AccountStatementQuery) (AccountStatement, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return AccountStatement{}, err
	}
	window, err := s.window(q.From, q.To)
	if err != nil {
		return AccountStatement{}, err
	}
	account, err := s.accounts.GetAccount(ctx, q.AccountID)
	if err != nil {
		return AccountStatement{}, err
	}
	if account.EntityID != entity.ID {
		return AccountStatement{}, shared.ErrAccountCrossEntity
	}
	var out AccountStatement
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		opening, err := s.balances(ctx, entity, "account_statement", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window.Before(),
			IncludeDrafts: q.IncludeDrafts,
			AccountIDs:    []uuid.UUID{account.ID},
		})
		if err != nil {
			return nil, err
		}
		start := decimal.Zero
		for _, b := range opening {
			if b.AccountID == account.ID {
				start = start.Add(b.Balance())
			}
		}
		movements, err := s.repo.Movements(ctx, MovementQuery{
			EntityID:      entity.ID,
			AccountID:     account.ID,
			Window:        window,
			IncludeDrafts: q.IncludeDrafts,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range movements {
			if err := s.checkRow(entity, "account_statement", m.EntityID, m.CompanyID); err != nil {
				return nil, err
			}
			if m.AccountID != account.ID {
				return nil, s.isolation(entity, "account_statement", "account "+m.AccountID.String())
			}
		}
		st := BuildAccountStatement(start, movements, window)
		st.EntityID, st.Currency = entity.ID, entity.BaseCurrency
		st.AccountID, st.Code, st.Name = account.ID, account.Code, account.Name
		return st, nil
	}, "stmt", account.ID.String(), window.token(), drafts(q.IncludeDrafts))
	return out, err
}

// LedgerEntries lists the latest lines of the entity, newest first, each with
// the running ledger balance.
func (s *Service) LedgerEntries(ctx context.Context, q LedgerEntriesQuery) ([]LedgerEntry, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return nil, err
	}
	q.EntityID, q.AsOf, q.Limit = entity.ID, s.dateOr(q.AsOf), q.limit()
	var out []LedgerEntry
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		return s.entries(ctx, entity, q)
	}, "entries", AsOf(q.AsOf).token(), drafts(q.IncludeDrafts), "limit="+strconv.Itoa(q.Limit))
	return out, err
}

// Summary reports activity totals, the journal count, receivable, payable and
// available cash balances and the latest ledger entries of an entity.
func (s *Service) Summary(ctx context.Context, q SummaryQuery) (Summary, error) {
	entity, err := s.entity(ctx, q.EntityID)
	if err != nil {
		return Summary{}, err
	}
	window := AsOf(s.dateOr(q.AsOf))
	kpi, err := s.kpiAccounts(ctx, entity)
	if err != nil {
		return Summary{}, err
	}
	eq := LedgerEntriesQuery{EntityID: entity.ID, AsOf: window.To, IncludeDrafts: q.IncludeDrafts, Limit: q.Entries}
	eq.Limit = eq.limit()
	var out Summary
	err = s.fetch(ctx, entity.ID, &out, func(ctx context.Context) (any, error) {
		balances, err := s.balances(ctx, entity, "summary", BalanceQuery{
			EntityID:      entity.ID,
			Window:        window,
			IncludeDrafts: q.IncludeDrafts,
		})
		if err != nil {
			return nil, err
		}
		count, err := s.repo.CountJournals(ctx, entity.ID, window, q.IncludeDrafts)
		if err != nil {
			return nil, err
		}
		entries, err := s.entries(ctx, entity, eq)
		if err != nil {
			return nil, err
		}
		sum := BuildSummary(balances, kpi, count, entries, window)
		sum.EntityID, sum.Currency = entity.ID, entity.BaseCurrency
		return sum, nil
	}, "summary", window.token(), drafts(q.IncludeDrafts), kpi.token(), "limit="+strconv.Itoa(eq.Limit))
	return out, err
}

func (s *Service) entries(ctx context.Context, entity entities.Entity, q LedgerEntriesQuery) ([]LedgerEntry, error) {
	rows, err := s.repo.RecentLines(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, e := range rows {
		if err := s.checkRow(entity, "ledger_entries", e.EntityID, e.CompanyID); err != nil {
			return nil, err
		}
	}
	if rows == nil {
		rows = []LedgerEntry{}
	}
	return rows, nil
}

// kpiAccounts reads the company mappings behind the summary balances. Global
// entities and unmapped roles fall back to standard codes.
func (s *Service) kpiAccounts(ctx context.Context, entity entities.Entity) (KPIAccounts, error) {
	var kpi KPIAccounts
	if entity.CompanyID == nil {
		return kpi, nil
	}
	if s.controls != nil {
		receivable, payable, err := s.controls.ControlAccounts(ctx, *entity.CompanyID)
		switch {
		case errors.Is(err, shared.ErrSettingsNotFound):
		case err != nil:
			return KPIAccounts{}, err
		default:
			kpi.Receivable, kpi.Payable = receivable, payable
		}
	}
	if s.cash != nil {
		cash, err := s.cash.CashAccounts(ctx, *entity.CompanyID)
		switch {
		case errors.Is(err, shared.ErrSettingsNotFound):
		case err != nil:
			return KPIAccounts{}, err
		default:
			kpi.Cash = cash
		}
	}
	return kpi, nil
}

func (s *Service) entity(ctx context.Context, id uuid.UUID) (entities.Entity, error) {
	if id == uuid.Nil {
		return entities.Entity{}, shared.ErrEntityNotFound
	}
	entity, err := s.entities.Entity(ctx, id)
	if err != nil {
		return entities.Entity{}, err
	}
	if entity.ID != id {
		return entities.Entity{}, s.isolation(entities.Entity{ID: id}, "reports", "entity "+entity.ID.String())
	}
	return entity, nil
}

func (s *Service) fetch(ctx context.Context, entityID uuid.UUID, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.Key(ctx, entityID, parts...)
	if err != nil {
		s.logger.Warn("report cache version unavailable", slog.String("entity_id", entityID.String()), slog.Any("error", err))
		return s.cache.FetchJSON(ctx, "", dest, loader)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

func (s *Service) balances(ctx context.Context, entity entities.Entity, component string, q BalanceQuery) ([]AccountBalance, error) {
	rows, err := s.repo.AccountBalances(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, b := range rows {
		if err := s.checkRow(entity, component, b.EntityID, b.CompanyID); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// checkRow re-verifies that storage honoured the entity filter.
func (s *Service) checkRow(entity entities.Entity, component string, entityID uuid.UUID, companyID *uuid.UUID) error {
	if entity.Owns(entityID, companyID) {
		return nil
	}
	found := "entity " + entityID.String()
	if companyID != nil {
		found += " company " + companyID.String()
	}
	return s.isolation(entity, component, found)
}

func (s *Service) isolation(entity entities.Entity, component, found string) error {
	s.metrics.IsolationViolation(component)
	s.logger.Error("report row crossed entity boundary",
		slog.String("component", component),
		slog.String("entity_id", entity.ID.String()),
		slog.String("found", found))
	return shared.Isolation(component, entity.ID, found)
}

func (s *Service) dateOr(t time.Time) time.Time {
	if t.IsZero() {
		return shared.DateOnly(s.now())
	}
	return shared.DateOnly(t)
}

func (s *Service) window(from, to time.Time) (Window, error) {
	to = s.dateOr(to)
	if from.IsZero() {
		from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return Range(from, to)
}

func drafts(include bool) string {
	return "drafts=" + strconv.FormatBool(include)
}

func dim(name string, id *uuid.UUID) string {
	if id == nil {
		return name + "=*"
	}
	return name + "=" + id.String()
}

func accountsToken(ids []uuid.UUID) string {
	token := "accounts="
	for i, id := range ids {
		if i > 0 {
			token += ","
		}
		token += id.String()
	}
	return token
}
