package accountinghttp

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
	ledger "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

const requestTimeout = 10 * time.Second

// EntityResolver maps the URL scope to a ledger entity.
type EntityResolver interface {
	ResolveEntityID(ctx context.Context, scope ledger.Scope, companyID *uuid.UUID) (uuid.UUID, error)
}

// ChartService is the chart of accounts contract used by the handler.
type ChartService interface {
	Chart(ctx context.Context, entityID uuid.UUID) (accounts.Chart, error)
	CreateHeading(ctx context.Context, in accounts.HeadingInput) (accounts.Heading, error)
	CreateSubheading(ctx context.Context, in accounts.SubheadingInput) (accounts.Subheading, error)
	CreateGroup(ctx context.Context, in accounts.GroupInput) (accounts.Group, error)
	CreateAccount(ctx context.Context, in accounts.AccountInput) (accounts.Account, error)
	UpdateAccount(ctx context.Context, in accounts.UpdateAccountInput) (accounts.Account, error)
	DeleteAccount(ctx context.Context, entityID, accountID, actorID uuid.UUID) error
	MapAccountToStandard(ctx context.Context, in accounts.MapStandardInput) (accounts.Account, error)
}

// JournalService is the journal engine contract used by the handler.
type JournalService interface {
	CreateDraftJournal(ctx context.Context, in journals.DraftInput) (journals.Journal, error)
	PostJournal(ctx context.Context, in journals.DraftInput) (journals.Journal, error)
	UpdateDraftJournal(ctx context.Context, in journals.UpdateDraftInput) (journals.Journal, error)
	MarkJournalAsPosted(ctx context.Context, in journals.PostInput) (journals.Journal, error)
	ReverseJournal(ctx context.Context, in journals.ReverseInput) (journals.Journal, error)
	GetJournalWithLines(ctx context.Context, entityID, journalID uuid.UUID) (journals.Journal, error)
	ListEntityJournals(ctx context.Context, filter journals.ListFilter) ([]journals.Journal, error)
}

// ReportService builds the financial reports.
type ReportService interface {
	TrialBalance(ctx context.Context, q reports.TrialBalanceQuery) (reports.TrialBalance, error)
	BalanceSheet(ctx context.Context, q reports.BalanceSheetQuery) (reports.BalanceSheet, error)
	ProfitAndLoss(ctx context.Context, q reports.ProfitAndLossQuery) (reports.ProfitAndLoss, error)
	CashFlow(ctx context.Context, q reports.CashFlowQuery) (reports.CashFlow, error)
	AccountStatement(ctx context.Context, q reports.AccountStatementQuery) (reports.AccountStatement, error)
	LedgerEntries(ctx context.Context, q reports.LedgerEntriesQuery) ([]reports.LedgerEntry, error)
	Summary(ctx context.Context, q reports.SummaryQuery) (reports.Summary, error)
}

// SettingsService reads and writes company account mappings.
type SettingsService interface {
	Get(ctx context.Context, companyID uuid.UUID) (settings.Settings, error)
	Upsert(ctx context.Context, in settings.Settings, actorID uuid.UUID) (settings.Settings, error)
}

// Config collects the handler dependencies. Gate defaults to
// shared.TrustedHeaderGate.
type Config struct {
	Logger   *slog.Logger
	Resolver EntityResolver
	Chart    ChartService
	Journals JournalService
	Reports  ReportService
	Settings SettingsService
	Gate     shared.PermissionGate
}

// Handler exposes the ledger over JSON.
type Handler struct {
	logger    *slog.Logger
	resolver  EntityResolver
	chart     ChartService
	journals  JournalService
	reports   ReportService
	settings  SettingsService
	gate      shared.PermissionGate
	validator *validator.Validate
	csvPool   sync.Pool
}

// NewHandler constructs the accounting HTTP handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := cfg.Gate
	if gate == nil {
		gate = shared.TrustedHeaderGate{}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	h := &Handler{
		logger:    logger,
		resolver:  cfg.Resolver,
		chart:     cfg.Chart,
		journals:  cfg.Journals,
		reports:   cfg.Reports,
		settings:  cfg.Settings,
		gate:      gate,
		validator: v,
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

type scopeKey struct{}

type requestScope struct {
	scope     ledger.Scope
	companyID *uuid.UUID
}

// scoped pins the ledger scope of a route group. Company routes read the
// companyID URL parameter.
func scoped(scope ledger.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := requestScope{scope: scope}
			if scope == ledger.ScopeCompany {
				id, err := uuid.Parse(chi.URLParam(r, "companyID"))
				if err != nil || id == uuid.Nil {
					httpx.Problem(w, http.StatusBadRequest, "Invalid Scope", "companyID must be a uuid")
					return
				}
				rs.companyID = &id
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), scopeKey{}, rs)))
		})
	}
}

func scopeFrom(r *http.Request) requestScope {
	rs, _ := r.Context().Value(scopeKey{}).(requestScope)
	return rs
}

// allow checks action against the gate and writes 403 when denied.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, action string) bool {
	rs := scopeFrom(r)
	if h.gate.Allow(r, action, shared.ScopeContext{Scope: string(rs.scope), CompanyID: rs.companyID}) {
		return true
	}
	h.logger.Warn("accounting permission denied",
		slog.String("action", action),
		slog.String("scope", string(rs.scope)),
		slog.String("path", r.URL.Path))
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+action)
	return false
}

// entity resolves the request scope to an entity id, writing the error
// response on failure.
func (h *Handler) entity(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	rs := scopeFrom(r)
	id, err := h.resolver.ResolveEntityID(r.Context(), rs.scope, rs.companyID)
	if err != nil {
		h.respondError(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			h.respondError(w, r, err)
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe.Namespace())] = failedRule(fe)
		}
		httpx.FieldProblem(w, fields)
		return false
	}
	return true
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func failedRule(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
