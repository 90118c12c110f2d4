package accountinghttp_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountinghttp "github.com/odyssey-erp/odyssey-books/internal/accounting/http"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

type fixture struct {
	ledger *ledgertest.Ledger
	router chi.Router
}

func newFixture(t *testing.T, gate shared.PermissionGate) *fixture {
	t.Helper()
	l := ledgertest.NewLedger(t)
	h := accountinghttp.NewHandler(accountinghttp.Config{
		Resolver: l.Resolver,
		Chart:    l.Chart,
		Journals: l.Journals,
		Reports:  l.Reports,
		Settings: l.Settings,
		Gate:     gate,
	})
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	h.MountRoutes(r)
	return &fixture{ledger: l, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func companyPath(companyID uuid.UUID, rest string) string {
	return "/api/accounting/companies/" + companyID.String() + rest
}

func journalBody(lines ...map[string]any) map[string]any {
	return map[string]any{
		"date":        "2025-03-10",
		"description": "Cash sale",
		"lines":       lines,
	}
}

func line(accountID uuid.UUID, debit, credit string) map[string]any {
	return map[string]any{"account_id": accountID.String(), "debit": debit, "credit": credit}
}

func TestCreatePostAndTrialBalance(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")
	sales := f.ledger.Account(t, entityID, "4000")

	rec := f.do(t, http.MethodPost, companyPath(companyID, "/journals"), journalBody(line(cash, "250.00", ""), line(sales, "", "250.00")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "draft", created["status"])
	assert.Equal(t, "250.00", created["total_debit"])
	id := created["id"].(string)

	rec = f.do(t, http.MethodPost, companyPath(companyID, "/journals/"+id+"/post"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "posted", decodeBody[map[string]any](t, rec)["status"])

	rec = f.do(t, http.MethodGet, companyPath(companyID, "/reports/trial-balance?date_to=2025-03-31"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tb := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, tb["balanced"])
	assert.Equal(t, "250", tb["total_debit"])
	assert.Equal(t, "250", tb["total_credit"])

	rec = f.do(t, http.MethodPut, companyPath(companyID, "/journals/"+id), journalBody(line(cash, "1.00", ""), line(sales, "", "1.00")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnbalancedJournalIs422(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")
	sales := f.ledger.Account(t, entityID, "4000")

	rec := f.do(t, http.MethodPost, companyPath(companyID, "/journals"), journalBody(line(cash, "500.00", ""), line(sales, "", "400.00")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	problem := decodeBody[httpx.ProblemDetail](t, rec)
	assert.Contains(t, problem.Detail, "delta 100.00")
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = f.do(t, http.MethodGet, companyPath(companyID, "/journals"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestValidationProblemListsFields(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, _ := f.ledger.Company(t)

	rec := f.do(t, http.MethodPost, companyPath(companyID, "/journals"), map[string]any{"date": "10/03/2025"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeBody[httpx.ProblemDetail](t, rec)
	assert.Equal(t, "datetime=2006-01-02", problem.Fields["date"])
	assert.Equal(t, "required", problem.Fields["lines"])

	rec = f.do(t, http.MethodPost, companyPath(companyID, "/journals"), map[string]any{"date": "2025-03-10", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOversizedAmountIs400(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")
	sales := f.ledger.Account(t, entityID, "4000")

	huge := "12345678901234567890.00"
	rec := f.do(t, http.MethodPost, companyPath(companyID, "/journals"), journalBody(line(cash, huge, ""), line(sales, "", huge)))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decodeBody[httpx.ProblemDetail](t, rec).Detail, "lines[0].debit")
}

func TestInvalidCompanyPath(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	rec := f.do(t, http.MethodGet, "/api/accounting/companies/not-a-uuid/journals", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPermissionGate(t *testing.T) {
	f := newFixture(t, shared.TrustedHeaderGate{})
	companyID, _ := f.ledger.Company(t)
	path := companyPath(companyID, "/reports/trial-balance")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path, nil,
		shared.HeaderPermissions, shared.PermReportsView,
		shared.HeaderCompanies, uuid.NewString()).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil,
		shared.HeaderPermissions, shared.PermReportsView,
		shared.HeaderCompanies, companyID.String()).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounting/global/reports/trial-balance", nil,
		shared.HeaderPermissions, shared.PermReportsView).Code)
}

func TestJournalOfOtherCompanyIsHidden(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyA, entityA := f.ledger.Company(t)
	companyB, _ := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityA, "1000")
	sales := f.ledger.Account(t, entityA, "4000")

	rec := f.do(t, http.MethodPost, companyPath(companyA, "/journals"), journalBody(line(cash, "10.00", ""), line(sales, "", "10.00")))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[map[string]any](t, rec)["id"].(string)

	rec = f.do(t, http.MethodGet, companyPath(companyB, "/journals/"+id), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodPost, companyPath(companyB, "/journals/"+id+"/post"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, companyPath(companyB, "/journals"), journalBody(line(cash, "10.00", ""), line(sales, "", "10.00")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReverseFlow(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")
	sales := f.ledger.Account(t, entityID, "4000")

	rec := f.do(t, http.MethodPost, companyPath(companyID, "/journals"), journalBody(line(cash, "80.00", ""), line(sales, "", "80.00")))
	id := decodeBody[map[string]any](t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, companyPath(companyID, "/journals/"+id+"/reverse"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	f.do(t, http.MethodPost, companyPath(companyID, "/journals/"+id+"/post"), nil)
	rec = f.do(t, http.MethodPost, companyPath(companyID, "/journals/"+id+"/reverse"), map[string]any{"date": "2025-03-31"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reversal := decodeBody[map[string]any](t, rec)
	assert.Equal(t, id, reversal["reverses_journal_id"])
	assert.Equal(t, "2025-03-31", reversal["date"])

	rec = f.do(t, http.MethodPost, companyPath(companyID, "/journals/"+id+"/reverse"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChartEndpoints(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)

	rec := f.do(t, http.MethodGet, companyPath(companyID, "/chart"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chart := decodeBody[struct {
		Accounts []map[string]any `json:"accounts"`
	}](t, rec)
	assert.Len(t, chart.Accounts, 19)

	cash, ok := f.ledger.Store.AccountByCode(entityID, "1000")
	require.True(t, ok)
	rec = f.do(t, http.MethodPost, companyPath(companyID, "/accounts"), map[string]any{
		"code": "1010", "name": "Petty Cash", "group_id": cash.GroupID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "asset", created["class"])

	rec = f.do(t, http.MethodPost, companyPath(companyID, "/accounts"), map[string]any{
		"code": "1010", "name": "Again", "group_id": cash.GroupID.String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPatch, companyPath(companyID, "/accounts/"+created["id"].(string)), map[string]any{"name": "Float"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Float", decodeBody[map[string]any](t, rec)["name"])

	rec = f.do(t, http.MethodDelete, companyPath(companyID, "/accounts/"+created["id"].(string)), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")

	rec := f.do(t, http.MethodGet, companyPath(companyID, "/settings"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, companyPath(companyID, "/settings"), map[string]any{"cash_account_id": cash.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, companyPath(companyID, "/settings"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cash.String(), decodeBody[map[string]any](t, rec)["cash_account_id"])

	foreign := f.ledger.Account(t, f.ledger.Global(t), "1000")
	rec = f.do(t, http.MethodPut, companyPath(companyID, "/settings"), map[string]any{"cash_account_id": foreign.String()})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTrialBalanceCSV(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	rec := f.do(t, http.MethodGet, "/api/accounting/global/reports/trial-balance.csv?date_to=2025-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trial_balance_2025-01-31.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "code,name,currency,debit,credit,balance", lines[0])
	assert.Equal(t, ",TOTAL,USD,0.00,0.00,0.00", lines[len(lines)-1])
}

func TestAccountStatementRequiresAccount(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	rec := f.do(t, http.MethodGet, "/api/accounting/global/reports/account-statement", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/accounting/global/reports/account-statement?account_id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePostedJournalNeedsBothPermissions(t *testing.T) {
	f := newFixture(t, shared.TrustedHeaderGate{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")
	sales := f.ledger.Account(t, entityID, "4000")
	path := companyPath(companyID, "/journals/posted")
	body := journalBody(line(cash, "45.00", ""), line(sales, "", "45.00"))

	rec := f.do(t, http.MethodPost, path, body,
		shared.HeaderPermissions, shared.PermJournalsEdit,
		shared.HeaderCompanies, companyID.String())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, path, body,
		shared.HeaderPermissions, shared.PermJournalsEdit+","+shared.PermJournalsPost,
		shared.HeaderCompanies, companyID.String())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	posted := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "posted", posted["status"])
	assert.Equal(t, "45.00", posted["total_debit"])
}

func TestLedgerEntriesAndSummary(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)
	cash := f.ledger.Account(t, entityID, "1000")
	ar := f.ledger.Account(t, entityID, "1200")
	sales := f.ledger.Account(t, entityID, "4000")

	rec := f.do(t, http.MethodPost, companyPath(companyID, "/journals/posted"), journalBody(line(ar, "300.00", ""), line(sales, "", "300.00")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, companyPath(companyID, "/journals/posted"), journalBody(line(cash, "100.00", ""), line(ar, "", "100.00")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, companyPath(companyID, "/reports/ledger-entries?as_of=2025-03-31&limit=3"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decodeBody[[]map[string]any](t, rec)
	require.Len(t, entries, 3)
	assert.Equal(t, "1200", entries[0]["code"])
	assert.Equal(t, "0", entries[0]["balance"])

	rec = f.do(t, http.MethodGet, companyPath(companyID, "/reports/ledger-entries?limit=0"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, companyPath(companyID, "/summary?as_of=2025-03-31&entries=1"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(2), sum["journal_count"])
	assert.Equal(t, "200", sum["accounts_receivable"])
	assert.Equal(t, "100", sum["available_cash"])
	assert.Len(t, sum["entries"], 1)
}

func TestStandardAccountMapping(t *testing.T) {
	f := newFixture(t, shared.AllowAll{})
	companyID, entityID := f.ledger.Company(t)

	rec := f.do(t, http.MethodGet, companyPath(companyID, "/standard-accounts"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	catalog := decodeBody[[]map[string]any](t, rec)
	require.Len(t, catalog, 19)
	assert.Equal(t, "1000", catalog[0]["code"])

	cash, ok := f.ledger.Store.AccountByCode(entityID, "1000")
	require.True(t, ok)
	rec = f.do(t, http.MethodPost, companyPath(companyID, "/accounts"), map[string]any{
		"code": "1010", "name": "Petty Cash", "group_id": cash.GroupID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[map[string]any](t, rec)["id"].(string)
	path := companyPath(companyID, "/accounts/"+id+"/standard")

	rec = f.do(t, http.MethodPut, path, map[string]any{"standard_code": "1100"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1100", decodeBody[map[string]any](t, rec)["standard_code"])

	rec = f.do(t, http.MethodPut, path, map[string]any{"standard_code": "2000"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = f.do(t, http.MethodPut, path, map[string]any{"standard_code": "1999"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, path, map[string]any{"standard_code": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	_, linked := decodeBody[map[string]any](t, rec)["standard_code"]
	assert.False(t, linked)
}
