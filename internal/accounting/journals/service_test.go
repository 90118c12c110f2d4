package journals_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

var day = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func draft(entityID uuid.UUID, lines ...journals.LineInput) journals.DraftInput {
	return journals.DraftInput{EntityID: entityID, Date: day, Description: "cash sale", Lines: lines}
}

func accountsUpdate(entityID, accountID uuid.UUID, active *bool) accounts.UpdateAccountInput {
	return accounts.UpdateAccountInput{EntityID: entityID, AccountID: accountID, IsActive: active}
}

func counterTotal(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func postSale(t *testing.T, l *ledgertest.Ledger, entityID uuid.UUID, amount string) journals.Journal {
	t.Helper()
	ctx := context.Background()
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")
	created, err := l.Journals.CreateDraftJournal(ctx, draft(entityID, ledgertest.Debit(cash, amount), ledgertest.Credit(sales, amount)))
	require.NoError(t, err)
	posted, err := l.Journals.MarkJournalAsPosted(ctx, journals.PostInput{EntityID: entityID, JournalID: created.ID})
	require.NoError(t, err)
	return posted
}

func TestPostBalancedJournalReachesTrialBalance(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)

	posted := postSale(t, l, entityID, "500")
	assert.Equal(t, journals.StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.Len(t, posted.Lines, 2)

	tb, err := l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityID, DateTo: day})
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.Equal(t, "500.00", tb.TotalDebit.StringFixed(2))
	assert.Equal(t, "500.00", tb.TotalCredit.StringFixed(2))
	balances := map[string]string{}
	for _, row := range tb.Rows {
		balances[row.Code] = row.Balance.StringFixed(2)
	}
	assert.Equal(t, "500.00", balances["1000"])
	assert.Equal(t, "-500.00", balances["4000"])
	assert.Equal(t, []string{"journal.create", "journal.post"}, l.Audit.Actions())
	assert.Equal(t, float64(2), counterTotal(t, l.Registry, "odyssey_ledger_journals_total"))
}

func TestUnbalancedDraftIsRejectedAndNotPersisted(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyID, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	_, err := l.Journals.CreateDraftJournal(ctx, draft(entityID, ledgertest.Debit(cash, "500"), ledgertest.Credit(sales, "400")))
	var unbalanced *shared.UnbalancedError
	require.True(t, errors.As(err, &unbalanced), "got %v", err)
	assert.Equal(t, "100.00", unbalanced.Delta().StringFixed(2))

	list, err := l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: shared.ScopeCompany, CompanyID: &companyID})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, float64(1), counterTotal(t, l.Registry, "odyssey_ledger_unbalanced_rejections_total"))
	assert.Empty(t, l.Audit.Actions())
}

func TestSubCentLinesAreCheckedAsStored(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyID, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	_, err := l.Journals.CreateDraftJournal(ctx, draft(entityID,
		ledgertest.Debit(cash, "0.005"), ledgertest.Debit(cash, "0.005"), ledgertest.Credit(sales, "0.01")))
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	list, err := l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: shared.ScopeCompany, CompanyID: &companyID})
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := l.Journals.CreateDraftJournal(ctx, draft(entityID,
		ledgertest.Debit(cash, "10.004"), ledgertest.Credit(sales, "9.996")))
	require.NoError(t, err)
	debit, credit := created.Totals()
	assert.Equal(t, "10.00", debit.StringFixed(2))
	assert.True(t, debit.Equal(credit))
	_, err = l.Journals.MarkJournalAsPosted(ctx, journals.PostInput{EntityID: entityID, JournalID: created.ID})
	require.NoError(t, err)
}

func TestPostJournalWritesPostedInOneStep(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyID, entityID := l.Company(t)
	_, otherEntity := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	posted, err := l.Journals.PostJournal(ctx, draft(entityID, ledgertest.Debit(cash, "60"), ledgertest.Credit(sales, "60")))
	require.NoError(t, err)
	assert.Equal(t, journals.StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.Len(t, posted.Lines, 2)
	assert.Equal(t, []string{"journal.post"}, l.Audit.Actions())

	tb, err := l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityID, DateTo: day})
	require.NoError(t, err)
	assert.Equal(t, "60.00", tb.TotalDebit.StringFixed(2))

	_, err = l.Journals.PostJournal(ctx, draft(entityID, ledgertest.Debit(cash, "60"), ledgertest.Credit(sales, "59")))
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	foreign := l.Account(t, otherEntity, "4000")
	in := draft(entityID, ledgertest.Debit(cash, "5"), ledgertest.Credit(foreign, "5"))
	in.SkipAccountValidation = true
	_, err = l.Journals.PostJournal(ctx, in)
	require.ErrorIs(t, err, shared.ErrAccountCrossEntity)

	list, err := l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: shared.ScopeCompany, CompanyID: &companyID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDraftsExcludedUnlessRequested(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	_, err := l.Journals.CreateDraftJournal(ctx, draft(entityID, ledgertest.Debit(cash, "250"), ledgertest.Credit(sales, "250")))
	require.NoError(t, err)

	tb, err := l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityID, DateTo: day})
	require.NoError(t, err)
	assert.True(t, tb.TotalDebit.IsZero())

	tb, err = l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityID, DateTo: day, IncludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, "250.00", tb.TotalDebit.StringFixed(2))
}

func TestCrossCompanyAccountIsRejected(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyA, entityA := l.Company(t)
	_, entityB := l.Company(t)
	cashA := l.Account(t, entityA, "1000")
	salesB := l.Account(t, entityB, "4000")

	_, err := l.Journals.CreateDraftJournal(ctx, draft(entityA, ledgertest.Debit(cashA, "80"), ledgertest.Credit(salesB, "80")))
	require.ErrorIs(t, err, shared.ErrAccountCrossEntity)

	list, err := l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: shared.ScopeCompany, CompanyID: &companyA})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUnknownAndInactiveAccounts(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	_, err := l.Journals.CreateDraftJournal(ctx, draft(entityID, ledgertest.Debit(uuid.New(), "10"), ledgertest.Credit(sales, "10")))
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	inactive := false
	_, err = l.Chart.UpdateAccount(ctx, accountsUpdate(entityID, sales, &inactive))
	require.NoError(t, err)
	_, err = l.Journals.CreateDraftJournal(ctx, draft(entityID, ledgertest.Debit(cash, "10"), ledgertest.Credit(sales, "10")))
	require.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestPostedJournalIsImmutable(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	posted := postSale(t, l, entityID, "75")
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	_, err := l.Journals.MarkJournalAsPosted(ctx, journals.PostInput{EntityID: entityID, JournalID: posted.ID})
	require.ErrorIs(t, err, shared.ErrJournalNotDraft)

	_, err = l.Journals.UpdateDraftJournal(ctx, journals.UpdateDraftInput{
		JournalID:  posted.ID,
		DraftInput: draft(entityID, ledgertest.Debit(cash, "90"), ledgertest.Credit(sales, "90")),
	})
	require.ErrorIs(t, err, shared.ErrJournalNotDraft)

	stored, err := l.Journals.GetJournalWithLines(ctx, entityID, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", stored.Lines[0].Debit.StringFixed(2))
}

func TestUpdateDraftReplacesLines(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash, bank, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "1100"), l.Account(t, entityID, "4000")

	created, err := l.Journals.CreateDraftJournal(ctx, draft(entityID, ledgertest.Debit(cash, "40"), ledgertest.Credit(sales, "40")))
	require.NoError(t, err)

	in := draft(entityID, ledgertest.Debit(cash, "20"), ledgertest.Debit(bank, "30"), ledgertest.Credit(sales, "50"))
	in.Reference = "INV-9"
	updated, err := l.Journals.UpdateDraftJournal(ctx, journals.UpdateDraftInput{JournalID: created.ID, DraftInput: in})
	require.NoError(t, err)
	assert.Equal(t, "INV-9", updated.DisplayNumber())
	require.Len(t, updated.Lines, 3)

	stored, err := l.Journals.GetJournalWithLines(ctx, entityID, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 3)
	for i, line := range stored.Lines {
		assert.Equal(t, i+1, line.LineNo)
	}
	debit, credit := stored.Totals()
	assert.True(t, debit.Equal(credit))
}

func TestReverseJournal(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	posted := postSale(t, l, entityID, "120")

	reversal, err := l.Journals.ReverseJournal(ctx, journals.ReverseInput{EntityID: entityID, JournalID: posted.ID})
	require.NoError(t, err)
	assert.Equal(t, journals.StatusDraft, reversal.Status)
	require.NotNil(t, reversal.ReversesJournalID)
	assert.Equal(t, posted.ID, *reversal.ReversesJournalID)
	assert.Equal(t, "Reversal of "+posted.DisplayNumber(), reversal.Description)
	require.Len(t, reversal.Lines, 2)
	assert.True(t, reversal.Lines[0].Credit.Equal(posted.Lines[0].Debit))

	_, err = l.Journals.ReverseJournal(ctx, journals.ReverseInput{EntityID: entityID, JournalID: posted.ID})
	require.ErrorIs(t, err, shared.ErrAlreadyReversed)

	_, err = l.Journals.ReverseJournal(ctx, journals.ReverseInput{EntityID: entityID, JournalID: reversal.ID})
	require.ErrorIs(t, err, shared.ErrJournalNotPosted)

	_, err = l.Journals.MarkJournalAsPosted(ctx, journals.PostInput{EntityID: entityID, JournalID: reversal.ID})
	require.NoError(t, err)
	tb, err := l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityID, DateTo: day})
	require.NoError(t, err)
	for _, row := range tb.Rows {
		assert.True(t, row.Balance.IsZero(), row.Code)
	}
}

func TestJournalOfOtherEntityIsNotFound(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityA := l.Company(t)
	_, entityB := l.Company(t)
	posted := postSale(t, l, entityA, "10")

	_, err := l.Journals.GetJournalWithLines(ctx, entityB, posted.ID)
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
	_, err = l.Journals.MarkJournalAsPosted(ctx, journals.PostInput{EntityID: entityB, JournalID: posted.ID})
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
	_, err = l.Journals.ReverseJournal(ctx, journals.ReverseInput{EntityID: entityB, JournalID: posted.ID})
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
	assert.Zero(t, counterTotal(t, l.Registry, "odyssey_ledger_isolation_violations_total"))
}

// strayRepo returns every journal as if it belonged to the caller's entity
// while keeping the stored entity id on the row.
type strayRepo struct {
	journals.Repository
	owner uuid.UUID
}

func (r strayRepo) GetJournal(ctx context.Context, _, id uuid.UUID) (journals.Journal, error) {
	return r.Repository.GetJournal(ctx, r.owner, id)
}

func TestMismatchedRowFromFilteredLookupIsIsolation(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityA := l.Company(t)
	_, entityB := l.Company(t)
	posted := postSale(t, l, entityA, "10")

	svc := journals.NewService(journals.ServiceConfig{
		Repo:    strayRepo{Repository: l.Store.Journals(), owner: entityA},
		Metrics: l.Metrics,
	})
	_, err := svc.GetJournalWithLines(ctx, entityB, posted.ID)
	require.ErrorIs(t, err, shared.ErrEntityIsolation)
	var isolation *shared.IsolationError
	require.True(t, errors.As(err, &isolation))
	assert.Equal(t, entityB, isolation.EntityID)
	assert.Equal(t, float64(1), counterTotal(t, l.Registry, "odyssey_ledger_isolation_violations_total"))
}

func TestListEntityJournalsFilters(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyID, entityID := l.Company(t)
	first := postSale(t, l, entityID, "10")
	second := postSale(t, l, entityID, "20")
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")
	later := draft(entityID, ledgertest.Debit(cash, "5"), ledgertest.Credit(sales, "5"))
	later.Date = day.AddDate(0, 1, 0)
	pending, err := l.Journals.CreateDraftJournal(ctx, later)
	require.NoError(t, err)

	all, err := l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: shared.ScopeCompany, CompanyID: &companyID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{pending.ID, second.ID, first.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	to := day
	posted, err := l.Journals.ListEntityJournals(ctx, journals.ListFilter{
		Scope: shared.ScopeCompany, CompanyID: &companyID, To: &to, Status: journals.StatusPosted,
	})
	require.NoError(t, err)
	assert.Len(t, posted, 2)

	_, err = l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: shared.ScopeCompany})
	require.ErrorIs(t, err, shared.ErrInvalidScope)
	_, err = l.Journals.ListEntityJournals(ctx, journals.ListFilter{Scope: "branch"})
	require.ErrorIs(t, err, shared.ErrInvalidScope)
}

func TestCreateRequiresEntityAndDate(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")

	in := draft(uuid.Nil, ledgertest.Debit(cash, "1"), ledgertest.Credit(sales, "1"))
	_, err := l.Journals.CreateDraftJournal(ctx, in)
	require.ErrorIs(t, err, shared.ErrEntityNotFound)

	in = draft(entityID, ledgertest.Debit(cash, "1"), ledgertest.Credit(sales, "1"))
	in.Date = time.Time{}
	_, err = l.Journals.CreateDraftJournal(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidDate)

	_, err = l.Journals.CreateDraftJournal(ctx, draft(entityID))
	require.ErrorIs(t, err, shared.ErrNoLines)
}
