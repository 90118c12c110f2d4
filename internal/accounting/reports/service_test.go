package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

var (
	jan10 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	jan20 = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	feb05 = time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
)

func post(t *testing.T, l *ledgertest.Ledger, entityID uuid.UUID, date time.Time, lines ...journals.LineInput) journals.Journal {
	t.Helper()
	ctx := context.Background()
	created, err := l.Journals.CreateDraftJournal(ctx, journals.DraftInput{EntityID: entityID, Date: date, Lines: lines})
	require.NoError(t, err)
	posted, err := l.Journals.MarkJournalAsPosted(ctx, journals.PostInput{EntityID: entityID, JournalID: created.ID})
	require.NoError(t, err)
	return posted
}

func TestEmptyEntityReportsZeros(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)

	tb, err := l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityID, DateTo: jan20})
	require.NoError(t, err)
	assert.Len(t, tb.Rows, 19)
	assert.True(t, tb.Balanced)
	assert.True(t, tb.TotalDebit.IsZero())

	pl, err := l.Reports.ProfitAndLoss(ctx, reports.ProfitAndLossQuery{EntityID: entityID, From: jan10, To: jan20})
	require.NoError(t, err)
	assert.Empty(t, pl.Statement.Headings)
	assert.True(t, pl.NetIncome.IsZero())

	_, err = l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: uuid.Nil})
	require.ErrorIs(t, err, shared.ErrEntityNotFound)
}

func TestBalanceSheetAsOfAndRange(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash, capital, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "3000"), l.Account(t, entityID, "4000")
	post(t, l, entityID, jan10, ledgertest.Debit(cash, "1000"), ledgertest.Credit(capital, "1000"))
	post(t, l, entityID, feb05, ledgertest.Debit(cash, "300"), ledgertest.Credit(sales, "300"))

	asOf := jan20
	bs, err := l.Reports.BalanceSheet(ctx, reports.BalanceSheetQuery{EntityID: entityID, AsOf: &asOf})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", bs.TotalAssets.StringFixed(2))
	assert.Equal(t, "1000.00", bs.TotalEquity.StringFixed(2))
	assert.True(t, bs.Balanced)

	from, to := jan20, feb05
	bs, err = l.Reports.BalanceSheet(ctx, reports.BalanceSheetQuery{EntityID: entityID, From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, reports.WindowRange, bs.Statement.Window.Mode)
	assert.Equal(t, "300.00", bs.TotalAssets.StringFixed(2))
	assert.Equal(t, "300.00", bs.CurrentEarnings.StringFixed(2))
	assert.True(t, bs.TotalEquity.IsZero())

	_, err = l.Reports.BalanceSheet(ctx, reports.BalanceSheetQuery{EntityID: entityID, From: &from})
	require.ErrorIs(t, err, shared.ErrInvalidDate)
}

func TestProfitAndLossWindowAndBranchFilter(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash, sales, cogs := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000"), l.Account(t, entityID, "5000")
	branch := uuid.New()

	tagged := ledgertest.Credit(sales, "200")
	tagged.Dimensions.BranchID = &branch
	post(t, l, entityID, jan10, ledgertest.Debit(cash, "200"), tagged)
	post(t, l, entityID, jan20, ledgertest.Debit(cogs, "50"), ledgertest.Credit(cash, "50"))
	post(t, l, entityID, feb05, ledgertest.Debit(cash, "999"), ledgertest.Credit(sales, "999"))

	pl, err := l.Reports.ProfitAndLoss(ctx, reports.ProfitAndLossQuery{EntityID: entityID, From: jan10, To: jan20})
	require.NoError(t, err)
	assert.Equal(t, "200.00", pl.TotalRevenue.StringFixed(2))
	assert.Equal(t, "50.00", pl.TotalExpense.StringFixed(2))
	assert.Equal(t, "150.00", pl.NetIncome.StringFixed(2))

	pl, err = l.Reports.ProfitAndLoss(ctx, reports.ProfitAndLossQuery{EntityID: entityID, From: jan10, To: jan20, BranchID: &branch})
	require.NoError(t, err)
	assert.Equal(t, "200.00", pl.NetIncome.StringFixed(2))

	_, err = l.Reports.ProfitAndLoss(ctx, reports.ProfitAndLossQuery{EntityID: entityID, From: jan20, To: jan10})
	require.ErrorIs(t, err, shared.ErrInvalidDate)
}

func TestAccountStatementRunningBalance(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	_, otherEntity := l.Company(t)
	cash, sales, cogs := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000"), l.Account(t, entityID, "5000")

	post(t, l, entityID, jan10, ledgertest.Debit(cash, "100"), ledgertest.Credit(sales, "100"))
	post(t, l, entityID, jan20, ledgertest.Debit(cash, "40"), ledgertest.Credit(sales, "40"))
	post(t, l, entityID, jan20, ledgertest.Debit(cogs, "25"), ledgertest.Credit(cash, "25"))

	st, err := l.Reports.AccountStatement(ctx, reports.AccountStatementQuery{EntityID: entityID, AccountID: cash, From: jan20, To: feb05})
	require.NoError(t, err)
	assert.Equal(t, "100.00", st.Opening.StringFixed(2))
	require.Len(t, st.Rows, 2)
	assert.Equal(t, "140.00", st.Rows[0].Balance.StringFixed(2))
	assert.Equal(t, "115.00", st.Rows[1].Balance.StringFixed(2))
	assert.Equal(t, "115.00", st.Closing.StringFixed(2))

	_, err = l.Reports.AccountStatement(ctx, reports.AccountStatementQuery{EntityID: otherEntity, AccountID: cash, From: jan10, To: feb05})
	require.ErrorIs(t, err, shared.ErrAccountCrossEntity)
	_, err = l.Reports.AccountStatement(ctx, reports.AccountStatementQuery{EntityID: entityID, AccountID: uuid.New(), From: jan10, To: feb05})
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestCashFlowUsesMappedAccounts(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyID, entityID := l.Company(t)
	cash, bank, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "1100"), l.Account(t, entityID, "4000")
	post(t, l, entityID, jan10, ledgertest.Debit(cash, "500"), ledgertest.Credit(sales, "500"))
	post(t, l, entityID, jan20, ledgertest.Debit(bank, "200"), ledgertest.Credit(cash, "200"))

	cf, err := l.Reports.CashFlow(ctx, reports.CashFlowQuery{EntityID: entityID, From: jan20, To: feb05})
	require.NoError(t, err)
	assert.Empty(t, cf.Accounts, "no mappings yet")

	mapping := settings.Settings{CompanyID: companyID, Cash: &cash, BankClearing: &bank}
	_, err = l.Settings.Upsert(ctx, mapping, uuid.Nil)
	require.NoError(t, err)

	cf, err = l.Reports.CashFlow(ctx, reports.CashFlowQuery{EntityID: entityID, From: jan20, To: feb05})
	require.NoError(t, err)
	require.Len(t, cf.Accounts, 2)
	assert.Equal(t, "1000", cf.Accounts[0].Code)
	assert.Equal(t, "500.00", cf.Accounts[0].Opening.StringFixed(2))
	assert.Equal(t, "-200.00", cf.Accounts[0].Net.StringFixed(2))
	assert.Equal(t, "200.00", cf.Accounts[1].Inflow.StringFixed(2))
	assert.Equal(t, "500.00", cf.Total.Closing.StringFixed(2))

	global := l.Global(t)
	cf, err = l.Reports.CashFlow(ctx, reports.CashFlowQuery{EntityID: global, From: jan10, To: feb05})
	require.NoError(t, err)
	assert.Empty(t, cf.Accounts)
}

type leakyRepo struct {
	*ledgertest.ReportRepo
	leak reports.AccountBalance
}

func (r leakyRepo) AccountBalances(ctx context.Context, q reports.BalanceQuery) ([]reports.AccountBalance, error) {
	rows, err := r.ReportRepo.AccountBalances(ctx, q)
	return append(rows, r.leak), err
}

func TestReportsRejectForeignRows(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityA := l.Company(t)
	companyB, entityB := l.Company(t)

	svc := reports.NewService(reports.ServiceConfig{
		Repo: leakyRepo{
			ReportRepo: l.Store.Reports(),
			leak:       reports.AccountBalance{EntityID: entityB, CompanyID: &companyB, Code: "1000"},
		},
		Entities: l.Resolver,
		Accounts: l.Store.Accounts(),
		Metrics:  l.Metrics,
	})
	_, err := svc.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityA, DateTo: jan20})
	require.ErrorIs(t, err, shared.ErrEntityIsolation)

	_, err = svc.ProfitAndLoss(ctx, reports.ProfitAndLossQuery{EntityID: entityA, From: jan10, To: jan20})
	require.ErrorIs(t, err, shared.ErrEntityIsolation)
}

func TestCachedReportInvalidatedByPosting(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := ledgertest.NewLedger(t, ledgertest.WithRedis(client))
	_, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")
	post(t, l, entityID, jan10, ledgertest.Debit(cash, "10"), ledgertest.Credit(sales, "10"))

	q := reports.TrialBalanceQuery{EntityID: entityID, DateTo: jan20}
	first, err := l.Reports.TrialBalance(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "10.00", first.TotalDebit.StringFixed(2))
	key, err := l.Cache.Key(ctx, entityID, "tb", "asof=2025-01-20", "drafts=false", "branch=*", "vendor=*")
	require.NoError(t, err)
	assert.True(t, mr.Exists(key), "report stored under %s", key)

	post(t, l, entityID, jan10, ledgertest.Debit(cash, "5"), ledgertest.Credit(sales, "5"))
	assert.False(t, mr.Exists(mustKey(t, l, entityID)), "version bumped")

	second, err := l.Reports.TrialBalance(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "15.00", second.TotalDebit.StringFixed(2))
}

func TestCachedReportInvalidatedByChartChange(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := ledgertest.NewLedger(t, ledgertest.WithRedis(client))
	_, entityID := l.Company(t)
	cash, sales := l.Account(t, entityID, "1000"), l.Account(t, entityID, "4000")
	post(t, l, entityID, jan10, ledgertest.Debit(cash, "10"), ledgertest.Credit(sales, "10"))

	q := reports.TrialBalanceQuery{EntityID: entityID, DateTo: jan20}
	_, err := l.Reports.TrialBalance(ctx, q)
	require.NoError(t, err)
	require.True(t, mr.Exists(mustKey(t, l, entityID)))

	code, name := "1999", "Petty Cash"
	_, err = l.Chart.UpdateAccount(ctx, accounts.UpdateAccountInput{EntityID: entityID, AccountID: cash, Code: &code, Name: &name})
	require.NoError(t, err)
	assert.False(t, mr.Exists(mustKey(t, l, entityID)), "version bumped")

	tb, err := l.Reports.TrialBalance(ctx, q)
	require.NoError(t, err)
	row := findRow(tb, cash)
	require.NotNil(t, row)
	assert.Equal(t, "1999", row.Code)
	assert.Equal(t, "Petty Cash", row.Name)
}

func findRow(tb reports.TrialBalance, accountID uuid.UUID) *reports.TrialBalanceRow {
	for i := range tb.Rows {
		if tb.Rows[i].AccountID == accountID {
			return &tb.Rows[i]
		}
	}
	return nil
}

func TestCompanyReportsExcludeOtherCompanyActivity(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityX := l.Company(t)
	companyY, entityY := l.Company(t)
	cashX, salesX, capitalX := l.Account(t, entityX, "1000"), l.Account(t, entityX, "4000"), l.Account(t, entityX, "3000")
	post(t, l, entityX, jan10, ledgertest.Debit(cashX, "1000"), ledgertest.Credit(capitalX, "1000"))
	post(t, l, entityX, jan10, ledgertest.Debit(cashX, "250"), ledgertest.Credit(salesX, "250"))

	cashY := l.Account(t, entityY, "1000")
	_, err := l.Settings.Upsert(ctx, settings.Settings{CompanyID: companyY, Cash: &cashY}, uuid.Nil)
	require.NoError(t, err)

	chartX, err := l.Chart.Chart(ctx, entityX)
	require.NoError(t, err)
	foreign := map[uuid.UUID]bool{}
	for _, a := range chartX.Accounts {
		foreign[a.ID] = true
	}

	tb, err := l.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{EntityID: entityY, DateTo: feb05})
	require.NoError(t, err)
	assert.True(t, tb.TotalDebit.IsZero())
	assert.True(t, tb.TotalCredit.IsZero())
	for _, row := range tb.Rows {
		assert.False(t, foreign[row.AccountID], "trial balance lists %s of another company", row.Code)
		assert.True(t, row.Balance.IsZero())
	}

	asOf := feb05
	bs, err := l.Reports.BalanceSheet(ctx, reports.BalanceSheetQuery{EntityID: entityY, AsOf: &asOf})
	require.NoError(t, err)
	assert.True(t, bs.TotalAssets.IsZero())
	assert.True(t, bs.TotalEquity.IsZero())
	assert.True(t, bs.CurrentEarnings.IsZero())
	assertNoForeign(t, bs.Statement, foreign)

	pl, err := l.Reports.ProfitAndLoss(ctx, reports.ProfitAndLossQuery{EntityID: entityY, From: jan10, To: feb05})
	require.NoError(t, err)
	assert.True(t, pl.TotalRevenue.IsZero())
	assert.True(t, pl.NetIncome.IsZero())
	assertNoForeign(t, pl.Statement, foreign)

	cf, err := l.Reports.CashFlow(ctx, reports.CashFlowQuery{EntityID: entityY, From: jan10, To: feb05})
	require.NoError(t, err)
	assert.True(t, cf.Total.Inflow.IsZero())
	assert.True(t, cf.Total.Closing.IsZero())
	for _, a := range cf.Accounts {
		assert.False(t, foreign[a.AccountID])
	}

	st, err := l.Reports.AccountStatement(ctx, reports.AccountStatementQuery{EntityID: entityY, AccountID: cashY, From: jan10, To: feb05})
	require.NoError(t, err)
	assert.Empty(t, st.Rows)
	assert.True(t, st.Closing.IsZero())

	_, err = l.Reports.AccountStatement(ctx, reports.AccountStatementQuery{EntityID: entityY, AccountID: cashX, From: jan10, To: feb05})
	require.ErrorIs(t, err, shared.ErrAccountCrossEntity)
}

func TestLedgerEntriesNewestFirstWithRunningBalance(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	_, otherEntity := l.Company(t)
	cash, ar, ap := l.Account(t, entityID, "1000"), l.Account(t, entityID, "1200"), l.Account(t, entityID, "2000")
	inventory, sales := l.Account(t, entityID, "1300"), l.Account(t, entityID, "4000")

	post(t, l, entityID, jan10, ledgertest.Debit(ar, "300"), ledgertest.Credit(sales, "300"))
	post(t, l, entityID, jan20, ledgertest.Debit(cash, "120"), ledgertest.Credit(ar, "120"))
	post(t, l, entityID, jan20, ledgertest.Debit(inventory, "80"), ledgertest.Credit(ap, "80"))
	_, err := l.Journals.CreateDraftJournal(ctx, journals.DraftInput{EntityID: entityID, Date: feb05,
		Lines: []journals.LineInput{ledgertest.Debit(cash, "10"), ledgertest.Credit(sales, "10")}})
	require.NoError(t, err)

	all, err := l.Reports.LedgerEntries(ctx, reports.LedgerEntriesQuery{EntityID: entityID, AsOf: feb05})
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "2000", all[0].Code)
	assert.Equal(t, "80.00", all[0].Credit.StringFixed(2))
	assert.Equal(t, "0.00", all[0].Balance.StringFixed(2))
	assert.Equal(t, "80.00", all[1].Balance.StringFixed(2))
	assert.Equal(t, "300.00", all[5].Balance.StringFixed(2))
	assert.Equal(t, "1200", all[5].Code)

	limited, err := l.Reports.LedgerEntries(ctx, reports.LedgerEntriesQuery{EntityID: entityID, AsOf: feb05, Limit: 3})
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, all[:3], limited)

	withDrafts, err := l.Reports.LedgerEntries(ctx, reports.LedgerEntriesQuery{EntityID: entityID, AsOf: feb05, IncludeDrafts: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, withDrafts, 2)
	assert.Equal(t, string(journals.StatusDraft), withDrafts[0].Status)
	assert.Equal(t, "0.00", withDrafts[0].Balance.StringFixed(2))
	assert.Equal(t, "10.00", withDrafts[1].Balance.StringFixed(2))

	early, err := l.Reports.LedgerEntries(ctx, reports.LedgerEntriesQuery{EntityID: entityID, AsOf: jan10})
	require.NoError(t, err)
	assert.Len(t, early, 2)

	other, err := l.Reports.LedgerEntries(ctx, reports.LedgerEntriesQuery{EntityID: otherEntity, AsOf: feb05})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSummaryUsesMappedControlsThenStandardCodes(t *testing.T) {
	ctx := context.Background()
	l := ledgertest.NewLedger(t)
	companyID, entityID := l.Company(t)
	cash, bank, ar, ap := l.Account(t, entityID, "1000"), l.Account(t, entityID, "1100"), l.Account(t, entityID, "1200"), l.Account(t, entityID, "2000")
	inventory, sales := l.Account(t, entityID, "1300"), l.Account(t, entityID, "4000")

	post(t, l, entityID, jan10, ledgertest.Debit(ar, "300"), ledgertest.Credit(sales, "300"))
	post(t, l, entityID, jan20, ledgertest.Debit(cash, "120"), ledgertest.Credit(ar, "120"))
	post(t, l, entityID, jan20, ledgertest.Debit(inventory, "80"), ledgertest.Credit(ap, "80"))
	_, err := l.Journals.CreateDraftJournal(ctx, journals.DraftInput{EntityID: entityID, Date: jan20,
		Lines: []journals.LineInput{ledgertest.Debit(cash, "10"), ledgertest.Credit(sales, "10")}})
	require.NoError(t, err)

	sum, err := l.Reports.Summary(ctx, reports.SummaryQuery{EntityID: entityID, AsOf: feb05})
	require.NoError(t, err)
	assert.Equal(t, entityID, sum.EntityID)
	assert.Equal(t, "USD", sum.Currency)
	assert.Equal(t, 3, sum.JournalCount)
	assert.Equal(t, "500.00", sum.TotalDebit.StringFixed(2))
	assert.Equal(t, "500.00", sum.TotalCredit.StringFixed(2))
	assert.True(t, sum.Balance.IsZero())
	assert.Equal(t, "180.00", sum.AccountsReceivable.StringFixed(2))
	assert.Equal(t, "80.00", sum.AccountsPayable.StringFixed(2))
	assert.Equal(t, "120.00", sum.AvailableCash.StringFixed(2))
	assert.Len(t, sum.Entries, 6)

	sum, err = l.Reports.Summary(ctx, reports.SummaryQuery{EntityID: entityID, AsOf: feb05, IncludeDrafts: true, Entries: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.JournalCount)
	assert.Equal(t, "130.00", sum.AvailableCash.StringFixed(2))
	assert.Len(t, sum.Entries, 2)

	_, err = l.Settings.Upsert(ctx, settings.Settings{CompanyID: companyID, Cash: &bank, APControl: &inventory}, uuid.Nil)
	require.NoError(t, err)
	sum, err = l.Reports.Summary(ctx, reports.SummaryQuery{EntityID: entityID, AsOf: feb05})
	require.NoError(t, err)
	assert.True(t, sum.AvailableCash.IsZero(), "mapped bank account has no activity")
	assert.Equal(t, "-80.00", sum.AccountsPayable.StringFixed(2))
	assert.Equal(t, "180.00", sum.AccountsReceivable.StringFixed(2), "unmapped role keeps the standard code")
}

func assertNoForeign(t *testing.T, st reports.Statement, foreign map[uuid.UUID]bool) {
	t.Helper()
	for _, h := range st.Headings {
		for _, sub := range h.Subheadings {
			for _, g := range sub.Groups {
				for _, a := range g.Accounts {
					assert.False(t, foreign[a.AccountID], "statement lists %s of another company", a.Code)
				}
			}
		}
	}
}

func mustKey(t *testing.T, l *ledgertest.Ledger, entityID uuid.UUID) string {
	t.Helper()
	key, err := l.Cache.Key(context.Background(), entityID, "tb", "asof=2025-01-20", "drafts=false", "branch=*", "vendor=*")
	require.NoError(t, err)
	return key
}
