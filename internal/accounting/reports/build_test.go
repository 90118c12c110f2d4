package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
)

var (
	headAssets  = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	headIncome  = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	headLiab    = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	subCurrent  = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	subRevenue  = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	subPayables = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	grpCash     = uuid.MustParse("00000000-0000-0000-0000-00000000a101")
	grpBank     = uuid.MustParse("00000000-0000-0000-0000-00000000a102")
	grpSales    = uuid.MustParse("00000000-0000-0000-0000-00000000b101")
	grpAP       = uuid.MustParse("00000000-0000-0000-0000-00000000c101")
)

func bal(code, name string, head, sub, grp uuid.UUID, headName, subName, grpName, debit, credit string) AccountBalance {
	return AccountBalance{
		AccountID:      uuid.New(),
		Code:           code,
		Name:           name,
		HeadingID:      head,
		HeadingName:    headName,
		SubheadingID:   sub,
		SubheadingName: subName,
		GroupID:        grp,
		GroupName:      grpName,
		Debit:          decimal.RequireFromString(debit),
		Credit:         decimal.RequireFromString(credit),
	}
}

func sample() []AccountBalance {
	return []AccountBalance{
		bal("4000", "Sales", headIncome, subRevenue, grpSales, "Income", "Revenue", "Sales", "0", "900"),
		bal("1100", "Bank", headAssets, subCurrent, grpBank, "Assets", "Current Assets", "Bank", "300", "0"),
		bal("1000", "Cash", headAssets, subCurrent, grpCash, "Assets", "Current Assets", "Cash", "700", "100"),
		bal("2000", "Payables", headLiab, subPayables, grpAP, "Liabilities", "Payables", "Trade", "0", "0"),
		bal("5000", "COGS", uuid.New(), uuid.New(), uuid.New(), "Expenses", "Direct", "Cost", "400", "0"),
		bal("3000", "Capital", uuid.New(), uuid.New(), uuid.New(), "Equity", "Owners", "Capital", "0", "400"),
	}
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance(sample(), AsOf(time.Now()))
	if len(tb.Rows) != 6 {
		t.Fatalf("expected every account, got %d rows", len(tb.Rows))
	}
	if tb.Rows[0].Code != "1000" || tb.Rows[5].Code != "5000" {
		t.Fatalf("rows not ordered by code: %s..%s", tb.Rows[0].Code, tb.Rows[5].Code)
	}
	if !tb.Balanced || !tb.Difference.IsZero() {
		t.Fatalf("expected balanced trial balance, difference %s", tb.Difference)
	}
	if tb.TotalDebit.StringFixed(2) != "1400.00" {
		t.Fatalf("unexpected total debit %s", tb.TotalDebit)
	}
	if tb.Rows[0].Balance.StringFixed(2) != "600.00" {
		t.Fatalf("unexpected cash balance %s", tb.Rows[0].Balance)
	}
}

func TestBuildTrialBalanceSurfacesDifference(t *testing.T) {
	rows := sample()
	rows[0].Credit = decimal.RequireFromString("899.99")
	tb := BuildTrialBalance(rows, AsOf(time.Now()))
	if tb.Balanced {
		t.Fatalf("expected unbalanced result")
	}
	if tb.Difference.StringFixed(2) != "0.01" {
		t.Fatalf("difference must not be rounded away: %s", tb.Difference)
	}
}

func TestBuildStatementGroupsDeterministically(t *testing.T) {
	rows := sample()
	first := BuildStatement(rows, balanceSheetClasses, AsOf(time.Now()))
	for i := 0; i < 10; i++ {
		shuffled := append([]AccountBalance(nil), rows...)
		shuffled[0], shuffled[len(shuffled)-1-i%len(shuffled)] = shuffled[len(shuffled)-1-i%len(shuffled)], shuffled[0]
		again := BuildStatement(shuffled, balanceSheetClasses, AsOf(time.Now()))
		if len(again.Headings) != len(first.Headings) {
			t.Fatalf("heading count changed")
		}
		for h := range again.Headings {
			if again.Headings[h].Name != first.Headings[h].Name {
				t.Fatalf("heading order changed: %s vs %s", again.Headings[h].Name, first.Headings[h].Name)
			}
		}
	}
	if len(first.Headings) != 2 {
		t.Fatalf("expected assets and equity only (payables idle), got %d", len(first.Headings))
	}
	assets := first.Headings[0]
	if assets.Name != "Assets" || assets.Total.StringFixed(2) != "900.00" {
		t.Fatalf("unexpected assets section %s %s", assets.Name, assets.Total)
	}
	groups := assets.Subheadings[0].Groups
	if groups[0].Name != "Bank" || groups[1].Name != "Cash" {
		t.Fatalf("groups not ordered by name: %s, %s", groups[0].Name, groups[1].Name)
	}
}

func TestBuildBalanceSheetFoldsEarnings(t *testing.T) {
	bs := BuildBalanceSheet(sample(), AsOf(time.Now()))
	if bs.TotalAssets.StringFixed(2) != "900.00" {
		t.Fatalf("unexpected assets %s", bs.TotalAssets)
	}
	if bs.TotalEquity.StringFixed(2) != "400.00" {
		t.Fatalf("unexpected equity %s", bs.TotalEquity)
	}
	if bs.CurrentEarnings.StringFixed(2) != "500.00" {
		t.Fatalf("unexpected earnings %s", bs.CurrentEarnings)
	}
	if !bs.Balanced {
		t.Fatalf("assets must equal liabilities + equity + earnings")
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	window, err := Range(from, from.AddDate(0, 1, -1))
	if err != nil {
		t.Fatal(err)
	}
	pl := BuildProfitAndLoss(sample(), window)
	if pl.TotalRevenue.StringFixed(2) != "900.00" {
		t.Fatalf("unexpected revenue %s", pl.TotalRevenue)
	}
	if pl.TotalExpense.StringFixed(2) != "400.00" {
		t.Fatalf("unexpected expense %s", pl.TotalExpense)
	}
	if pl.NetIncome.StringFixed(2) != "500.00" {
		t.Fatalf("unexpected net income %s", pl.NetIncome)
	}
	if got := pl.Statement.ClassSum(accounts.ClassAsset); !got.IsZero() {
		t.Fatalf("asset class leaked into profit and loss: %s", got)
	}
}

func TestBuildStatementEmpty(t *testing.T) {
	st := BuildStatement(nil, profitAndLossClasses, AsOf(time.Now()))
	if len(st.Headings) != 0 || !st.Total.IsZero() {
		t.Fatalf("expected empty statement")
	}
	if len(st.Classes) != 2 {
		t.Fatalf("expected zeroed class totals, got %d", len(st.Classes))
	}
}

func TestBuildAccountStatementRunningBalance(t *testing.T) {
	d1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	movements := []Movement{
		{Date: d2, Seq: 9, Debit: decimal.RequireFromString("20"), Credit: decimal.Zero},
		{Date: d1, Seq: 7, Debit: decimal.Zero, Credit: decimal.RequireFromString("30")},
		{Date: d1, Seq: 3, Debit: decimal.RequireFromString("50"), Credit: decimal.Zero},
	}
	st := BuildAccountStatement(decimal.RequireFromString("100"), movements, AsOf(d2))
	want := []string{"150.00", "120.00", "140.00"}
	for i, row := range st.Rows {
		if row.Balance.StringFixed(2) != want[i] {
			t.Fatalf("row %d balance %s, want %s", i, row.Balance, want[i])
		}
	}
	if st.Closing.StringFixed(2) != "140.00" {
		t.Fatalf("unexpected closing %s", st.Closing)
	}
}

func TestBuildCashFlow(t *testing.T) {
	cash := bal("1000", "Cash", headAssets, subCurrent, grpCash, "Assets", "Current", "Cash", "200", "50")
	window := cash
	window.Debit, window.Credit = decimal.RequireFromString("80"), decimal.RequireFromString("30")
	cf := BuildCashFlow([]AccountBalance{cash}, []AccountBalance{window}, AsOf(time.Now()))
	if len(cf.Accounts) != 1 {
		t.Fatalf("expected one account")
	}
	row := cf.Accounts[0]
	if row.Opening.StringFixed(2) != "150.00" || row.Net.StringFixed(2) != "50.00" || row.Closing.StringFixed(2) != "200.00" {
		t.Fatalf("unexpected cash flow row %+v", row)
	}
}

func TestBuildSummaryFallsBackToStandardCodes(t *testing.T) {
	rows := sample()
	for i := range rows {
		rows[i].StandardCode = rows[i].Code
	}
	rows[3].Credit = decimal.RequireFromString("250")
	sum := BuildSummary(rows, KPIAccounts{}, 4, nil, AsOf(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)))
	if got := sum.AvailableCash.StringFixed(2); got != "900.00" {
		t.Fatalf("cash and bank should both count, got %s", got)
	}
	if got := sum.AccountsPayable.StringFixed(2); got != "250.00" {
		t.Fatalf("payables are credit normal, got %s", got)
	}
	if !sum.AccountsReceivable.IsZero() {
		t.Fatalf("no receivable account, got %s", sum.AccountsReceivable)
	}
	if sum.TotalDebit.StringFixed(2) != "1400.00" || sum.TotalCredit.StringFixed(2) != "1650.00" {
		t.Fatalf("unexpected totals %s / %s", sum.TotalDebit, sum.TotalCredit)
	}
	if sum.Balance.StringFixed(2) != "-250.00" {
		t.Fatalf("balance should be debit less credit, got %s", sum.Balance)
	}
	if sum.JournalCount != 4 || sum.Entries == nil {
		t.Fatalf("unexpected count %d or nil entries", sum.JournalCount)
	}

	unlinked := sample()
	sum = BuildSummary(unlinked, KPIAccounts{}, 0, nil, AsOf(time.Now()))
	if !sum.AvailableCash.IsZero() {
		t.Fatalf("accounts without a standard link are not cash, got %s", sum.AvailableCash)
	}

	sum = BuildSummary(rows, KPIAccounts{Cash: []uuid.UUID{rows[1].AccountID}, Payable: []uuid.UUID{rows[5].AccountID}}, 0, nil, AsOf(time.Now()))
	if got := sum.AvailableCash.StringFixed(2); got != "300.00" {
		t.Fatalf("mapped cash replaces the standard codes, got %s", got)
	}
	if got := sum.AccountsPayable.StringFixed(2); got != "400.00" {
		t.Fatalf("mapped payable account, got %s", got)
	}
}

func TestRangeRejectsInvertedWindow(t *testing.T) {
	from := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	if _, err := Range(from, from.AddDate(0, 0, -1)); err == nil {
		t.Fatalf("expected error for inverted window")
	}
}

func TestWriteTrialBalanceCSV(t *testing.T) {
	tb := BuildTrialBalance(sample(), AsOf(time.Now()))
	tb.Currency = "USD"
	var buf bytes.Buffer
	if err := WriteTrialBalanceCSV(&buf, tb); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected header, 6 rows and totals, got %d lines", len(lines))
	}
	if lines[1] != "1000,Cash,USD,700.00,100.00,600.00" {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.HasPrefix(lines[7], ",TOTAL,USD,1400.00,1400.00,0.00") {
		t.Fatalf("unexpected totals row %q", lines[7])
	}
}
