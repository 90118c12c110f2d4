package reports

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// WindowMode selects cumulative or windowed aggregation.
type WindowMode string

const (
	// WindowAsOf aggregates everything up to and including To.
	WindowAsOf WindowMode = "as_of"
	// WindowRange aggregates movements between From and To inclusive.
	WindowRange WindowMode = "range"
)

// Window is the date frame of a report. Dates are whole days.
type Window struct {
	Mode WindowMode `json:"mode"`
	From *time.Time `json:"from,omitempty"`
	To   time.Time  `json:"to"`
}

// AsOf builds a cumulative window ending at to.
func AsOf(to time.Time) Window {
	return Window{Mode: WindowAsOf, To: shared.DateOnly(to)}
}

// Range builds an inclusive window. from must not be after to.
func Range(from, to time.Time) (Window, error) {
	f, t := shared.DateOnly(from), shared.DateOnly(to)
	if f.After(t) {
		return Window{}, fmt.Errorf("%w: from %s after to %s", shared.ErrInvalidDate, f.Format(shared.DateLayout), t.Format(shared.DateLayout))
	}
	return Window{Mode: WindowRange, From: &f, To: t}, nil
}

// Before returns the cumulative window that ends the day before the window starts.
func (w Window) Before() Window {
	if w.From == nil {
		return w
	}
	return AsOf(w.From.AddDate(0, 0, -1))
}

func (w Window) token() string {
	if w.From == nil {
		return "asof=" + w.To.Format(shared.DateLayout)
	}
	return w.From.Format(shared.DateLayout) + ".." + w.To.Format(shared.DateLayout)
}

// AccountBalance is one chart account with its aggregated movements.
type AccountBalance struct {
	EntityID       uuid.UUID
	CompanyID      *uuid.UUID
	AccountID      uuid.UUID
	Code           string
	Name           string
	HeadingID      uuid.UUID
	HeadingName    string
	SubheadingID   uuid.UUID
	SubheadingName string
	GroupID        uuid.UUID
	GroupName      string
	StandardCode   string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
}

// Balance is the debit-normal balance.
func (b AccountBalance) Balance() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}

// Class derives the account class from the code. Unknown codes return zero.
func (b AccountBalance) Class() accounts.Class {
	class, _ := accounts.ClassOf(b.Code)
	return class
}

// BalanceQuery selects the lines aggregated into AccountBalances.
type BalanceQuery struct {
	EntityID      uuid.UUID
	Window        Window
	IncludeDrafts bool
	BranchID      *uuid.UUID
	VendorID      *uuid.UUID
	// AccountIDs restricts the result when non empty.
	AccountIDs []uuid.UUID
}

// Movement is one journal line touching an account.
type Movement struct {
	EntityID      uuid.UUID
	CompanyID     *uuid.UUID
	JournalID     uuid.UUID
	JournalNumber int64
	Reference     string
	Date          time.Time
	Status        string
	Seq           int64
	LineNo        int
	AccountID     uuid.UUID
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// MovementQuery selects the lines of one account within a window.
type MovementQuery struct {
	EntityID      uuid.UUID
	AccountID     uuid.UUID
	Window        Window
	IncludeDrafts bool
}

// TrialBalanceQuery parameterises TrialBalance. A zero DateTo means today.
type TrialBalanceQuery struct {
	EntityID      uuid.UUID
	DateTo        time.Time
	IncludeDrafts bool
	BranchID      *uuid.UUID
	VendorID      *uuid.UUID
}

// BalanceSheetQuery parameterises BalanceSheet. Set AsOf for a cumulative
// sheet or From and To for the movements of a window.
type BalanceSheetQuery struct {
	EntityID      uuid.UUID
	AsOf          *time.Time
	From          *time.Time
	To            *time.Time
	IncludeDrafts bool
	BranchID      *uuid.UUID
}

// ProfitAndLossQuery parameterises ProfitAndLoss.
type ProfitAndLossQuery struct {
	EntityID      uuid.UUID
	From          time.Time
	To            time.Time
	IncludeDrafts bool
	BranchID      *uuid.UUID
	VendorID      *uuid.UUID
}

// CashFlowQuery parameterises CashFlow.
type CashFlowQuery struct {
	EntityID      uuid.UUID
	From          time.Time
	To            time.Time
	IncludeDrafts bool
}

// AccountStatementQuery parameterises AccountStatement.
type AccountStatementQuery struct {
	EntityID      uuid.UUID
	AccountID     uuid.UUID
	From          time.Time
	To            time.Time
	IncludeDrafts bool
}

// TrialBalanceRow is one account line of a trial balance.
type TrialBalanceRow struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Class     accounts.Class  `json:"class"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// TrialBalance lists every chart account with its movements up to a date.
type TrialBalance struct {
	EntityID    uuid.UUID         `json:"entity_id"`
	Currency    string            `json:"currency"`
	Window      Window            `json:"window"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Difference  decimal.Decimal   `json:"difference"`
	Balanced    bool              `json:"balanced"`
}

// StatementAccount is a leaf of a grouped statement.
type StatementAccount struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// StatementGroup nests accounts.
type StatementGroup struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Total    decimal.Decimal    `json:"total"`
	Accounts []StatementAccount `json:"accounts"`
}

// StatementSubheading nests groups.
type StatementSubheading struct {
	ID     uuid.UUID        `json:"id"`
	Name   string           `json:"name"`
	Total  decimal.Decimal  `json:"total"`
	Groups []StatementGroup `json:"groups"`
}

// StatementHeading nests subheadings.
type StatementHeading struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Total       decimal.Decimal       `json:"total"`
	Subheadings []StatementSubheading `json:"subheadings"`
}

// ClassTotal is the debit-normal total of one account class.
type ClassTotal struct {
	Class accounts.Class  `json:"class"`
	Total decimal.Decimal `json:"total"`
}

// Statement is the heading, subheading, group and account tree shared by the
// balance sheet and the profit and loss report. Totals are debit-normal.
type Statement struct {
	Window   Window             `json:"window"`
	Headings []StatementHeading `json:"headings"`
	Classes  []ClassTotal       `json:"classes"`
	Total    decimal.Decimal    `json:"total"`
}

// ClassSum returns the total of class, zero when absent.
func (s Statement) ClassSum(class accounts.Class) decimal.Decimal {
	for _, c := range s.Classes {
		if c.Class == class {
			return c.Total
		}
	}
	return decimal.Zero
}

// BalanceSheet reports assets against liabilities and equity. Liability,
// equity and earnings totals are presented credit-normal.
type BalanceSheet struct {
	EntityID         uuid.UUID       `json:"entity_id"`
	Currency         string          `json:"currency"`
	Statement        Statement       `json:"statement"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	// CurrentEarnings is the unclosed result of income and expense accounts.
	CurrentEarnings decimal.Decimal `json:"current_earnings"`
	Balanced        bool            `json:"balanced"`
}

// ProfitAndLoss reports income against expenses within a window.
type ProfitAndLoss struct {
	EntityID     uuid.UUID       `json:"entity_id"`
	Currency     string          `json:"currency"`
	Statement    Statement       `json:"statement"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

// CashFlowAccount is the movement of one cash or bank account.
type CashFlowAccount struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Opening   decimal.Decimal `json:"opening"`
	Inflow    decimal.Decimal `json:"inflow"`
	Outflow   decimal.Decimal `json:"outflow"`
	Net       decimal.Decimal `json:"net"`
	Closing   decimal.Decimal `json:"closing"`
}

// CashFlow summarises cash and bank movements within a window.
type CashFlow struct {
	EntityID uuid.UUID         `json:"entity_id"`
	Currency string            `json:"currency"`
	Window   Window            `json:"window"`
	Accounts []CashFlowAccount `json:"accounts"`
	Total    CashFlowAccount   `json:"total"`
}

// StatementLine is one movement with its running balance.
type StatementLine struct {
	JournalID   uuid.UUID       `json:"journal_id"`
	Number      int64           `json:"number"`
	Reference   string          `json:"reference"`
	Date        time.Time       `json:"date"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// AccountStatement is the ledger card of one account.
type AccountStatement struct {
	EntityID    uuid.UUID       `json:"entity_id"`
	Currency    string          `json:"currency"`
	AccountID   uuid.UUID       `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Window      Window          `json:"window"`
	Opening     decimal.Decimal `json:"opening"`
	Rows        []StatementLine `json:"rows"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Closing     decimal.Decimal `json:"closing"`
}

// JournalImbalance is a posted journal whose lines do not balance.
type JournalImbalance struct {
	JournalID uuid.UUID       `json:"journal_id"`
	Number    int64           `json:"number"`
	Date      time.Time       `json:"date"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// Integrity is the outcome of a ledger integrity scan of one entity.
type Integrity struct {
	EntityID   uuid.UUID          `json:"entity_id"`
	AsOf       time.Time          `json:"as_of"`
	Difference decimal.Decimal    `json:"difference"`
	Unbalanced []JournalImbalance `json:"unbalanced"`
}

// OK reports whether the scan found no violation.
func (i Integrity) OK() bool {
	return i.Difference.IsZero() && len(i.Unbalanced) == 0
}

// DefaultEntryLimit and MaxEntryLimit bound ledger entry listings.
const (
	DefaultEntryLimit = 50
	MaxEntryLimit     = 500
)

// LedgerEntriesQuery selects the most recent lines of an entity dated up to
// AsOf.
type LedgerEntriesQuery struct {
	EntityID      uuid.UUID
	AsOf          time.Time
	IncludeDrafts bool
	Limit         int
}

func (q LedgerEntriesQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultEntryLimit
	case q.Limit > MaxEntryLimit:
		return MaxEntryLimit
	}
	return q.Limit
}

// LedgerEntry is one journal line with the running Σ(debit - credit) of every
// matching line of the entity up to and including it.
type LedgerEntry struct {
	EntityID    uuid.UUID       `json:"entity_id"`
	CompanyID   *uuid.UUID      `json:"company_id,omitempty"`
	LineID      uuid.UUID       `json:"line_id"`
	JournalID   uuid.UUID       `json:"journal_id"`
	Number      int64           `json:"number"`
	Date        time.Time       `json:"date"`
	Status      string          `json:"status"`
	Seq         int64           `json:"seq"`
	AccountID   uuid.UUID       `json:"account_id"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// SummaryQuery selects the dashboard figures of an entity.
type SummaryQuery struct {
	EntityID      uuid.UUID
	AsOf          time.Time
	IncludeDrafts bool
	Entries       int
}

// Summary is the headline view of one entity: activity totals, control
// account balances and the latest ledger entries.
type Summary struct {
	EntityID     uuid.UUID       `json:"entity_id"`
	Currency     string          `json:"currency"`
	AsOf         time.Time       `json:"as_of"`
	TotalDebit   decimal.Decimal `json:"total_debit"`
	TotalCredit  decimal.Decimal `json:"total_credit"`
	Balance      decimal.Decimal `json:"balance"`
	JournalCount int             `json:"journal_count"`
	// AccountsReceivable is debit normal, AccountsPayable credit normal.
	AccountsReceivable decimal.Decimal `json:"accounts_receivable"`
	AccountsPayable    decimal.Decimal `json:"accounts_payable"`
	AvailableCash      decimal.Decimal `json:"available_cash"`
	Entries            []LedgerEntry   `json:"entries"`
}
