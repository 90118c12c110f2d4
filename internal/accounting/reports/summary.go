package reports

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Standard catalog codes the summary falls back to when a company has no
// mapping for a role.
var (
	standardReceivable = []string{"1200"}
	standardPayable    = []string{"2000"}
	standardCash       = []string{"1000", "1100"}
)

// KPIAccounts names the accounts behind the summary balances. An empty list
// selects the accounts linked to the matching standard codes.
type KPIAccounts struct {
	Receivable []uuid.UUID
	Payable    []uuid.UUID
	Cash       []uuid.UUID
}

func (k KPIAccounts) token() string {
	return "kpi=" + accountsToken(k.Receivable) + ";" + accountsToken(k.Payable) + ";" + accountsToken(k.Cash)
}

// BuildSummary folds per account balances into the summary figures.
func BuildSummary(balances []AccountBalance, kpi KPIAccounts, journals int, entries []LedgerEntry, window Window) Summary {
	out := Summary{
		AsOf:               window.To,
		TotalDebit:         decimal.Zero,
		TotalCredit:        decimal.Zero,
		JournalCount:       journals,
		AccountsReceivable: decimal.Zero,
		AccountsPayable:    decimal.Zero,
		AvailableCash:      decimal.Zero,
		Entries:            entries,
	}
	if out.Entries == nil {
		out.Entries = []LedgerEntry{}
	}
	receivable := selector(kpi.Receivable, standardReceivable)
	payable := selector(kpi.Payable, standardPayable)
	cash := selector(kpi.Cash, standardCash)
	for _, b := range balances {
		out.TotalDebit = out.TotalDebit.Add(b.Debit)
		out.TotalCredit = out.TotalCredit.Add(b.Credit)
		if receivable(b) {
			out.AccountsReceivable = out.AccountsReceivable.Add(b.Balance())
		}
		if payable(b) {
			out.AccountsPayable = out.AccountsPayable.Sub(b.Balance())
		}
		if cash(b) {
			out.AvailableCash = out.AvailableCash.Add(b.Balance())
		}
	}
	out.TotalDebit = shared.Round(out.TotalDebit)
	out.TotalCredit = shared.Round(out.TotalCredit)
	out.Balance = out.TotalDebit.Sub(out.TotalCredit)
	out.AccountsReceivable = shared.Round(out.AccountsReceivable)
	out.AccountsPayable = shared.Round(out.AccountsPayable)
	out.AvailableCash = shared.Round(out.AvailableCash)
	return out
}

func selector(ids []uuid.UUID, standard []string) func(AccountBalance) bool {
	if len(ids) > 0 {
		set := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		return func(b AccountBalance) bool { return set[b.AccountID] }
	}
	codes := make(map[string]bool, len(standard))
	for _, c := range standard {
		codes[c] = true
	}
	return func(b AccountBalance) bool { return b.StandardCode != "" && codes[b.StandardCode] }
}
