package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// BuildTrialBalance converts account balances into trial balance rows ordered
// by account code. Every account is kept, including those without movements.
func BuildTrialBalance(balances []AccountBalance, window Window) TrialBalance {
	result := TrialBalance{
		Window:      window,
		Rows:        make([]TrialBalanceRow, 0, len(balances)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, b := range balances {
		row := TrialBalanceRow{
			AccountID: b.AccountID,
			Code:      b.Code,
			Name:      b.Name,
			Class:     b.Class(),
			Debit:     shared.Round(b.Debit),
			Credit:    shared.Round(b.Credit),
		}
		row.Balance = row.Debit.Sub(row.Credit)
		result.Rows = append(result.Rows, row)
		result.TotalDebit = result.TotalDebit.Add(row.Debit)
		result.TotalCredit = result.TotalCredit.Add(row.Credit)
	}
	sort.SliceStable(result.Rows, func(i, j int) bool {
		return result.Rows[i].Code < result.Rows[j].Code
	})
	result.Difference = result.TotalDebit.Sub(result.TotalCredit)
	result.Balanced = shared.Balanced(result.TotalDebit, result.TotalCredit)
	return result
}
