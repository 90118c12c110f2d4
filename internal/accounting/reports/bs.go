package reports

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

var balanceSheetClasses = []accounts.Class{accounts.ClassAsset, accounts.ClassLiability, accounts.ClassEquity}

// BuildBalanceSheet groups asset, liability and equity balances. Income and
// expense balances of the same window are folded into CurrentEarnings so the
// sheet balances before the period is closed.
func BuildBalanceSheet(balances []AccountBalance, window Window) BalanceSheet {
	statement := BuildStatement(balances, balanceSheetClasses, window)
	earnings := decimal.Zero
	for _, b := range balances {
		switch b.Class() {
		case accounts.ClassRevenue, accounts.ClassExpense:
			earnings = earnings.Sub(shared.Round(b.Debit).Sub(shared.Round(b.Credit)))
		}
	}
	bs := BalanceSheet{
		Statement:        statement,
		TotalAssets:      statement.ClassSum(accounts.ClassAsset),
		TotalLiabilities: statement.ClassSum(accounts.ClassLiability).Neg(),
		TotalEquity:      statement.ClassSum(accounts.ClassEquity).Neg(),
		CurrentEarnings:  earnings,
	}
	bs.Balanced = shared.Balanced(bs.TotalAssets, bs.TotalLiabilities.Add(bs.TotalEquity).Add(bs.CurrentEarnings))
	return bs
}
