package reports

import (
	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
)

var profitAndLossClasses = []accounts.Class{accounts.ClassRevenue, accounts.ClassExpense}

// BuildProfitAndLoss groups income and expense balances. Revenue is presented
// credit-normal, expenses debit-normal.
func BuildProfitAndLoss(balances []AccountBalance, window Window) ProfitAndLoss {
	statement := BuildStatement(balances, profitAndLossClasses, window)
	return ProfitAndLoss{
		Statement:    statement,
		TotalRevenue: statement.ClassSum(accounts.ClassRevenue).Neg(),
		TotalExpense: statement.ClassSum(accounts.ClassExpense),
		NetIncome:    statement.Total.Neg(),
	}
}
