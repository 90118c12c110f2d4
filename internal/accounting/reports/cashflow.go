package reports

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// BuildCashFlow combines the balances before the window with the movements
// inside it. Both slices are expected to cover the same accounts.
func BuildCashFlow(opening, movements []AccountBalance, window Window) CashFlow {
	rows := map[uuid.UUID]*CashFlowAccount{}
	row := func(b AccountBalance) *CashFlowAccount {
		r, ok := rows[b.AccountID]
		if !ok {
			r = &CashFlowAccount{
				AccountID: b.AccountID,
				Code:      b.Code,
				Name:      b.Name,
				Opening:   decimal.Zero,
				Inflow:    decimal.Zero,
				Outflow:   decimal.Zero,
			}
			rows[b.AccountID] = r
		}
		return r
	}
	for _, b := range opening {
		r := row(b)
		r.Opening = r.Opening.Add(shared.Round(b.Balance()))
	}
	for _, b := range movements {
		r := row(b)
		r.Inflow = r.Inflow.Add(shared.Round(b.Debit))
		r.Outflow = r.Outflow.Add(shared.Round(b.Credit))
	}

	out := CashFlow{
		Window:   window,
		Accounts: make([]CashFlowAccount, 0, len(rows)),
		Total: CashFlowAccount{
			Opening: decimal.Zero,
			Inflow:  decimal.Zero,
			Outflow: decimal.Zero,
			Net:     decimal.Zero,
			Closing: decimal.Zero,
		},
	}
	for _, r := range rows {
		r.Net = r.Inflow.Sub(r.Outflow)
		r.Closing = r.Opening.Add(r.Net)
		out.Accounts = append(out.Accounts, *r)
		out.Total.Opening = out.Total.Opening.Add(r.Opening)
		out.Total.Inflow = out.Total.Inflow.Add(r.Inflow)
		out.Total.Outflow = out.Total.Outflow.Add(r.Outflow)
		out.Total.Net = out.Total.Net.Add(r.Net)
		out.Total.Closing = out.Total.Closing.Add(r.Closing)
	}
	sort.Slice(out.Accounts, func(i, j int) bool {
		return out.Accounts[i].Code < out.Accounts[j].Code
	})
	return out
}
