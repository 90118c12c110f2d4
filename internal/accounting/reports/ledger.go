package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// BuildAccountStatement orders movements by journal date then line insertion
// sequence and carries a running balance from opening.
func BuildAccountStatement(opening decimal.Decimal, movements []Movement, window Window) AccountStatement {
	sorted := append([]Movement(nil), movements...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	out := AccountStatement{
		Window:      window,
		Opening:     shared.Round(opening),
		Rows:        make([]StatementLine, 0, len(sorted)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	running := out.Opening
	for _, m := range sorted {
		debit, credit := shared.Round(m.Debit), shared.Round(m.Credit)
		running = running.Add(debit).Sub(credit)
		out.Rows = append(out.Rows, StatementLine{
			JournalID:   m.JournalID,
			Number:      m.JournalNumber,
			Reference:   m.Reference,
			Date:        m.Date,
			Status:      m.Status,
			Description: m.Description,
			Debit:       debit,
			Credit:      credit,
			Balance:     running,
		})
		out.TotalDebit = out.TotalDebit.Add(debit)
		out.TotalCredit = out.TotalCredit.Add(credit)
	}
	out.Closing = running
	return out
}
