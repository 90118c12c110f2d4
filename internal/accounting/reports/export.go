package reports

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// WriteTrialBalanceCSV renders the trial balance with one row per account and
// a closing totals row. Amounts use the minor units of the entity currency.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance) error {
	scale := currencyScale(tb.Currency)
	format := func(d decimal.Decimal) string { return d.StringFixed(scale) }

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"code", "name", "currency", "debit", "credit", "balance"}); err != nil {
		return err
	}
	for _, row := range tb.Rows {
		record := []string{row.Code, row.Name, tb.Currency, format(row.Debit), format(row.Credit), format(row.Balance)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	total := []string{"", "TOTAL", tb.Currency, format(tb.TotalDebit), format(tb.TotalCredit), format(tb.Difference)}
	if err := cw.Write(total); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func currencyScale(code string) int32 {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return shared.MinorUnits
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}
