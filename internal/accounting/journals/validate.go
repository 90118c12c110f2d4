package journals

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Validate checks the structural rules of a draft.
func (in DraftInput) Validate() error {
	if len(in.Lines) == 0 {
		return shared.ErrNoLines
	}
	for _, l := range in.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return shared.ErrNegativeAmount
		}
		if !shared.InRange(l.Debit) || !shared.InRange(l.Credit) {
			return shared.ErrAmountOutOfRange
		}
	}
	return CheckBalance(in.Lines)
}

// CheckBalance compares Σdebit and Σcredit of the lines as they are stored:
// each amount is rounded to minor units before it is summed.
func CheckBalance(lines []LineInput) error {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(shared.Round(l.Debit))
		credit = credit.Add(shared.Round(l.Credit))
	}
	if !shared.Balanced(debit, credit) {
		return &shared.UnbalancedError{Debit: shared.Round(debit), Credit: shared.Round(credit)}
	}
	return nil
}

func toInputs(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Dimensions:  l.Dimensions,
		})
	}
	return out
}

func mirror(lines []Line) []LineInput {
	out := toInputs(lines)
	for i := range out {
		out[i].Debit, out[i].Credit = out[i].Credit, out[i].Debit
	}
	return out
}
