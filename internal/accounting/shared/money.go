package shared

import "github.com/shopspring/decimal"

// MinorUnits is the precision amounts are compared at.
const MinorUnits int32 = 2

// MaxAmount is the exclusive upper bound of a line amount. Amounts are stored
// as NUMERIC(18,2).
var MaxAmount = decimal.New(1, 16)

// InRange reports whether a rounded amount can be stored.
func InRange(d decimal.Decimal) bool {
	return Round(d).Abs().LessThan(MaxAmount)
}

// Round rounds an amount to minor units.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// Balanced compares two totals at minor-unit precision.
func Balanced(debit, credit decimal.Decimal) bool {
	return Round(debit).Equal(Round(credit))
}
