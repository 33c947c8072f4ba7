package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AmountToCents converts a dollars-and-cents amount to cents. The amount must
// be non-negative and carry at most two decimal places; anything else is
// rejected so that a malformed amount surfaces as a validation failure rather
// than silent rounding.
func AmountToCents(amount decimal.Decimal) (int64, bool) {
	if amount.IsNegative() {
		return 0, false
	}
	scaled := amount.Mul(hundred)
	if !scaled.IsInteger() {
		return 0, false
	}
	big := scaled.BigInt()
	if !big.IsInt64() {
		return 0, false
	}
	return big.Int64(), true
}
