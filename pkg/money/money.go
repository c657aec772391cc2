// Package money handles currency amounts as integer minor units (kobo).
//
// The payment gateway transmits amounts as decimal strings with exactly two
// fractional digits; everything internal stays on int64 so fee arithmetic
// never touches floating point.
package money

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "schoolpay/pkg/domain-errors"
)

// Amount is a quantity of money in minor currency units.
type Amount int64

// FormatDecimal renders the amount as a decimal string with exactly two
// fractional digits, e.g. 50000 -> "500.00".
func (a Amount) FormatDecimal() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseDecimal parses a decimal string into minor units. Only the gateway's
// wire shape is accepted: an integer part and exactly two fractional digits.
func ParseDecimal(s string) (Amount, error) {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 2 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "amount must have exactly two fractional digits")
	}
	negative := strings.HasPrefix(whole, "-")
	if negative {
		whole = whole[1:]
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || whole == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid amount")
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid amount")
	}
	v := w*100 + int64(f)
	if negative {
		v = -v
	}
	return Amount(v), nil
}

// SplitInstallment divides the amount into n equal installments, rounding each
// up to the nearest whole major unit so the gateway never sees sub-unit
// installment amounts.
func (a Amount) SplitInstallment(n int) Amount {
	if n <= 0 {
		return a
	}
	per := (int64(a) + int64(n) - 1) / int64(n)
	if rem := per % 100; rem != 0 {
		per += 100 - rem
	}
	return Amount(per)
}
