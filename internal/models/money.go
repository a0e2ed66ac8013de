package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const currencySymbol = "€"

var ErrInvalidDisplayAmount = errors.New("invalid display amount")

// FormatMinor renders minor units (cents) in display currency, e.g. 10000 -> "€100.00".
func FormatMinor(amount int64) string {
	d := decimal.New(amount, -2)
	if d.IsNegative() {
		return "-" + currencySymbol + d.Abs().StringFixed(2)
	}
	return currencySymbol + d.StringFixed(2)
}

// ParseDisplayAmount converts user input such as "25", "25.5" or "€25.50" into minor
// units. More than two decimal places is rejected rather than rounded.
func ParseDisplayAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, currencySymbol)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidDisplayAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDisplayAmount, s)
	}

	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: more than two decimal places in %q", ErrInvalidDisplayAmount, s)
	}
	return minor.IntPart(), nil
}
